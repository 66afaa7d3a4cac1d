package ddl

import (
	"fmt"

	"trafficetl/internal/config"
	gddl "trafficetl/internal/ddl"
	"trafficetl/internal/schema"
)

// FromPipeline derives a Postgres TableDef for the traffic-stop contract from
// p.Storage.DB. Empty columns or key columns fall back to the contract.
func FromPipeline(p config.Pipeline) (gddl.TableDef, error) {
	db := p.Storage.DB
	td, err := gddl.FromContract(db.Table, db.Columns, db.KeyColumns, schema.TrafficStops, MapType)
	if err != nil {
		return gddl.TableDef{}, fmt.Errorf("postgres %w", err)
	}
	return td, nil
}
