package ddl

import (
	"fmt"

	"trafficetl/internal/config"
	gddl "trafficetl/internal/ddl"
	"trafficetl/internal/schema"
)

// FromPipeline derives a MySQL TableDef for the traffic-stop contract.
func FromPipeline(p config.Pipeline) (gddl.TableDef, error) {
	db := p.Storage.DB
	td, err := gddl.FromContract(db.Table, db.Columns, db.KeyColumns, schema.TrafficStops, MapType)
	if err != nil {
		return gddl.TableDef{}, fmt.Errorf("mysql %w", err)
	}
	return td, nil
}
