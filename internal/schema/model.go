package schema

import "time"

// Stop is the canonical, normalized form of one traffic-stop row. Pointer
// fields are nullable; booleans and Gender are never null.
type Stop struct {
	SeqID        string     `db:"seq_id"`
	StopDatetime *time.Time `db:"stop_datetime"`

	Agency      *string `db:"agency"`
	SubAgency   *string `db:"subagency"`
	Description *string `db:"description"`
	Location    *string `db:"location"`

	Latitude  *float64 `db:"latitude"`
	Longitude *float64 `db:"longitude"`

	Accident        bool `db:"accident"`
	PropertyDamage  bool `db:"property_damage"`
	Alcohol         bool `db:"alcohol"`
	WorkZone        bool `db:"work_zone"`
	PersonalInjury  bool `db:"personal_injury"`
	Fatal           bool `db:"fatal"`
	SearchConducted bool `db:"search_conducted"`

	SearchDisposition *string `db:"search_disposition"`
	SearchOutcome     *string `db:"search_outcome"`
	SearchReason      *string `db:"search_reason"`

	State         *string `db:"state"`
	VehicleType   *string `db:"vehicle_type"`
	Make          *string `db:"make"`
	Model         *string `db:"model"`
	Color         *string `db:"color"`
	ViolationType *string `db:"violation_type"`
	Charge        *string `db:"charge"`
	Race          *string `db:"race"`
	Gender        string  `db:"gender"`
	DLState       *string `db:"dl_state"`
}

// accessors maps a canonical column name to a getter returning a driver-ready
// value: nil for null, string, bool, float64 or time.Time otherwise.
var accessors = map[string]func(s *Stop) any{
	"seq_id":             func(s *Stop) any { return s.SeqID },
	"stop_datetime":      func(s *Stop) any { return timeOrNil(s.StopDatetime) },
	"agency":             func(s *Stop) any { return strOrNil(s.Agency) },
	"subagency":          func(s *Stop) any { return strOrNil(s.SubAgency) },
	"description":        func(s *Stop) any { return strOrNil(s.Description) },
	"location":           func(s *Stop) any { return strOrNil(s.Location) },
	"latitude":           func(s *Stop) any { return floatOrNil(s.Latitude) },
	"longitude":          func(s *Stop) any { return floatOrNil(s.Longitude) },
	"accident":           func(s *Stop) any { return s.Accident },
	"property_damage":    func(s *Stop) any { return s.PropertyDamage },
	"alcohol":            func(s *Stop) any { return s.Alcohol },
	"work_zone":          func(s *Stop) any { return s.WorkZone },
	"personal_injury":    func(s *Stop) any { return s.PersonalInjury },
	"fatal":              func(s *Stop) any { return s.Fatal },
	"search_conducted":   func(s *Stop) any { return s.SearchConducted },
	"search_disposition": func(s *Stop) any { return strOrNil(s.SearchDisposition) },
	"search_outcome":     func(s *Stop) any { return strOrNil(s.SearchOutcome) },
	"search_reason":      func(s *Stop) any { return strOrNil(s.SearchReason) },
	"state":              func(s *Stop) any { return strOrNil(s.State) },
	"vehicle_type":       func(s *Stop) any { return strOrNil(s.VehicleType) },
	"make":               func(s *Stop) any { return strOrNil(s.Make) },
	"model":              func(s *Stop) any { return strOrNil(s.Model) },
	"color":              func(s *Stop) any { return strOrNil(s.Color) },
	"violation_type":     func(s *Stop) any { return strOrNil(s.ViolationType) },
	"charge":             func(s *Stop) any { return strOrNil(s.Charge) },
	"race":               func(s *Stop) any { return strOrNil(s.Race) },
	"gender":             func(s *Stop) any { return s.Gender },
	"dl_state":           func(s *Stop) any { return strOrNil(s.DLState) },
}

// Known reports whether name is a canonical column.
func Known(name string) bool {
	_, ok := accessors[name]
	return ok
}

// Values projects s onto columns, in order. Unknown columns yield nil.
func (s *Stop) Values(columns []string) []any {
	out := make([]any, len(columns))
	for i, c := range columns {
		if get, ok := accessors[c]; ok {
			out[i] = get(s)
		}
	}
	return out
}

func strOrNil(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatOrNil(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func timeOrNil(p *time.Time) any {
	if p == nil {
		return nil
	}
	return *p
}
