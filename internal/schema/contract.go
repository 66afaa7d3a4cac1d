package schema

// Field describes one canonical column of the traffic-stop store.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"` // "text" | "bool" | "float" | "timestamp"
	Required bool   `json:"required,omitempty"`
	Key      bool   `json:"key,omitempty"` // part of the natural key
}

// Contract is an ordered set of canonical fields.
type Contract struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Names returns the field names in contract order.
func (c Contract) Names() []string {
	out := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		out[i] = f.Name
	}
	return out
}

// KeyNames returns the natural key columns in contract order.
func (c Contract) KeyNames() []string {
	var out []string
	for _, f := range c.Fields {
		if f.Key {
			out = append(out, f.Name)
		}
	}
	return out
}

// Lookup returns the field with the given name.
func (c Contract) Lookup(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// TrafficStops is the canonical column set. Consumers of the store depend on
// these names and types staying stable.
var TrafficStops = Contract{
	Name: "traffic_violations",
	Fields: []Field{
		{Name: "seq_id", Type: "text", Required: true, Key: true},
		{Name: "stop_datetime", Type: "timestamp"},
		{Name: "agency", Type: "text"},
		{Name: "subagency", Type: "text"},
		{Name: "description", Type: "text"},
		{Name: "location", Type: "text"},
		{Name: "latitude", Type: "float"},
		{Name: "longitude", Type: "float"},
		{Name: "accident", Type: "bool", Required: true},
		{Name: "property_damage", Type: "bool", Required: true},
		{Name: "alcohol", Type: "bool", Required: true},
		{Name: "work_zone", Type: "bool", Required: true},
		{Name: "personal_injury", Type: "bool", Required: true},
		{Name: "fatal", Type: "bool", Required: true},
		{Name: "search_conducted", Type: "bool", Required: true},
		{Name: "search_disposition", Type: "text"},
		{Name: "search_outcome", Type: "text"},
		{Name: "search_reason", Type: "text"},
		{Name: "state", Type: "text"},
		{Name: "vehicle_type", Type: "text"},
		{Name: "make", Type: "text"},
		{Name: "model", Type: "text"},
		{Name: "color", Type: "text"},
		{Name: "violation_type", Type: "text"},
		{Name: "charge", Type: "text", Required: true, Key: true},
		{Name: "race", Type: "text"},
		{Name: "gender", Type: "text", Required: true},
		{Name: "dl_state", Type: "text"},
	},
}
