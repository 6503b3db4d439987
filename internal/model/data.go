package model

// ResponseTable is the tabular payload returned by the analytics API
type ResponseTable struct {
	Columns []string `json:"columns"`
	Units   []string `json:"units"`
	Rows    [][]any  `json:"rows"`
}

// Unit returns the unit of column i, or "" when none is declared
func (t ResponseTable) Unit(i int) string {
	if i < 0 || i >= len(t.Units) {
		return ""
	}
	return t.Units[i]
}

// Field is one named, formatted value of an export record
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ExportRecord is one transformed row tagged with its owning application
type ExportRecord struct {
	AppID   string  `json:"app_id"`
	AppName string  `json:"app_name"`
	Fields  []Field `json:"fields"`
}

// Get returns the value of the named field
func (r ExportRecord) Get(name string) (string, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Names returns the field names in record order
func (r ExportRecord) Names() []string {
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		names[i] = f.Name
	}
	return names
}

// Values returns the field values in record order
func (r ExportRecord) Values() []string {
	values := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		values[i] = f.Value
	}
	return values
}
