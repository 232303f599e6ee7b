package dao

// StatusParameter is the parameter name List implementations filter on.
const StatusParameter = "Status"

// Parameter is a named List criterion.
type Parameter struct {
	Name  string
	Value interface{}
}

func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}

// WithStatus returns a parameter matching any of the supplied statuses.
func WithStatus(statuses ...string) *Parameter {
	return NewParameter(StatusParameter, statuses...)
}
