package dao

// Parameter names understood by List filters.
const (
	ParamReason    = "Reason"
	ParamParentPID = "ParentPID"
	ParamBlocked   = "Blocked"
)

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
