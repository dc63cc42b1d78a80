// Package criteria evaluates dao.Parameter filters against records.
package criteria

import (
	"strconv"

	"github.com/viant/nucleus/model/accounting"
	"github.com/viant/nucleus/service/dao"
	"github.com/viant/toolbox"
)

// MatchRecord reports whether record satisfies every parameter. A parameter
// value may be a scalar or a slice of alternatives; unknown names are ignored.
func MatchRecord(record *accounting.Record, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		var actual string
		switch parameter.Name {
		case dao.ParamReason:
			actual = record.Reason
		case dao.ParamParentPID:
			actual = strconv.Itoa(record.ParentPID)
		case dao.ParamBlocked:
			actual = strconv.FormatBool(record.Blocked)
		default:
			continue
		}
		if !matches(actual, parameter.Value) {
			return false
		}
	}
	return true
}

func matches(actual string, expected interface{}) bool {
	if !toolbox.IsSlice(expected) {
		return actual == toolbox.AsString(expected)
	}
	for _, candidate := range toolbox.AsSlice(expected) {
		if actual == toolbox.AsString(candidate) {
			return true
		}
	}
	return false
}
