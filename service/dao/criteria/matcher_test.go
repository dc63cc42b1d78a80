package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/nucleus/model/accounting"
	"github.com/viant/nucleus/service/dao"
)

func TestMatchRecord(t *testing.T) {
	record := &accounting.Record{PID: 3, ParentPID: 1, Reason: accounting.ReasonKilled, Blocked: true}
	var testCases = []struct {
		description string
		parameters  []*dao.Parameter
		expect      bool
	}{
		{description: "no parameters", expect: true},
		{description: "reason", parameters: []*dao.Parameter{dao.NewParameter(dao.ParamReason, accounting.ReasonKilled)}, expect: true},
		{description: "reason mismatch", parameters: []*dao.Parameter{dao.NewParameter(dao.ParamReason, accounting.ReasonExit)}},
		{description: "reason list", parameters: []*dao.Parameter{dao.NewParameter(dao.ParamReason, accounting.ReasonExit, accounting.ReasonKilled)}, expect: true},
		{description: "parent as string", parameters: []*dao.Parameter{dao.NewParameter(dao.ParamParentPID, "1")}, expect: true},
		{description: "parent as int", parameters: []*dao.Parameter{{Name: dao.ParamParentPID, Value: 1}}, expect: true},
		{description: "parent mismatch", parameters: []*dao.Parameter{{Name: dao.ParamParentPID, Value: 2}}},
		{description: "blocked", parameters: []*dao.Parameter{{Name: dao.ParamBlocked, Value: true}}, expect: true},
		{description: "blocked as string", parameters: []*dao.Parameter{dao.NewParameter(dao.ParamBlocked, "false")}},
		{
			description: "all must match",
			parameters: []*dao.Parameter{
				dao.NewParameter(dao.ParamReason, accounting.ReasonKilled),
				{Name: dao.ParamParentPID, Value: 9},
			},
		},
		{description: "unknown name ignored", parameters: []*dao.Parameter{dao.NewParameter("Color", "red")}, expect: true},
	}
	for _, testCase := range testCases {
		assert.Equal(t, testCase.expect, MatchRecord(record, testCase.parameters), testCase.description)
	}
}
