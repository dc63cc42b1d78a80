// Package accounting holds the stores of terminated process records.
package accounting

import (
	"sort"

	"github.com/viant/nucleus/model/accounting"
)

// SortByPID orders records by PID, which is also creation order.
func SortByPID(records []*accounting.Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].PID < records[j].PID })
}
