// Package progress keeps aggregated nucleus activity counters that can be
// observed while the run loop is executing.
package progress
