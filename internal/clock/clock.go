// Package clock provides the wall clock used for accounting timestamps and
// message metadata. The nucleus itself only reads the machine TOD.
package clock

import "time"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now returns NowFunc() in UTC.
func Now() time.Time { return NowFunc().UTC() }
