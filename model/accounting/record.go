// Package accounting defines the record the nucleus keeps for every
// terminated process.
package accounting

import "time"

// Termination reasons
const (
	ReasonExit        = "exit"        // service 2
	ReasonKilled      = "killed"      // ancestor terminated
	ReasonUnhandled   = "unhandled"   // no vector registered for the exception
	ReasonBadVector   = "badVector"   // invalid or repeated service 5
	ReasonPrivileged  = "privileged"  // user mode privileged service
	ReasonBadArgument = "badArgument" // invalid service 8 arguments
)

// Record describes a terminated process.
type Record struct {
	PID        int       `json:"pid"`
	ParentPID  int       `json:"parentPid,omitempty"`
	CPUTime    uint64    `json:"cpuTime"`
	Reason     string    `json:"reason"`
	Blocked    bool      `json:"blocked,omitempty"`
	SemAddr    uint32    `json:"semAddr,omitempty"`
	Terminated time.Time `json:"terminated"`
}
