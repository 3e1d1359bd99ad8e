package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/assetsync/internal/asset"
)

// Operation names a side-effecting call.
type Operation string

const (
	OpZoneResolve    Operation = "zone_resolve"
	OpFixtureInsert  Operation = "fixture_insert"
	OpFixtureUpdate  Operation = "fixture_update"
	OpFixtureCommit  Operation = "fixture_commit"
	OpFixtureDelete  Operation = "fixture_delete"
	OpRegistryCreate Operation = "registry_create"
	OpRegistryUpdate Operation = "registry_update"
	OpRegistryDelete Operation = "registry_delete"
	OpAssociate      Operation = "registry_associate"
)

// StepStatus is the result of one call.
type StepStatus string

const (
	StepSuccess StepStatus = "success"
	StepFailed  StepStatus = "failed"
)

// StepOutcome records one side-effecting call.
type StepOutcome struct {
	Operation Operation  `json:"operation"`
	Serial    string     `json:"serial"`
	Status    StepStatus `json:"status"`
	Detail    string     `json:"detail,omitempty"`
}

func (s StepOutcome) String() string {
	if s.Detail == "" {
		return fmt.Sprintf("%s %s: %s", s.Operation, s.Serial, s.Status)
	}
	return fmt.Sprintf("%s %s: %s (%s)", s.Operation, s.Serial, s.Status, s.Detail)
}

// Status is the overall result of a run.
type Status string

const (
	// StatusPass means the new serial was established and every later step succeeded.
	StatusPass Status = "pass"
	// StatusPartial means the new serial was established but association or retirement failed.
	StatusPartial Status = "partial"
	// StatusFailed means the new serial was not established.
	StatusFailed Status = "failed"
)

// Report is the ordered record of one reconciliation.
type Report struct {
	RunID          string            `json:"run_id"`
	Serial         string            `json:"serial"`
	PreviousSerial string            `json:"previous_serial,omitempty"`
	Class          asset.DeviceClass `json:"class"`
	Status         Status            `json:"status"`
	Reason         string            `json:"reason,omitempty"`
	Steps          []StepOutcome     `json:"steps"`
	StartedAt      time.Time         `json:"started_at"`
	FinishedAt     time.Time         `json:"finished_at"`
}

// Duration is how long the run took.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failed reports how many steps failed.
func (r *Report) Failed() int {
	n := 0
	for _, s := range r.Steps {
		if s.Status == StepFailed {
			n++
		}
	}
	return n
}

// Step returns the first outcome for op and serial.
func (r *Report) Step(op Operation, serial string) (StepOutcome, bool) {
	for _, s := range r.Steps {
		if s.Operation == op && s.Serial == serial {
			return s, true
		}
	}
	return StepOutcome{}, false
}

func (r *Report) record(op Operation, serial string, err error, detail string) {
	s := StepOutcome{Operation: op, Serial: serial, Status: StepSuccess, Detail: detail}
	if err != nil {
		s.Status = StepFailed
		s.Detail = err.Error()
		if detail != "" {
			s.Detail = detail + ": " + err.Error()
		}
	}
	r.Steps = append(r.Steps, s)
}

func (r *Report) addReason(reason string) {
	if r.Reason == "" {
		r.Reason = reason
		return
	}
	r.Reason += "; " + reason
}

// finish sets the overall status from whether establishment succeeded.
func (r *Report) finish(established bool, at time.Time) {
	r.FinishedAt = at
	switch {
	case !established:
		r.Status = StatusFailed
	case r.Failed() > 0 || r.Reason != "":
		r.Status = StatusPartial
	default:
		r.Status = StatusPass
	}
}

// Summary renders the report for humans, one step per line.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "status: %s\n", r.Status)
	fmt.Fprintf(&b, "class: %s\n", r.Class)
	if r.Reason != "" {
		fmt.Fprintf(&b, "reason: %s\n", r.Reason)
	}
	for _, s := range r.Steps {
		b.WriteString(s.String())
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "run: %s", r.RunID)
	return b.String()
}
