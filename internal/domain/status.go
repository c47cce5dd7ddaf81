package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// WorkStatus is the lifecycle state of a tracked work item. The set of
// implementations is closed: Pending, Running, Completed and Failed.
type WorkStatus interface {
	fmt.Stringer
	workStatus()
}

type Pending struct{}

type Running struct {
	Progress uint8
}

type Completed struct {
	Message string
}

type Failed struct {
	Code    int32
	Message string
}

func (Pending) workStatus()   {}
func (Running) workStatus()   {}
func (Completed) workStatus() {}
func (Failed) workStatus()    {}

func (Pending) String() string     { return "Pending" }
func (s Running) String() string   { return fmt.Sprintf("Running: %d%%", s.Progress) }
func (s Completed) String() string { return "Completed: " + s.Message }
func (s Failed) String() string    { return fmt.Sprintf("Failed [%d]: %s", s.Code, s.Message) }

// MaxProgress is the upper bound of Running.Progress.
const MaxProgress = 100

// NewRunning validates progress before building a Running status.
func NewRunning(progress uint) (Running, error) {
	if progress > MaxProgress {
		return Running{}, fmt.Errorf("invalid progress %d: must be between 0 and %d", progress, MaxProgress)
	}
	return Running{Progress: uint8(progress)}, nil
}

// Category is the short description Classify assigns to a status.
type Category string

const (
	CategoryWaiting       Category = "waiting"
	CategoryAlmostDone    Category = "almost done"
	CategoryInProgress    Category = "in progress"
	CategoryDone          Category = "done"
	CategoryCriticalError Category = "critical error"
	CategoryError         Category = "error"
)

// Classify maps a status to its category. Guards are checked before the
// unguarded case of the same variant.
func Classify(s WorkStatus) Category {
	switch v := s.(type) {
	case Pending:
		return CategoryWaiting
	case Running:
		if v.Progress > 50 {
			return CategoryAlmostDone
		}
		return CategoryInProgress
	case Completed:
		return CategoryDone
	case Failed:
		if v.Code < 0 {
			return CategoryCriticalError
		}
		return CategoryError
	}
	// nil status; the variant set is sealed by workStatus.
	return ""
}

// State names used on the wire and on the command line.
const (
	StatePending   = "pending"
	StateRunning   = "running"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// StatusEnvelope is the flat JSON form of a WorkStatus.
type StatusEnvelope struct {
	State    string `json:"state" enum:"pending,running,completed,failed"`
	Progress uint   `json:"progress,omitempty" maximum:"100"`
	Code     int32  `json:"code,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ParseStatus builds a WorkStatus from its state name and payload fields.
// Fields that do not belong to the named state are ignored.
func ParseStatus(state string, progress uint, code int32, message string) (WorkStatus, error) {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case StatePending:
		return Pending{}, nil
	case StateRunning:
		return NewRunning(progress)
	case StateCompleted:
		return Completed{Message: message}, nil
	case StateFailed:
		return Failed{Code: code, Message: message}, nil
	default:
		return nil, fmt.Errorf("invalid state %q: want one of %s, %s, %s, %s", state, StatePending, StateRunning, StateCompleted, StateFailed)
	}
}

// Status converts the envelope to a WorkStatus.
func (e StatusEnvelope) Status() (WorkStatus, error) {
	return ParseStatus(e.State, e.Progress, e.Code, e.Message)
}

// Envelope returns the flat form of s.
func Envelope(s WorkStatus) StatusEnvelope {
	switch v := s.(type) {
	case Pending:
		return StatusEnvelope{State: StatePending}
	case Running:
		return StatusEnvelope{State: StateRunning, Progress: uint(v.Progress)}
	case Completed:
		return StatusEnvelope{State: StateCompleted, Message: v.Message}
	case Failed:
		return StatusEnvelope{State: StateFailed, Code: v.Code, Message: v.Message}
	}
	return StatusEnvelope{}
}

// MarshalStatus encodes s as its envelope.
func MarshalStatus(s WorkStatus) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("status nil")
	}
	return json.Marshal(Envelope(s))
}

// UnmarshalStatus decodes an envelope into a WorkStatus.
func UnmarshalStatus(data []byte) (WorkStatus, error) {
	var env StatusEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return env.Status()
}
