package models

import "time"

type EventKind int

const (
	KindHTTPRequestCompleted EventKind = iota + 1
	KindWorkerSelected
	KindSandboxCreated
	KindFunctionInvoked
)

func (k EventKind) String() string {
	switch k {
	case KindHTTPRequestCompleted:
		return "http_request_completed"
	case KindWorkerSelected:
		return "worker_selected"
	case KindSandboxCreated:
		return "sandbox_created"
	case KindFunctionInvoked:
		return "function_invoked"
	default:
		return "unknown"
	}
}

// Event is one parsed log record. Only the payload fields belonging to Kind are set.
type Event struct {
	Timestamp time.Time
	Kind      EventKind

	// HTTPRequestCompleted
	Status    int
	LatencyMs float64

	// WorkerSelected
	WorkerID   string
	OverheadNs int64
}

// IsSuccessfulRequest reports whether the event is a completed request with status 200.
func (e Event) IsSuccessfulRequest() bool {
	return e.Kind == KindHTTPRequestCompleted && e.Status == 200
}

func (e Event) IsWorkerSelection() bool {
	return e.Kind == KindWorkerSelected
}
