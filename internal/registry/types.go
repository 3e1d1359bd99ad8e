package registry

import "context"

// Device is a registry record keyed by serial.
type Device struct {
	Serial    string
	Pole      string
	Latitude  float64
	Longitude float64
	GatewayID int
	TypeID    int
}

// CreateStatus tags the outcome of Registry.Create.
type CreateStatus int

const (
	// CreateCreated means a new device record was written.
	CreateCreated CreateStatus = iota
	// CreateConflict means a device with this serial already exists.
	CreateConflict
	// CreateFailed means the call failed for any other reason.
	CreateFailed
)

func (s CreateStatus) String() string {
	switch s {
	case CreateCreated:
		return "created"
	case CreateConflict:
		return "conflict"
	default:
		return "failed"
	}
}

// CreateResult is the tagged result of Registry.Create.
// Err is set only when Status is CreateFailed.
type CreateResult struct {
	Status CreateStatus
	Detail string
	Err    error
}

// Created builds a CreateCreated result.
func Created() CreateResult {
	return CreateResult{Status: CreateCreated}
}

// Conflict builds a CreateConflict result.
func Conflict(detail string) CreateResult {
	return CreateResult{Status: CreateConflict, Detail: detail}
}

// Failed builds a CreateFailed result from err.
func Failed(err error) CreateResult {
	return CreateResult{Status: CreateFailed, Detail: err.Error(), Err: err}
}

// Registry is the set of device operations the reconciler needs.
type Registry interface {
	Create(ctx context.Context, d Device) CreateResult
	Update(ctx context.Context, serial string, d Device) error
	Delete(ctx context.Context, serial string) error
	AssociateToGroup(ctx context.Context, serial string, groupID int) error
}

// Logger defines the logging interface used by the client.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
