package exchange

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a run failure; it doubles as the machine code surfaced
// through the HTTP trigger.
type ErrorKind string

const (
	KindDiscovery   ErrorKind = "discovery_error"
	KindParse       ErrorKind = "parse_error"
	KindPersistence ErrorKind = "persistence_error"
	KindAsset       ErrorKind = "asset_error"
)

// RunError is a tenant-scoped pipeline failure. One tenant's RunError never
// affects other tenants' runs.
type RunError struct {
	Kind ErrorKind
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// KindOf extracts the machine code from an error, defaulting to a generic
// persistence kind for untyped failures.
func KindOf(err error) ErrorKind {
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr.Kind
	}
	return KindPersistence
}

// Status is the user-visible outcome of one tenant run.
type Status string

const (
	// StatusSuccess covers completed runs, including "nothing to do".
	StatusSuccess Status = "success"
	// StatusProgress means another run holds the tenant's folder lock.
	StatusProgress Status = "progress"
	// StatusError carries a machine code in RunResult.Code.
	StatusError Status = "error"
	// StatusSkipped marks an orphaned folder with no matching company; the
	// folder is left in place for external cleanup.
	StatusSkipped Status = "skipped"
)

// RunResult reports one tenant run's terminal outcome.
type RunResult struct {
	CompanyID uint
	Status    Status
	Code      ErrorKind
	Err       error
	Products  int
}
