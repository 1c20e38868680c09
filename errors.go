package flux

import "errors"

var (
	ErrNilModel         = errors.New("flux: model is required")
	ErrNotState         = errors.New("flux: value is not a managed state")
	ErrUnknownMethod    = errors.New("flux: unknown method")
	ErrSnapshotFrozen   = errors.New("flux: snapshot is read-only")
	ErrInjectedReadOnly = errors.New("flux: injected field is read-only")
	ErrNoEvaluator      = errors.New("flux: evaluator not configured")
)
