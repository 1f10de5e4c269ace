package expanders360

import "github.com/ahmedoothman/expanders360-api/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound          = domain.ErrNotFound
	ErrInvalidInput      = domain.ErrInvalidInput
	ErrStoreFailure      = domain.ErrStoreFailure
	ErrSearchUnavailable = domain.ErrSearchUnavailable
)
