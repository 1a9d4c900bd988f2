package tensor

import (
	"errors"

	"github.com/born-ml/dagrad/internal/memory"
)

// Error taxonomy shared by the tensor, graph and operator packages.
// Callers match them with errors.Is; the wrapped message carries the details.
var (
	// ErrShape reports incompatible dimensions, batch sizes or axis bounds.
	ErrShape = errors.New("shape error")

	// ErrInvalidReference reports use of an invalid tensor or node, or an unset default.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrAllocation reports that a device pool could not satisfy a request.
	ErrAllocation = memory.ErrAllocation

	// ErrDeviceMismatch reports operands living on different devices.
	ErrDeviceMismatch = errors.New("device mismatch")
)
