package metrics

import (
	"errors"
)

// Sentinel kinds for metrics errors.
var (
	ErrUnknownOperation = errors.New("metrics unknown operation")
)
