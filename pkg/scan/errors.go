package scan

import "errors"

// Scan errors
var (
	// ErrConfig indicates invalid settings at initialisation. Fatal to startup, never retried.
	ErrConfig = errors.New("invalid scan settings")

	// ErrInvalidState indicates an operation invoked out of sequence.
	ErrInvalidState = errors.New("invalid scan state")

	// ErrRadioBusy indicates the radio refused the scan; the caller may retry next period.
	ErrRadioBusy = errors.New("radio busy")

	// ErrRadioFault indicates a non-recoverable hardware error.
	ErrRadioFault = errors.New("radio fault")

	// ErrUnavailable indicates the requested data has not been produced yet.
	ErrUnavailable = errors.New("data unavailable")
)
