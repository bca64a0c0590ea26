package geocoder

import (
	"errors"
	"fmt"
)

// Sentinel kinds for lookup failures. Resolve turns all of them into an
// unresolved result; they exist for logging and metrics.
var (
	ErrNoResults   = errors.New("geocoder: no results")
	ErrStatus      = errors.New("geocoder: unexpected status")
	ErrMalformed   = errors.New("geocoder: malformed response")
	ErrTransport   = errors.New("geocoder: transport failure")
	ErrPacing      = errors.New("geocoder: pacing wait failed")
	ErrRateLimited = fmt.Errorf("%w: rate limited", ErrStatus)
)
