package deepface

import "errors"

var (
	// ErrServiceUnavailable means every attempt to reach the analysis
	// service failed.
	ErrServiceUnavailable = errors.New("deepface: service unavailable")
	// ErrInvalidResponse means the service answered with a body that does
	// not decode as an analysis result.
	ErrInvalidResponse = errors.New("deepface: invalid response")
)
