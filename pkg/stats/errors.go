package stats

import "fmt"

// ShapeMismatchError reports an array whose length disagrees with the sample size.
type ShapeMismatchError struct {
	Field string
	Want  int
	Got   int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("shape mismatch: %s has length %d, want %d", e.Field, e.Got, e.Want)
}

// InsufficientDataError reports a sample with fewer than two points.
type InsufficientDataError struct {
	N int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: need at least 2 points, got %d", e.N)
}

// MissingParameterError reports an input that the chosen method requires.
type MissingParameterError struct {
	Param  string
	Method Method
}

func (e *MissingParameterError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("missing parameter: %s", e.Param)
	}
	return fmt.Sprintf("missing parameter: %s is required by method %q", e.Param, e.Method)
}

// UnsupportedMethodError reports an unknown resampling method or bootstrap mode.
type UnsupportedMethodError struct {
	Method string
}

func (e *UnsupportedMethodError) Error() string {
	return fmt.Sprintf("unsupported method %q", e.Method)
}

// InvalidParameterError reports a value outside its admissible range.
type InvalidParameterError struct {
	Param  string
	Value  any
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid %s=%v: %s", e.Param, e.Value, e.Reason)
}
