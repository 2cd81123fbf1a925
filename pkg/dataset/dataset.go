package dataset

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/yasi-python/censtau/pkg/stats"
)

var nameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ErrInvalidName is wrapped by ValidName failures.
var ErrInvalidName = errors.New("invalid dataset name")

// Dataset is a paired sample with optional per-point errors and detection flags.
// A nil XDetected or YDetected means every value of that coordinate is a detection.
type Dataset struct {
	Name      string    `json:"name,omitempty" yaml:"name,omitempty"`
	X         []float64 `json:"x" yaml:"x"`
	Y         []float64 `json:"y" yaml:"y"`
	XErr      []float64 `json:"x_err,omitempty" yaml:"x_err,omitempty"`
	YErr      []float64 `json:"y_err,omitempty" yaml:"y_err,omitempty"`
	XDetected []bool    `json:"x_detected,omitempty" yaml:"x_detected,omitempty"`
	YDetected []bool    `json:"y_detected,omitempty" yaml:"y_detected,omitempty"`
}

func (d *Dataset) Len() int { return len(d.X) }

func (d *Dataset) Censors() stats.Censors {
	return stats.NewCensors(d.XDetected, d.YDetected)
}

func (d *Dataset) HasErrors() bool { return d.XErr != nil && d.YErr != nil }

// Validate checks that every array matches len(X) and that there are at least two points.
func (d *Dataset) Validate() error {
	n := len(d.X)
	if len(d.Y) != n {
		return &stats.ShapeMismatchError{Field: "y", Want: n, Got: len(d.Y)}
	}
	if n < 2 {
		return &stats.InsufficientDataError{N: n}
	}
	for _, f := range []struct {
		name string
		got  int
		set  bool
	}{
		{"x_err", len(d.XErr), d.XErr != nil},
		{"y_err", len(d.YErr), d.YErr != nil},
		{"x_detected", len(d.XDetected), d.XDetected != nil},
		{"y_detected", len(d.YDetected), d.YDetected != nil},
	} {
		if f.set && f.got != n {
			return &stats.ShapeMismatchError{Field: f.name, Want: n, Got: f.got}
		}
	}
	return nil
}

// ValidName reports whether name can key a stored dataset.
func ValidName(name string) error {
	if !nameRe.MatchString(name) {
		return fmt.Errorf("%w %q", ErrInvalidName, name)
	}
	return nil
}
