package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantilesLinear(t *testing.T) {
	values := []float64{4, 1, 3, 2, 5}
	q := Quantiles(values, 0, 0.25, 0.5, 0.1, 1)
	assert.InDeltaSlice(t, []float64{1, 2, 3, 1.4, 5}, q, 1e-12)
	// input untouched
	assert.Equal(t, []float64{4, 1, 3, 2, 5}, values)

	q = Quantiles([]float64{0, 10}, 0.1587, 0.5, 0.8413)
	assert.InDeltaSlice(t, []float64{1.587, 5, 8.413}, q, 1e-9)
}

func TestQuantilesEdges(t *testing.T) {
	q := Quantiles(nil, 0.5)
	assert.True(t, math.IsNaN(q[0]))

	q = Quantiles([]float64{7}, 0.1, 0.9)
	assert.Equal(t, []float64{7, 7}, q)

	q = Quantiles([]float64{1, 2}, -1, 2)
	assert.Equal(t, []float64{1, 2}, q)
}
