package stats

// Censors holds per-coordinate detection flags for a paired sample.
// true marks a detection, false an upper limit. The zero value means
// every point is a detection.
type Censors struct {
	x, y []bool
}

// Uncensored returns flags marking every point as a detection.
func Uncensored() Censors { return Censors{} }

// NewCensors builds flags from one row per coordinate. A nil row means the
// coordinate has no upper limits.
func NewCensors(xDetected, yDetected []bool) Censors {
	if xDetected == nil && yDetected == nil {
		return Censors{}
	}
	return Censors{x: xDetected, y: yDetected}
}

// CensorsFromRows builds flags from a 2xN structure.
func CensorsFromRows(rows [][]bool) (Censors, error) {
	if len(rows) != 2 {
		return Censors{}, &ShapeMismatchError{Field: "censors rows", Want: 2, Got: len(rows)}
	}
	if rows[0] == nil || rows[1] == nil {
		return Censors{}, &MissingParameterError{Param: "censors row"}
	}
	return Censors{x: rows[0], y: rows[1]}, nil
}

// IsUncensored reports whether no flags were supplied.
func (c Censors) IsUncensored() bool { return c.x == nil && c.y == nil }

// Rows returns the flags as a 2xn structure, expanding absent rows to all detections.
func (c Censors) Rows(n int) [][]bool {
	return [][]bool{expand(c.x, n), expand(c.y, n)}
}

// Limits counts the upper limits per coordinate.
func (c Censors) Limits() (x, y int) {
	for _, d := range c.x {
		if !d {
			x++
		}
	}
	for _, d := range c.y {
		if !d {
			y++
		}
	}
	return x, y
}

// Subset returns the flags restricted to idx, in idx order.
func (c Censors) Subset(idx []int) Censors {
	if c.IsUncensored() {
		return c
	}
	return Censors{x: pick(c.x, idx), y: pick(c.y, idx)}
}

// Swap exchanges the x and y rows.
func (c Censors) Swap() Censors { return Censors{x: c.y, y: c.x} }

func (c Censors) validate(n int) error {
	if c.x != nil && len(c.x) != n {
		return &ShapeMismatchError{Field: "censors[x]", Want: n, Got: len(c.x)}
	}
	if c.y != nil && len(c.y) != n {
		return &ShapeMismatchError{Field: "censors[y]", Want: n, Got: len(c.y)}
	}
	return nil
}

// weight returns 1 for a detection and 0 for an upper limit.
func weight(row []bool, i int) int {
	if row == nil || row[i] {
		return 1
	}
	return 0
}

func expand(row []bool, n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = row == nil || (i < len(row) && row[i])
	}
	return out
}

func pick(row []bool, idx []int) []bool {
	if row == nil {
		return nil
	}
	out := make([]bool, len(idx))
	for i, j := range idx {
		out[i] = row[j]
	}
	return out
}
