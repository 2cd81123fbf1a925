package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names a dataset file encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFor guesses the encoding from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown dataset format for %q", path)
}

// ReadFile loads and validates a dataset. The name defaults to the file's base name.
func ReadFile(path string) (*Dataset, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	d, err := Read(bytes.NewReader(b), format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if d.Name == "" {
		d.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return d, nil
}

// Read decodes and validates a dataset in the given format.
func Read(r io.Reader, format Format) (*Dataset, error) {
	var (
		d   *Dataset
		err error
	)
	switch format {
	case FormatCSV:
		d, err = ReadCSV(r)
	case FormatYAML:
		d = &Dataset{}
		err = yaml.NewDecoder(r).Decode(d)
	case FormatJSON:
		d = &Dataset{}
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		err = dec.Decode(d)
	default:
		return nil, fmt.Errorf("unknown dataset format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// ReadCSV decodes a headed CSV table. Recognised columns are x, y, x_err,
// y_err, x_detected and y_detected; x_limit and y_limit are accepted as the
// negation of the detected columns. Lines starting with # are skipped.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty csv")
		}
		return nil, err
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["x"]; !ok {
		return nil, errors.New("csv header lacks column x")
	}
	if _, ok := cols["y"]; !ok {
		return nil, errors.New("csv header lacks column y")
	}

	d := &Dataset{}
	_, hasXErr := cols["x_err"]
	_, hasYErr := cols["y_err"]
	if hasXErr {
		d.XErr = []float64{}
	}
	if hasYErr {
		d.YErr = []float64{}
	}
	xFlag, xInvert, hasXFlag := flagColumn(cols, "x")
	yFlag, yInvert, hasYFlag := flagColumn(cols, "y")
	if hasXFlag {
		d.XDetected = []bool{}
	}
	if hasYFlag {
		d.YDetected = []bool{}
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		num := func(col string) (float64, error) {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[cols[col]]), 64)
			if err != nil {
				return 0, fmt.Errorf("line %d column %s: %w", line, col, err)
			}
			return v, nil
		}
		x, err := num("x")
		if err != nil {
			return nil, err
		}
		y, err := num("y")
		if err != nil {
			return nil, err
		}
		d.X = append(d.X, x)
		d.Y = append(d.Y, y)
		if hasXErr {
			v, err := num("x_err")
			if err != nil {
				return nil, err
			}
			d.XErr = append(d.XErr, v)
		}
		if hasYErr {
			v, err := num("y_err")
			if err != nil {
				return nil, err
			}
			d.YErr = append(d.YErr, v)
		}
		if hasXFlag {
			b, err := parseFlag(rec[xFlag])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			d.XDetected = append(d.XDetected, b != xInvert)
		}
		if hasYFlag {
			b, err := parseFlag(rec[yFlag])
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			d.YDetected = append(d.YDetected, b != yInvert)
		}
	}
	return d, nil
}

func flagColumn(cols map[string]int, coord string) (idx int, invert, ok bool) {
	if i, found := cols[coord+"_detected"]; found {
		return i, false, true
	}
	if i, found := cols[coord+"_limit"]; found {
		return i, true, true
	}
	return 0, false, false
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes", "y":
		return true, nil
	case "0", "false", "f", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("invalid flag %q", s)
}

// WriteJSON encodes d with indentation.
func WriteJSON(w io.Writer, d *Dataset) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}
