// Package points reads per-dataset CSV files into point clouds. Each row
// carries an ID, an x/y/z position in parsecs, and any number of extra
// text columns (taxonomic names at various ranks) used for labeling.
package points

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Vec3 is a position or offset in the dataset's coordinate frame.
type Vec3 struct {
	X, Y, Z float64
}

// Neg returns the componentwise negation of v.
func (v Vec3) Neg() Vec3 {
	return Vec3{-v.X, -v.Y, -v.Z}
}

// Record is one row of a data CSV. The first CSV column is always treated
// as the record ID, whatever its header says. Remaining non-coordinate
// columns are kept as raw strings keyed by header name.
type Record struct {
	ID     string
	Pos    Vec3
	Fields map[string]string
}

// Field returns the named extra column, or "" if the row has no value.
func (r Record) Field(name string) string {
	return r.Fields[name]
}

// Cloud is an ordered, immutable-once-read set of records from one CSV.
type Cloud struct {
	Path    string
	Columns []string
	Records []Record
}

// RowError reports a skipped data row.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

// Read parses the CSV at path into a Cloud. Rows with blank or unparseable
// coordinates are skipped and reported via the returned RowErrors; they are
// never coerced to zero. The error return is non-nil only when the file
// itself cannot be read or has no usable header.
func Read(path string) (*Cloud, []RowError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	xi, xok := col["x"]
	yi, yok := col["y"]
	zi, zok := col["z"]
	if !xok || !yok || !zok {
		return nil, nil, fmt.Errorf("%s: header missing x/y/z columns", path)
	}

	cloud := &Cloud{Path: path, Columns: header}
	var rowErrs []RowError

	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			// Malformed CSV rows are skipped, not fatal.
			rowErrs = append(rowErrs, RowError{Line: perr.Line, Err: err})
			continue
		}
		if err != nil {
			return nil, rowErrs, fmt.Errorf("read %s: %w", path, err)
		}

		// Quoted fields can span lines, so the file line comes from the
		// record's position, not a record counter.
		line, _ := r.FieldPos(0)
		pos, err := parsePos(fields, xi, yi, zi)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: err})
			continue
		}

		rec := Record{
			ID:     fields[0],
			Pos:    pos,
			Fields: make(map[string]string, len(header)),
		}
		for i, name := range header {
			if i == 0 || i == xi || i == yi || i == zi || i >= len(fields) {
				continue
			}
			rec.Fields[strings.TrimSpace(name)] = fields[i]
		}
		cloud.Records = append(cloud.Records, rec)
	}

	return cloud, rowErrs, nil
}

func parsePos(fields []string, xi, yi, zi int) (Vec3, error) {
	var pos Vec3
	for _, c := range []struct {
		idx  int
		name string
		dst  *float64
	}{{xi, "x", &pos.X}, {yi, "y", &pos.Y}, {zi, "z", &pos.Z}} {
		if c.idx >= len(fields) || strings.TrimSpace(fields[c.idx]) == "" {
			return pos, fmt.Errorf("blank %s coordinate", c.name)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[c.idx]), 64)
		if err != nil {
			return pos, fmt.Errorf("bad %s coordinate %q", c.name, fields[c.idx])
		}
		*c.dst = v
	}
	return pos, nil
}

// Centroid returns the mean position of all records, or the origin for an
// empty cloud.
func (c *Cloud) Centroid() Vec3 {
	if len(c.Records) == 0 {
		return Vec3{}
	}
	var sum Vec3
	for _, r := range c.Records {
		sum.X += r.Pos.X
		sum.Y += r.Pos.Y
		sum.Z += r.Pos.Z
	}
	n := float64(len(c.Records))
	return Vec3{sum.X / n, sum.Y / n, sum.Z / n}
}

// Translate shifts every record by v. Recentering a cloud at the origin is
// Translate(Centroid().Neg()); the asset's scene-graph translation carries
// the points back to world coordinates.
func (c *Cloud) Translate(v Vec3) {
	for i := range c.Records {
		c.Records[i].Pos.X += v.X
		c.Records[i].Pos.Y += v.Y
		c.Records[i].Pos.Z += v.Z
	}
}
