// Package dataset parses the top-level dataset CSV that drives a
// conversion run. Each row is a Directive: one source data file plus the
// parameters controlling what gets generated for it (a star cloud, a label
// set, or an anchor node).
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"speckgen/internal/transform"
)

// Kind selects what a directive generates.
type Kind string

const (
	KindStars  Kind = "stars"
	KindLabels Kind = "labels"
	KindAnchor Kind = "anchor"
)

func parseKind(s string) (Kind, error) {
	// Singular spellings show up in hand-edited dataset files.
	switch strings.TrimSpace(s) {
	case "stars", "star":
		return KindStars, nil
	case "labels", "label":
		return KindLabels, nil
	case "anchor":
		return KindAnchor, nil
	default:
		return "", fmt.Errorf("unknown type %q (want stars, labels or anchor)", s)
	}
}

// ChannelParams are the multiplier/gamma/scale triple for one star render
// channel (core or glare).
type ChannelParams struct {
	Multiplier float64
	Gamma      float64
	Scale      float64
}

// Defaults supplies values for optional directive columns that a row
// leaves blank. They come from the config layer.
type Defaults struct {
	MagnitudeExponent float64
	Core              ChannelParams
	Glare             ChannelParams
	LabelSize         float64
	LabelMinSize      float64
	LabelMaxSize      float64
}

// Directive is one validated row of the dataset CSV. CSVFile is resolved
// relative to the dataset file's directory and verified to exist.
type Directive struct {
	Line    int
	CSVFile string
	Kind    Kind

	// Stars parameters. AbsMag is derived from Lum when the column is
	// blank.
	Lum               float64
	AbsMag            float64
	ColorBV           float64
	MagnitudeExponent float64
	Core              ChannelParams
	Glare             ChannelParams

	// Labels parameters.
	LabelColumn  string
	LabelSize    float64
	LabelMinSize float64
	LabelMaxSize float64
	Enabled      bool

	// Anchor parameters. FadeTarget is an asset name reference only; it
	// is never resolved or validated against other assets at generation
	// time.
	FadeTarget string
}

// RowError reports a malformed or unusable directive row. The row is
// skipped; the rest of the dataset file still processes.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("directive row %d: %v", e.Line, e.Err)
}

// row gives named access to one CSV record.
type row struct {
	line   int
	col    map[string]int
	fields []string
}

func (r row) str(name string) string {
	i, ok := r.col[name]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// float parses a numeric column. ok is false when the column is absent or
// blank; err is non-nil when a value is present but not a number.
func (r row) float(name string) (v float64, ok bool, err error) {
	s := r.str(name)
	if s == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("column %s: bad number %q", name, s)
	}
	return v, true, nil
}

func (r row) floatOr(name string, def float64) (float64, error) {
	v, ok, err := r.float(name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return def, nil
	}
	return v, nil
}

// Read parses the dataset CSV at path. Lines starting with '#' are
// comments. Invalid rows are reported through the returned RowErrors and
// skipped; the error return is non-nil only when the file itself cannot be
// read.
func Read(path string, def Defaults) ([]Directive, []RowError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open dataset file: %w", err)
	}
	defer f.Close()

	baseDir := filepath.Dir(path)

	r := csv.NewReader(f)
	r.Comment = '#'
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}

	var (
		directives []Directive
		rowErrs    []RowError
	)
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			rowErrs = append(rowErrs, RowError{Line: perr.Line, Err: err})
			continue
		}
		if err != nil {
			return directives, rowErrs, fmt.Errorf("read %s: %w", path, err)
		}

		// The reader skips comment lines internally, so the file line has
		// to come from the record's position, not a record counter.
		line, _ := r.FieldPos(0)
		d, err := parseDirective(row{line: line, col: col, fields: fields}, baseDir, def)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: err})
			continue
		}
		directives = append(directives, d)
	}

	return directives, rowErrs, nil
}

func parseDirective(r row, baseDir string, def Defaults) (Directive, error) {
	var d Directive
	d.Line = r.line

	kind, err := parseKind(r.str("type"))
	if err != nil {
		return d, err
	}
	d.Kind = kind

	src := r.str("csv_file")
	if src == "" {
		return d, errors.New("csv_file is required")
	}
	if !filepath.IsAbs(src) {
		src = filepath.Join(baseDir, src)
	}
	if _, err := os.Stat(src); err != nil {
		return d, fmt.Errorf("source file %s: %w", src, err)
	}
	d.CSVFile = src

	switch d.Kind {
	case KindStars:
		return parseStars(r, d, def)
	case KindLabels:
		return parseLabels(r, d, def)
	case KindAnchor:
		d.FadeTarget = r.str("fade_target")
		return d, nil
	}
	return d, nil
}

func parseStars(r row, d Directive, def Defaults) (Directive, error) {
	lum, ok, err := r.float("lum")
	if err != nil {
		return d, err
	}
	if !ok {
		return d, errors.New("stars row needs a lum value")
	}
	if lum <= 0 {
		return d, fmt.Errorf("lum must be positive, got %v", lum)
	}
	d.Lum = lum

	absmag, ok, err := r.float("absmag")
	if err != nil {
		return d, err
	}
	if ok {
		d.AbsMag = absmag
	} else {
		d.AbsMag = transform.AbsMagFromLuminosity(lum)
	}

	if d.ColorBV, err = r.floatOr("colorb_v", 0); err != nil {
		return d, err
	}
	if d.MagnitudeExponent, err = r.floatOr("MagnitudeExponent", def.MagnitudeExponent); err != nil {
		return d, err
	}
	if d.Core, err = parseChannel(r, "core", def.Core); err != nil {
		return d, err
	}
	if d.Glare, err = parseChannel(r, "glare", def.Glare); err != nil {
		return d, err
	}
	return d, nil
}

func parseChannel(r row, prefix string, def ChannelParams) (ChannelParams, error) {
	var (
		p   ChannelParams
		err error
	)
	if p.Multiplier, err = r.floatOr(prefix+"_multiplier", def.Multiplier); err != nil {
		return p, err
	}
	if p.Gamma, err = r.floatOr(prefix+"_gamma", def.Gamma); err != nil {
		return p, err
	}
	if p.Scale, err = r.floatOr(prefix+"_scale", def.Scale); err != nil {
		return p, err
	}
	return p, nil
}

func parseLabels(r row, d Directive, def Defaults) (Directive, error) {
	d.LabelColumn = r.str("label_column")
	if d.LabelColumn == "" {
		return d, errors.New("labels row needs a label_column")
	}

	var err error
	if d.LabelSize, err = r.floatOr("label_size", def.LabelSize); err != nil {
		return d, err
	}
	if d.LabelMinSize, err = r.floatOr("label_minsize", def.LabelMinSize); err != nil {
		return d, err
	}
	if d.LabelMaxSize, err = r.floatOr("label_maxsize", def.LabelMaxSize); err != nil {
		return d, err
	}

	// The dataset CSV uses 1/0 for the enabled flag; tolerate true/false
	// spellings too.
	switch strings.ToLower(r.str("enabled")) {
	case "1", "true":
		d.Enabled = true
	case "", "0", "false":
		d.Enabled = false
	default:
		return d, fmt.Errorf("column enabled: bad flag %q", r.str("enabled"))
	}
	return d, nil
}
