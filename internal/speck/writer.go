// Package speck serializes point clouds into the line-oriented speck and
// label formats the visualization platform loads. Output is deterministic
// and preserves input record order.
package speck

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"speckgen/internal/points"
)

// datavars is the fixed column layout of a stars speck file. The platform
// maps these names through the asset's DataMapping block, so order and
// spelling are load-bearing.
var datavars = []string{
	"colorb_v", "lum", "absmag", "appmag", "texnum", "distly",
	"dcalc", "plx", "plxerr", "vx", "vy", "vz", "speed",
}

// StarParams are the per-dataset constants stamped onto every record line.
type StarParams struct {
	ColorBV float64
	Lum     float64
	AbsMag  float64
	Texture string // halo texture filename referenced from the header
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteStars writes the speck file for cloud: the datavar header followed
// by one space-delimited line per record. An empty cloud yields a
// header-only file, not an error.
func WriteStars(w io.Writer, cloud *points.Cloud, p StarParams) error {
	bw := bufio.NewWriter(w)

	for i, name := range datavars {
		fmt.Fprintf(bw, "datavar %d %s\n", i, name)
	}
	fmt.Fprintln(bw, "texturevar 4")
	fmt.Fprintf(bw, "texture -M 1 %s\n", p.Texture)

	// Only colorb_v, lum and absmag carry real values; the remaining
	// datavars are placeholders the platform still expects to see.
	for _, rec := range cloud.Records {
		fmt.Fprintf(bw, "%s %s %s %s %s %s 0 0 0 0 0 0 0 0 0 0\n",
			fmtFloat(rec.Pos.X), fmtFloat(rec.Pos.Y), fmtFloat(rec.Pos.Z),
			fmtFloat(p.ColorBV), fmtFloat(p.Lum), fmtFloat(p.AbsMag))
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write speck data: %w", err)
	}
	return nil
}

// WriteLabels writes the label file for cloud, one
// "x y z id <ID> text <label>" line per record, taking the label text from
// the named column. Records with a blank label are skipped; the count of
// skipped records is returned so the caller can warn about them.
func WriteLabels(w io.Writer, cloud *points.Cloud, column string) (skipped int, err error) {
	bw := bufio.NewWriter(w)

	for _, rec := range cloud.Records {
		text := rec.Field(column)
		if text == "" {
			skipped++
			continue
		}
		fmt.Fprintf(bw, "%s %s %s id %s text %s\n",
			fmtFloat(rec.Pos.X), fmtFloat(rec.Pos.Y), fmtFloat(rec.Pos.Z),
			rec.ID, text)
	}

	if err := bw.Flush(); err != nil {
		return skipped, fmt.Errorf("write label data: %w", err)
	}
	return skipped, nil
}
