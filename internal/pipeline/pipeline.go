// Package pipeline runs the full conversion: dataset directives in,
// speck/label/asset files out, stale cache entries flushed, results
// installed into the asset directory. Fully synchronous; one run is one
// short-lived batch job.
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"speckgen/internal/asset"
	"speckgen/internal/cache"
	"speckgen/internal/config"
	"speckgen/internal/dataset"
	"speckgen/internal/points"
	"speckgen/internal/speck"
)

// Options configures a run.
type Options struct {
	DatasetPath string
	CacheDir    string
	AssetDir    string
	Config      *config.Config
	Logger      *zap.Logger
}

// Result summarizes what a run produced.
type Result struct {
	RunID             string
	Created           []string // generated files, in generation order
	SkippedDirectives int      // invalid directive rows
	SkippedRows       int      // invalid or unlabeled data rows
}

func (o *Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o *Options) defaults() dataset.Defaults {
	c := o.Config
	return dataset.Defaults{
		MagnitudeExponent: c.Render.MagnitudeExponent,
		Core: dataset.ChannelParams{
			Multiplier: c.Render.Core.Multiplier,
			Gamma:      c.Render.Core.Gamma,
			Scale:      c.Render.Core.Scale,
		},
		Glare: dataset.ChannelParams{
			Multiplier: c.Render.Glare.Multiplier,
			Gamma:      c.Render.Glare.Gamma,
			Scale:      c.Render.Glare.Scale,
		},
		LabelSize:    c.Labels.Size,
		LabelMinSize: c.Labels.MinSize,
		LabelMaxSize: c.Labels.MaxSize,
	}
}

// Run executes the pipeline once. Invalid rows are skipped with a warning;
// an I/O failure is fatal for the file it hit but the remaining directives
// and files are still attempted, with the failures joined into the
// returned error.
func Run(opts Options) (*Result, error) {
	runID := uuid.NewString()
	log := opts.logger().With(zap.String("run_id", runID))
	res := &Result{RunID: runID}

	directives, rowErrs, err := dataset.Read(opts.DatasetPath, opts.defaults())
	if err != nil {
		return nil, err
	}
	logRowErrors(log, rowErrs)
	res.SkippedDirectives = len(rowErrs)

	var errs []error
	for _, d := range directives {
		created, skipped, err := convert(d, opts.Config, log)
		res.Created = append(res.Created, created...)
		res.SkippedRows += skipped
		if err != nil {
			log.Error("directive failed",
				zap.Int("row", d.Line),
				zap.String("source", d.CSVFile),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("directive row %d: %w", d.Line, err))
		}
	}

	// The platform prefers cached copies over fresh files, so flush the
	// stale ones before installing.
	cache.Flush(opts.CacheDir, res.Created, log)

	if err := cache.Install(opts.AssetDir, res.Created, log); err != nil {
		errs = append(errs, err)
	}

	log.Info("run complete",
		zap.Int("directives", len(directives)),
		zap.Int("files", len(res.Created)),
		zap.Int("skipped_directives", res.SkippedDirectives),
		zap.Int("skipped_rows", res.SkippedRows))

	return res, errors.Join(errs...)
}

// Validate parses the dataset file and every referenced data file without
// writing anything. The Result carries the skip counts; the error return
// is non-nil only when the dataset file itself is unreadable.
func Validate(opts Options) (*Result, error) {
	log := opts.logger()
	res := &Result{}

	directives, rowErrs, err := dataset.Read(opts.DatasetPath, opts.defaults())
	if err != nil {
		return nil, err
	}
	logRowErrors(log, rowErrs)
	res.SkippedDirectives = len(rowErrs)

	for _, d := range directives {
		cloud, dataErrs, err := points.Read(d.CSVFile)
		if err != nil {
			log.Warn("data file unreadable",
				zap.Int("row", d.Line),
				zap.String("source", d.CSVFile),
				zap.Error(err))
			res.SkippedDirectives++
			continue
		}
		for _, re := range dataErrs {
			log.Warn("skipping data row",
				zap.String("source", d.CSVFile),
				zap.Int("row", re.Line),
				zap.Error(re.Err))
		}
		res.SkippedRows += len(dataErrs)

		if d.Kind == dataset.KindLabels {
			for _, rec := range cloud.Records {
				if rec.Field(d.LabelColumn) == "" {
					res.SkippedRows++
				}
			}
		}
	}
	return res, nil
}

func logRowErrors(log *zap.Logger, rowErrs []dataset.RowError) {
	for _, re := range rowErrs {
		log.Warn("skipping directive row", zap.Int("row", re.Line), zap.Error(re.Err))
	}
}

// convert handles one directive, returning the files it created.
func convert(d dataset.Directive, cfg *config.Config, log *zap.Logger) (created []string, skipped int, err error) {
	cloud, dataErrs, err := points.Read(d.CSVFile)
	if err != nil {
		return nil, 0, err
	}
	for _, re := range dataErrs {
		log.Warn("skipping data row",
			zap.String("source", d.CSVFile),
			zap.Int("row", re.Line),
			zap.Error(re.Err))
	}
	skipped = len(dataErrs)

	base := strings.TrimSuffix(filepath.Base(d.CSVFile), filepath.Ext(d.CSVFile))
	dir := filepath.Dir(d.CSVFile)

	// The anchor points at the world-space centroid; stars and labels are
	// recentered at the origin and the asset's translation carries them
	// back.
	centroid := cloud.Centroid()
	if d.Kind == dataset.KindAnchor {
		path := filepath.Join(dir, base+"_anchor.asset")
		err := writeTo(path, func(f *os.File) error {
			return asset.WriteAnchor(f, asset.Anchor{
				Identifier: base + "_anchor",
				Base:       base,
				Centroid:   centroid,
				FadeTarget: d.FadeTarget,
				GUIPath:    cfg.Render.AnchorsGUIPath,
			})
		})
		if err != nil {
			return nil, skipped, err
		}
		return []string{path}, skipped, nil
	}

	cloud.Translate(centroid.Neg())

	switch d.Kind {
	case dataset.KindStars:
		speckPath := filepath.Join(dir, base+".speck")
		if err := writeTo(speckPath, func(f *os.File) error {
			return speck.WriteStars(f, cloud, speck.StarParams{
				ColorBV: d.ColorBV,
				Lum:     d.Lum,
				AbsMag:  d.AbsMag,
				Texture: cfg.Render.Texture,
			})
		}); err != nil {
			return nil, skipped, err
		}
		created = append(created, speckPath)

		assetPath := filepath.Join(dir, base+".asset")
		if err := writeTo(assetPath, func(f *os.File) error {
			return asset.WriteStars(f, asset.Stars{
				Identifier:        base,
				SpeckFile:         base + ".speck",
				Centroid:          centroid,
				MagnitudeExponent: d.MagnitudeExponent,
				Core:              channel(d.Core),
				Glare:             channel(d.Glare),
				SunSpeck:          resource(cfg.Render.SunSpeck),
				Colormaps:         resource(cfg.Render.Colormaps),
				Textures:          resource(cfg.Render.Textures),
				GUIPath:           cfg.Render.StarsGUIPath,
			})
		}); err != nil {
			return created, skipped, err
		}
		created = append(created, assetPath)

	case dataset.KindLabels:
		labelName := fmt.Sprintf("%s_%s.label", base, d.LabelColumn)
		labelPath := filepath.Join(dir, labelName)
		if err := writeTo(labelPath, func(f *os.File) error {
			unlabeled, err := speck.WriteLabels(f, cloud, d.LabelColumn)
			if unlabeled > 0 {
				log.Warn("records without label text skipped",
					zap.String("source", d.CSVFile),
					zap.String("column", d.LabelColumn),
					zap.Int("count", unlabeled))
				skipped += unlabeled
			}
			return err
		}); err != nil {
			return nil, skipped, err
		}
		created = append(created, labelPath)

		assetPath := filepath.Join(dir, fmt.Sprintf("%s_%s.asset", base, d.LabelColumn))
		if err := writeTo(assetPath, func(f *os.File) error {
			return asset.WriteLabels(f, asset.Labels{
				Identifier: fmt.Sprintf("%s_%s_labels", base, d.LabelColumn),
				LabelFile:  labelName,
				Centroid:   centroid,
				Enabled:    d.Enabled,
				Unit:       cfg.Labels.Unit,
				Size:       d.LabelSize,
				MinSize:    d.LabelMinSize,
				MaxSize:    d.LabelMaxSize,
				GUIPath:    cfg.Render.LabelsGUIPath,
			})
		}); err != nil {
			return created, skipped, err
		}
		created = append(created, assetPath)
	}

	return created, skipped, nil
}

func writeTo(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

func channel(p dataset.ChannelParams) asset.Channel {
	return asset.Channel{Multiplier: p.Multiplier, Gamma: p.Gamma, Scale: p.Scale}
}

func resource(r config.ResourceConfig) asset.Resource {
	return asset.Resource{Name: r.Name, Identifier: r.Identifier, Version: r.Version}
}
