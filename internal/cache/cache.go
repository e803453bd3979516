// Package cache manages the platform's cache directory and the output
// asset directory. The platform keeps its own cached copies of loaded data
// files and prefers them over freshly generated ones, so stale same-named
// cache entries have to be flushed before installing new output.
package cache

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Flush removes stale copies of the named files from cacheDir. Removal is
// best-effort: a missing file is expected (nothing was cached), any other
// failure is logged and skipped. A non-existent cache directory is a no-op.
func Flush(cacheDir string, names []string, log *zap.Logger) {
	if cacheDir == "" {
		return
	}
	for _, name := range names {
		path := filepath.Join(cacheDir, filepath.Base(name))
		err := os.Remove(path)
		switch {
		case err == nil:
			log.Debug("flushed stale cache entry", zap.String("path", path))
		case errors.Is(err, os.ErrNotExist):
			// Nothing cached for this file.
		default:
			log.Warn("could not flush cache entry", zap.String("path", path), zap.Error(err))
		}
	}
}

// Install copies the given generated files into assetDir, creating the
// directory if needed. A failed copy is fatal for that file only; the
// remaining files are still attempted and the failures are joined into the
// returned error.
func Install(assetDir string, files []string, log *zap.Logger) error {
	if err := os.MkdirAll(assetDir, 0755); err != nil {
		return fmt.Errorf("create asset directory: %w", err)
	}

	var errs []error
	for _, src := range files {
		dst := filepath.Join(assetDir, filepath.Base(src))
		if err := copyFile(src, dst); err != nil {
			log.Error("could not install file", zap.String("src", src), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		log.Debug("installed", zap.String("path", dst))
	}
	return errors.Join(errs...)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return out.Close()
}
