package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"speckgen/internal/config"
	"speckgen/internal/pipeline"
)

func TestMain(m *testing.M) {
	// fsnotify keeps one background goroutine per watcher; Stop closes it.
	goleak.VerifyTestMain(m)
}

const datasetHeader = "csv_file,type,lum,absmag,colorb_v,MagnitudeExponent," +
	"core_multiplier,core_gamma,core_scale," +
	"glare_multiplier,glare_gamma,glare_scale," +
	"label_column,label_size,label_minsize,label_maxsize,enabled,fade_target\n"

func fixture(t *testing.T) (pipeline.Options, string) {
	t.Helper()
	workDir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(workDir, "cats.csv"),
		[]byte("id,x,y,z\n0,1,1,1\n"), 0644))
	datasetPath := filepath.Join(workDir, "dataset.csv")
	require.NoError(t, os.WriteFile(datasetPath,
		[]byte(datasetHeader+"cats.csv,stars,10,-20,,,,,,,,,,,,,,\n"), 0644))

	return pipeline.Options{
		DatasetPath: datasetPath,
		AssetDir:    filepath.Join(t.TempDir(), "assets"),
		Config:      config.DefaultConfig(),
		Logger:      zaptest.NewLogger(t),
	}, datasetPath
}

func TestWatcher_StartRunsOnce(t *testing.T) {
	opts, _ := fixture(t)
	w, err := New(opts, 50*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Equal(t, 1, w.Stats().Runs)
	assert.FileExists(t, filepath.Join(opts.AssetDir, "cats.speck"))
}

func TestWatcher_RerunsOnDatasetChange(t *testing.T) {
	opts, datasetPath := fixture(t)
	w, err := New(opts, 10*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(datasetPath,
		[]byte(datasetHeader+"cats.csv,stars,20,-21,,,,,,,,,,,,,,\n"), 0644))

	assert.Eventually(t, func() bool {
		return w.Stats().Runs >= 2
	}, 3*time.Second, 20*time.Millisecond, "expected a re-run after dataset change")
}

func TestWatcher_IgnoresGeneratedFiles(t *testing.T) {
	opts, _ := fixture(t)
	w, err := New(opts, 10*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()
	time.Sleep(50 * time.Millisecond)

	// Speck output lands next to the sources; it must not retrigger.
	workDir := filepath.Dir(opts.DatasetPath)
	require.NoError(t, os.WriteFile(filepath.Join(workDir, "extra.speck"), []byte("x\n"), 0644))

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, w.Stats().Runs)
}

func TestWatcher_CoalescesRapidWrites(t *testing.T) {
	opts, datasetPath := fixture(t)
	w, err := New(opts, 200*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	// Two writes in quick succession: one re-run, and it converts the
	// state after the last write, even though both land right after the
	// initial run.
	require.NoError(t, os.WriteFile(datasetPath,
		[]byte(datasetHeader+"cats.csv,stars,15,-20.5,,,,,,,,,,,,,,\n"), 0644))
	require.NoError(t, os.WriteFile(datasetPath,
		[]byte(datasetHeader+"cats.csv,stars,20,-21,,,,,,,,,,,,,,\n"), 0644))

	assert.Eventually(t, func() bool {
		return w.Stats().Runs >= 2
	}, 3*time.Second, 20*time.Millisecond, "expected the deferred re-run")

	// No further events: the pending change must not produce extra runs.
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, 2, w.Stats().Runs)

	data, err := os.ReadFile(filepath.Join(opts.AssetDir, "cats.speck"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "20 -21")
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	opts, _ := fixture(t)
	w, err := New(opts, 0)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	w.Stop() // second call must not panic or block
}

func TestWatcher_InitialRunErrorStillWatches(t *testing.T) {
	opts, datasetPath := fixture(t)
	require.NoError(t, os.Remove(datasetPath))

	w, err := New(opts, 10*time.Millisecond)
	require.NoError(t, err)

	err = w.Start(context.Background())
	require.Error(t, err)
	require.True(t, w.Watching())
	defer w.Stop()

	// Creating the dataset file under watch triggers a successful run.
	require.NoError(t, os.WriteFile(datasetPath,
		[]byte(datasetHeader+"cats.csv,stars,10,-20,,,,,,,,,,,,,,\n"), 0644))

	assert.Eventually(t, func() bool {
		return w.Stats().Runs >= 2
	}, 3*time.Second, 20*time.Millisecond)
}
