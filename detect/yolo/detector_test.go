package yolo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	errs "crate-vision/pkg/errors"
)

// writeWorker drops a shell script standing in for the inference worker.
// It is invoked as `sh <script> --model M --source S --project P`, like
// the real Python worker.
func writeWorker(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "worker.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func testConfig(script, outputDir string) *Config {
	return &Config{
		Python:    "sh",
		Script:    script,
		ModelPath: "model.pt",
		OutputDir: outputDir,
		Timeout:   5 * time.Second,
	}
}

func TestDetectParsesWorkerOutput(t *testing.T) {
	dir := t.TempDir()
	outputDir := filepath.Join(dir, "outputs")

	imagePath := filepath.Join(dir, "stack.jpg")
	require.NoError(t, os.WriteFile(imagePath, []byte("jpeg"), 0o644))

	// Worker writes the annotated artifact and prints detections JSON.
	script := writeWorker(t, dir, `
mkdir -p "`+outputDir+`/predict"
cp "`+imagePath+`" "`+outputDir+`/predict/stack.jpg"
echo '{"detections":[{"label":"blue_square_henniez","confidence":0.91,"box":{"x":1,"y":2,"width":30,"height":40}},{"label":"beer_keg_small","confidence":0.74,"box":{"x":50,"y":60,"width":70,"height":80}}]}'
`)

	d := New(testConfig(script, outputDir), nil)
	result, err := d.Detect(context.Background(), imagePath)
	require.NoError(t, err)
	require.Len(t, result.Detections, 2)
	require.Equal(t, "blue_square_henniez", result.Detections[0].Label)
	require.InDelta(t, 0.91, result.Detections[0].Confidence, 1e-9)
	require.Equal(t, 30, result.Detections[0].Box.Width)
	require.Equal(t, filepath.Join(outputDir, "predict", "stack.jpg"), result.AnnotatedPath)
}

func TestDetectWorkerCrashIsProcessingFailure(t *testing.T) {
	dir := t.TempDir()
	script := writeWorker(t, dir, `echo "model load failed" >&2; exit 1`)

	d := New(testConfig(script, filepath.Join(dir, "outputs")), nil)
	_, err := d.Detect(context.Background(), filepath.Join(dir, "stack.jpg"))
	require.Error(t, err)
	require.Equal(t, errs.KindProcessing, errs.KindOf(err))
}

func TestDetectGarbageOutputIsProcessingFailure(t *testing.T) {
	dir := t.TempDir()
	script := writeWorker(t, dir, `echo "not json"`)

	d := New(testConfig(script, filepath.Join(dir, "outputs")), nil)
	_, err := d.Detect(context.Background(), filepath.Join(dir, "stack.jpg"))
	require.Error(t, err)
	require.Equal(t, errs.KindProcessing, errs.KindOf(err))
}

func TestDetectMissingPredictFolderIsProcessingFailure(t *testing.T) {
	dir := t.TempDir()
	outputDir := filepath.Join(dir, "outputs")
	require.NoError(t, os.MkdirAll(outputDir, 0o755))
	script := writeWorker(t, dir, `echo '{"detections":[]}'`)

	d := New(testConfig(script, outputDir), nil)
	_, err := d.Detect(context.Background(), filepath.Join(dir, "stack.jpg"))
	require.Error(t, err)
	require.Equal(t, errs.KindProcessing, errs.KindOf(err))
}

func TestDetectMissingAnnotatedImageIsProcessingFailure(t *testing.T) {
	dir := t.TempDir()
	outputDir := filepath.Join(dir, "outputs")
	script := writeWorker(t, dir, `
mkdir -p "`+outputDir+`/predict"
echo '{"detections":[]}'
`)

	d := New(testConfig(script, outputDir), nil)
	_, err := d.Detect(context.Background(), filepath.Join(dir, "stack.jpg"))
	require.Error(t, err)
	require.Equal(t, errs.KindProcessing, errs.KindOf(err))
}

func TestDetectTimeoutIsProcessingFailure(t *testing.T) {
	dir := t.TempDir()
	script := writeWorker(t, dir, `sleep 10`)

	cfg := testConfig(script, filepath.Join(dir, "outputs"))
	cfg.Timeout = 100 * time.Millisecond

	d := New(cfg, nil)
	start := time.Now()
	_, err := d.Detect(context.Background(), filepath.Join(dir, "stack.jpg"))
	require.Error(t, err)
	require.Equal(t, errs.KindProcessing, errs.KindOf(err))
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestLatestPredictDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"predict", "predict2", "predict3", "other"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0o755))
	}

	latest, err := latestPredictDir(dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "predict3"), latest)
}

func TestLatestPredictDirEmpty(t *testing.T) {
	dir := t.TempDir()
	_, err := latestPredictDir(dir)
	require.Error(t, err)
}
