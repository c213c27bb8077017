// Package yolo wraps the external YOLO inference process behind the
// detect.Detector contract. The model is loaded once by the worker script
// and is not safe for concurrent invocation, so every call is serialized.
package yolo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"crate-vision/detect"
	errs "crate-vision/pkg/errors"
)

// Config holds detector invocation settings.
type Config struct {
	// Python is the interpreter used to run the worker script.
	Python string
	// Script is the inference worker script path.
	Script string
	// ModelPath is the weights file handed to the script.
	ModelPath string
	// OutputDir is where the script writes predict* run folders with the
	// annotated image.
	OutputDir string
	// Timeout bounds a single inference run.
	Timeout time.Duration
}

// DefaultConfig returns default development configuration.
func DefaultConfig() *Config {
	return &Config{
		Python:    "python3",
		Script:    "scripts/detect_worker.py",
		ModelPath: "models/best.pt",
		OutputDir: "outputs",
		Timeout:   60 * time.Second,
	}
}

// Detector invokes the inference script one run at a time.
type Detector struct {
	cfg *Config
	log *slog.Logger

	// mu serializes access to the single shared model instance.
	mu sync.Mutex
}

// New creates a detector. A nil config uses DefaultConfig.
func New(cfg *Config, logger *slog.Logger) *Detector {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{cfg: cfg, log: logger}
}

// workerOutput is the JSON the inference script prints on stdout.
type workerOutput struct {
	Detections []detect.Detection `json:"detections"`
}

// Detect runs the external detector on the stored image and returns both
// the parsed detections and the annotated image the run produced. Failures
// of the underlying engine, a missing run folder or a missing annotated
// artifact all surface as processing failures; the raw cause is kept for
// server-side logging only.
func (d *Detector) Detect(ctx context.Context, imagePath string) (*detect.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.cfg.Python, d.cfg.Script,
		"--model", d.cfg.ModelPath,
		"--source", imagePath,
		"--project", d.cfg.OutputDir,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// A killed worker can leave children holding the output pipes; don't
	// let that keep the request hanging.
	cmd.WaitDelay = time.Second

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errs.Wrap(errs.KindProcessing, "detection timed out",
				fmt.Errorf("detector exceeded %s", d.cfg.Timeout))
		}
		return nil, errs.Wrap(errs.KindProcessing, "detector run failed",
			fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String())))
	}

	var out workerOutput
	if uerr := json.Unmarshal(stdout.Bytes(), &out); uerr != nil {
		return nil, errs.Wrap(errs.KindProcessing, "detector produced no usable output", uerr)
	}

	runDir, rerr := latestPredictDir(d.cfg.OutputDir)
	if rerr != nil {
		return nil, errs.Wrap(errs.KindProcessing, "no prediction folder found", rerr)
	}

	annotated := filepath.Join(runDir, filepath.Base(imagePath))
	if _, serr := os.Stat(annotated); serr != nil {
		return nil, errs.Wrap(errs.KindProcessing, "annotated image not found in prediction folder", serr)
	}

	d.log.Info("detection complete",
		"image", imagePath,
		"detections", len(out.Detections),
		"duration", elapsed.String(),
	)

	return &detect.Result{
		Detections:    out.Detections,
		AnnotatedPath: annotated,
	}, nil
}

// latestPredictDir finds the newest predict* run folder under dir. The
// inference engine numbers run folders (predict, predict2, ...), so a
// reverse lexical sort yields the most recent one.
func latestPredictDir(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var runs []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "predict") {
			runs = append(runs, e.Name())
		}
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("no predict folders under %s", dir)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(runs)))
	return filepath.Join(dir, runs[0]), nil
}
