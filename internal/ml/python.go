package ml

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"exoplanet-api/internal/features"

	"github.com/rs/zerolog/log"
)

// PythonModel runs an AutoGluon TabularPredictor in a long-lived Python
// worker. The worker loads the predictor once and then answers one JSON line
// per request on stdin/stdout. Requests are serialized.
type PythonModel struct {
	dir           string
	pythonPath    string
	scriptPath    string
	features      []string
	classLabels   []any
	positiveClass any

	mu     sync.Mutex
	worker *pythonWorker
	closed bool
}

type bridgeInfo struct {
	Features      []string `json:"features"`
	ClassLabels   []any    `json:"class_labels"`
	PositiveClass any      `json:"positive_class"`
	Error         string   `json:"error,omitempty"`
}

type bridgeOutput struct {
	Distribution        [][2]any `json:"distribution,omitempty"`
	PositiveProbability *float64 `json:"positive_probability,omitempty"`
	Error               string   `json:"error,omitempty"`
}

type bridgeRequest struct {
	Command string          `json:"command"`
	Row     features.Record `json:"row,omitempty"`
}

var errWorkerClosed = errors.New("python worker closed")

func newPythonModel(dir, pythonPath string) (*PythonModel, error) {
	if pythonPath == "" {
		var err error
		pythonPath, err = findPython()
		if err != nil {
			return nil, err
		}
	}

	scriptPath, err := createInferenceScript()
	if err != nil {
		return nil, fmt.Errorf("failed to create inference script: %w", err)
	}

	m := &PythonModel{
		dir:        dir,
		pythonPath: pythonPath,
		scriptPath: scriptPath,
	}

	w, info, err := m.startWorker()
	if err != nil {
		os.Remove(scriptPath)
		return nil, fmt.Errorf("failed to load AutoGluon predictor: %w", err)
	}
	m.worker = w
	m.features = info.Features
	m.classLabels = normalizeLabels(info.ClassLabels)
	m.positiveClass = normalizeLabel(info.PositiveClass)
	if err := checkLabels(m.classLabels, m.positiveClass); err != nil {
		m.Close()
		return nil, fmt.Errorf("failed to load AutoGluon predictor: %w", err)
	}

	log.Info().
		Str("model_dir", dir).
		Str("python_path", pythonPath).
		Int("pid", w.cmd.Process.Pid).
		Int("features", len(m.features)).
		Interface("class_labels", m.classLabels).
		Interface("positive_class", m.positiveClass).
		Msg("AutoGluon predictor loaded")

	return m, nil
}

func (m *PythonModel) FeatureNames() ([]string, bool) {
	if m.features == nil {
		return nil, false
	}
	return append([]string(nil), m.features...), true
}

func (m *PythonModel) ClassLabels() ([]any, bool) {
	if len(m.classLabels) == 0 {
		return nil, false
	}
	return append([]any(nil), m.classLabels...), true
}

func (m *PythonModel) PositiveClass() (any, bool) {
	return m.positiveClass, m.positiveClass != nil
}

// PredictProba sends one row to the worker. A cancelled context kills the
// worker; the next call starts a fresh one.
func (m *PythonModel) PredictProba(ctx context.Context, row features.Record) (Output, error) {
	line, err := json.Marshal(bridgeRequest{Command: "predict", Row: row})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal row: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errWorkerClosed
	}
	if m.worker == nil {
		log.Warn().Str("model_dir", m.dir).Msg("Restarting Python worker")
		w, _, err := m.startWorker()
		if err != nil {
			return nil, fmt.Errorf("failed to restart python worker: %w", err)
		}
		m.worker = w
	}

	out, err := m.worker.roundTrip(ctx, line)
	if err != nil {
		stderr := m.worker.stop()
		m.worker = nil
		log.Error().
			Err(err).
			Str("python_path", m.pythonPath).
			Str("model_dir", m.dir).
			Str("stderr", stderr).
			Bool("context_cancelled", ctx.Err() != nil).
			Msg("Python inference execution failed")

		if ctx.Err() != nil {
			return nil, fmt.Errorf("python inference cancelled: %w", ctx.Err())
		}
		if strings.Contains(stderr, "No module named") {
			return nil, fmt.Errorf("AutoGluon dependency missing: %w", err)
		}
		return nil, fmt.Errorf("python inference failed: %w, stderr: %s", err, stderr)
	}
	return parseBridgeOutput(out)
}

// Close stops the worker and removes the generated inference script.
func (m *PythonModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	if m.worker != nil {
		m.worker.stop()
		m.worker = nil
	}
	return os.Remove(m.scriptPath)
}

type pythonWorker struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	stderr *lockedBuffer
}

type workerReply struct {
	line []byte
	err  error
}

// startWorker launches the serve loop and reads the info line it prints once
// the predictor is loaded.
func (m *PythonModel) startWorker() (*pythonWorker, bridgeInfo, error) {
	cmd := exec.Command(m.pythonPath, m.scriptPath, "serve", m.dir)
	stderr := &lockedBuffer{}
	cmd.Stderr = stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, bridgeInfo{}, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, bridgeInfo{}, err
	}
	if err := cmd.Start(); err != nil {
		return nil, bridgeInfo{}, fmt.Errorf("failed to start %s: %w", m.pythonPath, err)
	}

	w := &pythonWorker{cmd: cmd, stdin: stdin, stdout: bufio.NewReader(stdout), stderr: stderr}

	line, readErr := w.stdout.ReadBytes('\n')
	var info bridgeInfo
	if len(bytes.TrimSpace(line)) > 0 {
		if err := json.Unmarshal(line, &info); err != nil {
			msg := w.stop()
			return nil, bridgeInfo{}, fmt.Errorf("failed to parse predictor info: %w, stdout: %s, stderr: %s", err, line, msg)
		}
	} else if readErr != nil {
		msg := w.stop()
		if strings.Contains(msg, "No module named") {
			return nil, bridgeInfo{}, fmt.Errorf("AutoGluon dependency missing: %s", msg)
		}
		return nil, bridgeInfo{}, fmt.Errorf("python worker exited before reporting: %w, stderr: %s", readErr, msg)
	}
	if info.Error != "" {
		w.stop()
		return nil, bridgeInfo{}, fmt.Errorf("python predictor error: %s", info.Error)
	}
	return w, info, nil
}

// roundTrip writes one request line and waits for one reply line. The read
// runs in its own goroutine so ctx can abandon it; the caller must stop the
// worker after an error.
func (w *pythonWorker) roundTrip(ctx context.Context, line []byte) ([]byte, error) {
	replies := make(chan workerReply, 1)
	go func() {
		if _, err := w.stdin.Write(append(line, '\n')); err != nil {
			replies <- workerReply{err: fmt.Errorf("failed to write request: %w", err)}
			return
		}
		out, err := w.stdout.ReadBytes('\n')
		if err != nil {
			replies <- workerReply{err: fmt.Errorf("failed to read reply: %w", err)}
			return
		}
		replies <- workerReply{line: out}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-replies:
		return r.line, r.err
	}
}

// stop kills the worker process, reaps it and returns what it wrote to stderr.
func (w *pythonWorker) stop() string {
	w.stdin.Close()
	if w.cmd.Process != nil {
		w.cmd.Process.Kill()
	}
	w.cmd.Wait()
	return w.stderr.String()
}

// lockedBuffer collects stderr while exec copies into it from another goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func parseBridgeOutput(data []byte) (Output, error) {
	var resp bridgeOutput
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w, stdout: %s", err, data)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("python inference error: %s", resp.Error)
	}

	if resp.PositiveProbability != nil {
		return PositiveProbability(*resp.PositiveProbability), nil
	}
	if len(resp.Distribution) == 0 {
		return nil, fmt.Errorf("python response has no probabilities: %s", data)
	}

	dist := make(Distribution, len(resp.Distribution))
	for i, pair := range resp.Distribution {
		p, ok := pair[1].(float64)
		if !ok {
			return nil, fmt.Errorf("invalid probability for class %v: %v", pair[0], pair[1])
		}
		dist[i] = ClassProbability{Label: normalizeLabel(pair[0]), Probability: p}
	}
	return dist, nil
}

func findPython() (string, error) {
	// Prefer an active virtual environment
	if venvPath := os.Getenv("VIRTUAL_ENV"); venvPath != "" {
		candidates := []string{
			filepath.Join(venvPath, "bin", "python3"),
			filepath.Join(venvPath, "bin", "python"),
			filepath.Join(venvPath, "Scripts", "python.exe"),
		}
		for _, venvPython := range candidates {
			if _, err := os.Stat(venvPython); err == nil {
				log.Info().Str("python_path", venvPython).Msg("Using virtual environment Python")
				return venvPython, nil
			}
		}
	}

	candidates := []string{"python3", "python", "python3.12", "python3.11", "python3.10"}
	for _, candidate := range candidates {
		path, err := exec.LookPath(candidate)
		if err != nil {
			continue
		}
		cmd := exec.Command(path, "-c", "import sys; exit(0 if sys.version_info[0] == 3 else 1)")
		if err := cmd.Run(); err == nil {
			log.Info().Str("python_path", path).Msg("Using system Python")
			return path, nil
		}
	}

	return "", fmt.Errorf("no suitable Python 3 executable found; set PYTHON_PATH")
}

func createInferenceScript() (string, error) {
	f, err := os.CreateTemp("", "exo_inference_*.py")
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.WriteString(inferenceScript); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

const inferenceScript = `#!/usr/bin/env python3
"""AutoGluon bridge for the exoplanet API."""
import json
import sys

def emit(obj):
    sys.stdout.write(json.dumps(obj) + "\n")
    sys.stdout.flush()

def fail(msg):
    emit({"error": msg})
    sys.exit(1)

try:
    import numpy as np
    import pandas as pd
    from autogluon.tabular import TabularPredictor
except ImportError as exc:
    fail("autogluon not installed: %s" % exc)

def plain(v):
    if hasattr(v, "item"):
        return v.item()
    return v

def feature_names(predictor):
    for attr in ("features", "features_in", "feature_names"):
        val = getattr(predictor, attr, None)
        if callable(val):
            try:
                val = val()
            except Exception:
                val = None
        if isinstance(val, (list, tuple)):
            return list(val)
    try:
        meta = getattr(predictor, "feature_metadata", None)
        if meta is not None:
            feats = meta.get_features()
            if feats:
                return list(feats)
    except Exception:
        pass
    return None

def info(predictor):
    labels = getattr(predictor, "class_labels", None)
    return {
        "features": feature_names(predictor),
        "class_labels": [plain(c) for c in labels] if labels is not None else None,
        "positive_class": plain(getattr(predictor, "positive_class", None)),
    }

def predict(predictor, row):
    df = pd.DataFrame([row])
    for col in df.columns:
        if df[col].isnull().all():
            df[col] = np.nan
    if "mission" in df.columns:
        df["mission"] = df["mission"].astype("category")
    proba = predictor.predict_proba(df)
    if isinstance(proba, pd.DataFrame):
        return {"distribution": [[plain(c), float(proba.iloc[0][c])] for c in proba.columns]}
    return {"positive_probability": float(np.asarray(proba)[0])}

def handle(predictor, line):
    try:
        req = json.loads(line)
    except ValueError as exc:
        return {"error": "invalid request: %s" % exc}
    command = req.get("command")
    try:
        if command == "info":
            return info(predictor)
        if command == "predict":
            return predict(predictor, req.get("row") or {})
        return {"error": "unknown command %s" % command}
    except Exception as exc:
        return {"error": str(exc)}

def main():
    if len(sys.argv) != 3 or sys.argv[1] != "serve":
        fail("usage: exo_inference.py serve <model_dir>")
    try:
        predictor = TabularPredictor.load(sys.argv[2])
    except Exception as exc:
        fail(str(exc))
    emit(info(predictor))
    for line in sys.stdin:
        if line.strip():
            emit(handle(predictor, line))

if __name__ == "__main__":
    main()
`
