// Package audio inspects audio files using FFprobe.
package audio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrFileEmpty       = errors.New("file is empty")
	ErrInvalidPath     = errors.New("invalid path")
	ErrUnknownDuration = errors.New("unknown duration")
)

// Prober reads stream properties of an audio file.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// probeError wraps FFprobe command errors with additional context
type probeError struct {
	cmd     string
	output  string
	wrapped error
}

func (e *probeError) Error() string {
	return fmt.Sprintf("ffprobe error: %s\nCommand: %s\nOutput: %s", e.wrapped, e.cmd, e.output)
}

func (e *probeError) Unwrap() error {
	return e.wrapped
}

// newProbeError creates a new probeError with truncated command output
func newProbeError(cmd *exec.Cmd, output []byte, err error) error {
	cmdStr := cmd.String()
	if len(cmdStr) > 200 {
		cmdStr = cmdStr[:200] + "..."
	}
	return &probeError{
		cmd:     cmdStr,
		output:  string(output),
		wrapped: err,
	}
}

type ffprobe struct {
	binary string
}

// NewFFProbe returns a Prober running the ffprobe executable found at
// binary, looked up in PATH when it has no directory.
func NewFFProbe(binary string) (*ffprobe, error) {
	if binary == "" {
		binary = "ffprobe"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, err
	}
	return &ffprobe{binary: path}, nil
}

func validateFile(path string) error {
	fileInfo, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return fmt.Errorf("unable to access file: %s: %w", path, err)
	}

	if fileInfo.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidPath, path)
	}

	if fileInfo.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrFileEmpty, path)
	}

	return nil
}

// Duration returns the length of the file at path in seconds.
func (f *ffprobe) Duration(ctx context.Context, path string) (float64, error) {
	if err := validateFile(path); err != nil {
		return 0, err
	}

	cmd := exec.CommandContext(ctx, f.binary,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)

	output, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return 0, newProbeError(cmd, exitErr.Stderr, err)
		}
		return 0, newProbeError(cmd, output, err)
	}

	d, err := parseDuration(output)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	slog.Debug("Probed duration", "path", path, "seconds", d)
	return d, nil
}

// parseDuration reads the format duration of ffprobe's JSON output.
func parseDuration(output []byte) (float64, error) {
	var probe struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(output, &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if probe.Format.Duration == "" || probe.Format.Duration == "N/A" {
		return 0, ErrUnknownDuration
	}
	d, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownDuration, probe.Format.Duration)
	}
	return d, nil
}
