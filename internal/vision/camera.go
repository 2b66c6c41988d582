// Package vision wraps the camera and OCR tools. Both adapters convert
// every failure into an error return; the router renders those as plain
// sentences.
package vision

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	log "log/slog"
)

// Camera grabs single frames from a video device via ffmpeg.
type Camera struct {
	Device      string
	CapturesDir string
}

func NewCamera(device, capturesDir string) *Camera {
	return &Camera{Device: device, CapturesDir: capturesDir}
}

// Capture grabs one frame and writes it under the captures directory,
// returning the saved path.
func (c *Camera) Capture(ctx context.Context) (string, error) {
	if err := os.MkdirAll(c.CapturesDir, 0o755); err != nil {
		return "", fmt.Errorf("vision: create captures dir: %w", err)
	}

	path := filepath.Join(c.CapturesDir, fmt.Sprintf("capture_%s.png", time.Now().Format("20060102_150405")))

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-f", "v4l2",
		"-i", c.Device,
		"-frames:v", "1",
		"-y", path,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		log.Debug("capture failed", "device", c.Device, "err", err, "output", string(out))
		return "", fmt.Errorf("vision: capture from %s: %w", c.Device, err)
	}

	// ffmpeg can exit zero without producing a frame on some devices.
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("vision: no frame written: %w", err)
	}

	return path, nil
}
