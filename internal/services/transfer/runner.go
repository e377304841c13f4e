package transfer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Florenz0707/NASSAV-sub000/internal/storage"
	"github.com/Florenz0707/NASSAV-sub000/internal/utils"
	"github.com/sirupsen/logrus"
)

var commandContext = exec.CommandContext

// Runner invokes the external HLS downloader
type Runner struct {
	binary   string
	proxyURL string
	logger   *logrus.Logger
}

// NewRunner creates a runner for the downloader at binary
func NewRunner(binary, proxyURL string, logger *logrus.Logger) *Runner {
	return &Runner{binary: binary, proxyURL: proxyURL, logger: logger}
}

// Args builds the downloader command line
func (r *Runner) Args(locator, saveDir, saveName string) []string {
	args := []string{
		locator,
		"--save-dir", saveDir,
		"--save-name", saveName,
		"--tmp-dir", filepath.Join(saveDir, ".tmp"),
		"--auto-select",
		"--del-after-done",
		"--no-log",
		"-M", "format=mp4",
		"-H", "User-Agent: " + utils.UserAgent,
	}
	if r.proxyURL != "" {
		args = append(args, "--custom-proxy", r.proxyURL)
	}
	return args
}

// Run downloads locator into saveDir/saveName.mp4, streaming parsed progress to
// onProgress, and returns the output path
func (r *Runner) Run(ctx context.Context, locator, saveDir, saveName string, onProgress func(Progress)) (string, error) {
	if locator == "" {
		return "", errors.New("media locator required")
	}
	if strings.TrimSpace(saveDir) == "" || strings.TrimSpace(saveName) == "" {
		return "", errors.New("save dir and name required")
	}

	cmd := commandContext(ctx, r.binary, r.Args(locator, saveDir, saveName)...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	r.logger.WithFields(logrus.Fields{
		"binary": r.binary,
		"name":   saveName,
	}).Info("Starting transfer")

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start downloader: %w", err)
	}

	var lastLine string
	scanner := bufio.NewScanner(stdout)
	scanner.Split(scanLines)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lastLine = line
		if p, ok := ParseProgress(line); ok && onProgress != nil {
			onProgress(p)
		}
	}
	if err := scanner.Err(); err != nil {
		_ = cmd.Wait()
		return "", fmt.Errorf("failed to read downloader output: %w", err)
	}

	if err := cmd.Wait(); err != nil {
		return "", fmt.Errorf("downloader failed (%s): %w", lastLine, err)
	}

	output := filepath.Join(saveDir, saveName+storage.VideoExt)
	if _, ok := storage.FileSize(output); !ok {
		return "", fmt.Errorf("downloader exited cleanly but %s is missing", output)
	}
	return output, nil
}
