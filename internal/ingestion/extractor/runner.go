package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// ErrPDFToolNotFound is returned when the pdftotext binary is not on PATH.
var ErrPDFToolNotFound = errors.New("pdftotext not found: install poppler-utils")

// CommandRunner runs an external command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%s: %w: %s", name, err, bytes.TrimSpace(stderr.Bytes()))
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// CheckAvailable reports ErrPDFToolNotFound when path cannot be resolved.
func CheckAvailable(path string) error {
	if path == "" {
		path = "pdftotext"
	}
	if _, err := exec.LookPath(path); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

func InstallInstructions() string {
	return "pdftotext is part of poppler: brew install poppler | apt install poppler-utils"
}
