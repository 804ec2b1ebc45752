// Package snapshot collects a read-only top-of-book snapshot used by the
// preflight gate, either in process or by running an external probe.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rustyeddy/polygate/market"
)

// DefaultTimeout is the ceiling for a whole probe run, which may fan out to
// many network calls.
const DefaultTimeout = 25 * time.Second

type Probe interface {
	Run(ctx context.Context) (market.Snapshot, error)
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context) (market.Snapshot, error)

func (f ProbeFunc) Run(ctx context.Context) (market.Snapshot, error) { return f(ctx) }

var ErrEmptyCommand = errors.New("snapshot: probe command is empty")

// CommandProbe runs an external program that prints a snapshot as JSON on
// stdout.
type CommandProbe struct {
	Argv    []string
	Dir     string
	Timeout time.Duration
}

func (p CommandProbe) Run(ctx context.Context) (market.Snapshot, error) {
	if len(p.Argv) == 0 || strings.TrimSpace(p.Argv[0]) == "" {
		return market.Snapshot{}, ErrEmptyCommand
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.Argv[0], p.Argv[1:]...)
	cmd.Dir = p.Dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("snapshot: run %s: %w: %s", p.Argv[0], err, strings.TrimSpace(stderr.String()))
	}

	var snap market.Snapshot
	if err := json.Unmarshal(out, &snap); err != nil {
		return market.Snapshot{}, fmt.Errorf("snapshot: decode probe output: %w", err)
	}
	return snap, nil
}

// WriteAudit replaces the file at path with snap as indented JSON. The file
// is for debugging and is never read back.
func WriteAudit(path string, snap market.Snapshot) error {
	if path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("snapshot: create dir: %w", err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("snapshot: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("snapshot: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("snapshot: replace %s: %w", path, err)
	}
	return nil
}
