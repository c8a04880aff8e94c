// Package watch polls a plan form for content changes.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"
)

// DefaultInterval is used when a Poller has no interval set.
const DefaultInterval = 2 * time.Second

// State is the last observed version of a watched file.
type State struct {
	Path     string    `json:"path"`
	ModTime  time.Time `json:"mod_time"`
	Hash     string    `json:"hash"`
	LastSeen time.Time `json:"last_seen"`
}

// Poller reports when the file at Path changes content. A missing file is
// not an error; its removal counts as a change only if it was seen before.
type Poller struct {
	Path     string
	Interval time.Duration

	last State
	now  func() time.Time
}

// New returns a poller for path.
func New(path string, interval time.Duration) *Poller {
	return &Poller{Path: path, Interval: interval}
}

// Last returns the most recently observed state.
func (p *Poller) Last() State {
	return p.last
}

// Check stats and hashes the file once. The first successful check of an
// existing file reports a change.
func (p *Poller) Check() (bool, error) {
	now := time.Now
	if p.now != nil {
		now = p.now
	}

	info, err := os.Stat(p.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			existed := p.last.Hash != ""
			p.last = State{Path: p.Path, LastSeen: now().UTC()}
			return existed, nil
		}
		return false, err
	}

	hash, err := hashFile(p.Path)
	if err != nil {
		return false, fmt.Errorf("hash file: %w", err)
	}
	changed := p.last.Hash != hash
	p.last = State{
		Path:     p.Path,
		ModTime:  info.ModTime().UTC(),
		Hash:     hash,
		LastSeen: now().UTC(),
	}
	return changed, nil
}

// Run calls fn after every detected change until ctx is cancelled. The file
// is checked immediately, then once per interval. An error from fn stops the
// loop.
func (p *Poller) Run(ctx context.Context, fn func(ctx context.Context, st State) error) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		changed, err := p.Check()
		if err != nil {
			return fmt.Errorf("watch %s: %w", p.Path, err)
		}
		if changed {
			if err := fn(ctx, p.last); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// hashFile computes SHA256 hash of a file's contents.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
