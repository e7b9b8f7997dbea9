// Package ledger remembers which calendar events already have a brief, so
// repeated polling never prepares the same meeting twice.
package ledger

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	pberrors "github.com/otherjamesbrown/prepbrief/pkg/errors"
)

// Ledger records processed event IDs.
type Ledger interface {
	// Seen reports whether id was marked before.
	Seen(ctx context.Context, id string) (bool, error)

	// Mark records id as processed. Marking twice is not an error.
	Mark(ctx context.Context, id string) error
}

func validID(id string) error {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, "\r\n") {
		return fmt.Errorf("%w: invalid event id %q", pberrors.ErrValidation, id)
	}
	return nil
}

// MemoryLedger keeps IDs in memory. Used for dry runs.
type MemoryLedger struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewMemoryLedger creates an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{ids: make(map[string]struct{})}
}

// Seen implements Ledger.
func (l *MemoryLedger) Seen(ctx context.Context, id string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.ids[id]
	return ok, nil
}

// Mark implements Ledger.
func (l *MemoryLedger) Mark(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ids[id] = struct{}{}
	return nil
}

// FileLedger stores one event ID per line in a local file.
type FileLedger struct {
	path string

	mu     sync.Mutex
	loaded bool
	ids    map[string]struct{}
}

// NewFileLedger creates a FileLedger backed by path. The file is created
// on the first Mark.
func NewFileLedger(path string) *FileLedger {
	return &FileLedger{path: path}
}

// Path returns the backing file.
func (l *FileLedger) Path() string {
	return l.path
}

func (l *FileLedger) load() error {
	if l.loaded {
		return nil
	}
	l.ids = make(map[string]struct{})

	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		l.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if id := strings.TrimSpace(scanner.Text()); id != "" {
			l.ids[id] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	l.loaded = true
	return nil
}

// Seen implements Ledger.
func (l *FileLedger) Seen(ctx context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.load(); err != nil {
		return false, err
	}
	_, ok := l.ids[id]
	return ok, nil
}

// Mark implements Ledger.
func (l *FileLedger) Mark(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.load(); err != nil {
		return err
	}
	if _, ok := l.ids[id]; ok {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0700); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	if _, err := f.WriteString(id + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("append to ledger: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close ledger: %w", err)
	}

	l.ids[id] = struct{}{}
	return nil
}
