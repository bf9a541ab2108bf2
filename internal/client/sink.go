package client

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/courierbill/internal/logging"
	"github.com/JonMunkholm/courierbill/internal/sheet"
	"github.com/google/uuid"
)

// maxNameAttempts bounds the " (n)" suffix search in DirSink.
const maxNameAttempts = 1000

// DirSink saves artifacts into a directory. Existing files are never
// overwritten: a second "x.xlsx" is saved as "x (1).xlsx", and so on.
type DirSink struct {
	Dir string

	// Saved, when set, is called with the path of every saved artifact.
	Saved func(path string)
}

func (s *DirSink) Deliver(ctx context.Context, a Artifact) error {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := writeTemp(dir, a.Data)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	target, err := claimName(dir, filepath.Base(a.Name), tmp)
	if err != nil {
		return err
	}

	logging.FromContext(ctx).Info("artifact saved", "path", target, "bytes", len(a.Data))
	if s.Saved != nil {
		s.Saved(target)
	}
	return nil
}

// writeTemp writes data to a hidden temporary file in dir and syncs it.
func writeTemp(dir string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, ".billing-*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("sync artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("close artifact: %w", err)
	}
	return name, nil
}

// claimName hard-links tmp to the first free variant of name. Link fails
// when the target exists, so a concurrent writer can never be clobbered.
// Filesystems without hard links fall back to a stat-then-rename.
func claimName(dir, name, tmp string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for n := 0; n < maxNameAttempts; n++ {
		candidate := name
		if n > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
		}
		target := filepath.Join(dir, candidate)

		err := os.Link(tmp, target)
		if err == nil {
			return target, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}

		if _, statErr := os.Lstat(target); statErr == nil {
			continue
		} else if !errors.Is(statErr, fs.ErrNotExist) {
			return "", fmt.Errorf("check %s: %w", target, statErr)
		}
		if err := os.Rename(tmp, target); err != nil {
			return "", fmt.Errorf("save artifact: %w", err)
		}
		return target, nil
	}
	return "", fmt.Errorf("save artifact: no free name for %s in %s", name, dir)
}

// Putter stores an object. *objectstore.Client satisfies it.
type Putter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// ObjectSink archives artifacts under {courier}/{yyyy}/{mm}/{uuid}_{name}.
type ObjectSink struct {
	Store Putter
	Now   func() time.Time
}

func (s *ObjectSink) key(a Artifact) string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	t := now().UTC()
	return path.Join(a.Courier, t.Format("2006"), t.Format("01"), uuid.NewString()+"_"+a.Name)
}

func (s *ObjectSink) Deliver(ctx context.Context, a Artifact) error {
	key := s.key(a)
	if err := s.Store.Put(ctx, key, a.Data, sheet.ContentType); err != nil {
		return fmt.Errorf("archive artifact: %w", err)
	}
	logging.FromContext(ctx).Info("artifact archived", "key", key, "bytes", len(a.Data))
	return nil
}

// MultiSink delivers to each sink in order and stops at the first failure.
type MultiSink []Sink

func (m MultiSink) Deliver(ctx context.Context, a Artifact) error {
	for _, s := range m {
		if err := s.Deliver(ctx, a); err != nil {
			return err
		}
	}
	return nil
}
