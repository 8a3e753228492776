// Package filestore keeps statements in a directory, for local runs and
// single-host deployments.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/afero"

	"github.com/neomorfeo/reportcycle/internal/domain"
)

// Compile-time check: Store implements domain.ObjectStore.
var _ domain.ObjectStore = (*Store)(nil)

// Store is a domain.ObjectStore over one directory of an afero file system.
type Store struct {
	fs        afero.Fs
	listLimit int
}

// New creates a store rooted at dir on base. The directory is created if needed.
func New(base afero.Fs, dir string, listLimit int) (*Store, error) {
	if dir == "" {
		return nil, &domain.ConfigurationError{Field: "storage.dir", Reason: "required for the file backend"}
	}
	if err := base.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}
	return &Store{fs: afero.NewBasePathFs(base, dir), listLimit: listLimit}, nil
}

// List returns up to the list limit of names starting with prefix, sorted.
func (s *Store) List(_ context.Context, prefix string) ([]string, error) {
	infos, err := afero.ReadDir(s.fs, "/")
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", prefix, err)
	}

	var names []string
	for _, info := range infos {
		if info.IsDir() || !strings.HasPrefix(info.Name(), prefix) {
			continue
		}
		names = append(names, info.Name())
		if s.listLimit > 0 && len(names) == s.listLimit {
			break
		}
	}
	return names, nil
}

// Upload writes object. Upserts replace the file atomically; otherwise the
// file must not exist yet.
func (s *Store) Upload(_ context.Context, object domain.Object, upsert bool) error {
	name := "/" + object.Name
	if strings.ContainsAny(object.Name, `/\`) {
		return fmt.Errorf("uploading %q: name must not contain path separators", object.Name)
	}

	if upsert {
		tmp := name + ".part"
		if err := afero.WriteFile(s.fs, tmp, object.Content, 0o644); err != nil {
			return fmt.Errorf("uploading %q: %w", object.Name, err)
		}
		if err := s.fs.Rename(tmp, name); err != nil {
			_ = s.fs.Remove(tmp)
			return fmt.Errorf("uploading %q: %w", object.Name, err)
		}
		return nil
	}

	f, err := s.fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("uploading %q: %w", object.Name, domain.ErrObjectExists)
		}
		return fmt.Errorf("uploading %q: %w", object.Name, err)
	}

	_, err = f.Write(object.Content)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("uploading %q: %w", object.Name, err)
	}
	return nil
}
