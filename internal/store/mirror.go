package store

import (
	"context"
	"log/slog"
	"sort"
)

// Mirror writes through to two stores. The primary is authoritative; the
// secondary is a best-effort copy (for example a cloud drive behind a local
// cache). Reads that miss the primary fall back to the secondary and
// back-fill the primary.
type Mirror struct {
	primary   Store
	secondary Store
	log       *slog.Logger
}

func NewMirror(primary, secondary Store, log *slog.Logger) *Mirror {
	if log == nil {
		log = slog.Default()
	}
	return &Mirror{primary: primary, secondary: secondary, log: log}
}

func (m *Mirror) Put(ctx context.Context, folder, name string, value any) error {
	if err := m.primary.Put(ctx, folder, name, value); err != nil {
		return err
	}
	if err := m.secondary.Put(ctx, folder, name, value); err != nil {
		m.log.Warn("mirror put failed", "folder", folder, "name", name, "error", err)
	}
	return nil
}

func (m *Mirror) Get(ctx context.Context, folder, name string, out any) (bool, error) {
	found, err := m.primary.Get(ctx, folder, name, out)
	if err != nil || found {
		return found, err
	}

	found, err = m.secondary.Get(ctx, folder, name, out)
	if err != nil {
		m.log.Warn("mirror get failed", "folder", folder, "name", name, "error", err)
		return false, nil
	}
	if !found {
		return false, nil
	}
	if err := m.primary.Put(ctx, folder, name, out); err != nil {
		m.log.Warn("mirror back-fill failed", "folder", folder, "name", name, "error", err)
	}
	return true, nil
}

// List returns the union of both stores' names.
func (m *Mirror) List(ctx context.Context, folder string) ([]string, error) {
	names, err := m.primary.List(ctx, folder)
	if err != nil {
		return nil, err
	}
	remote, err := m.secondary.List(ctx, folder)
	if err != nil {
		m.log.Warn("mirror list failed", "folder", folder, "error", err)
		return names, nil
	}

	seen := make(map[string]bool, len(names)+len(remote))
	for _, n := range names {
		seen[n] = true
	}
	for _, n := range remote {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *Mirror) Delete(ctx context.Context, folder, name string) error {
	if err := m.primary.Delete(ctx, folder, name); err != nil {
		return err
	}
	if err := m.secondary.Delete(ctx, folder, name); err != nil {
		m.log.Warn("mirror delete failed", "folder", folder, "name", name, "error", err)
	}
	return nil
}
