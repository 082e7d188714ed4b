package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const docExt = ".json"

// Local stores documents as indented JSON files under a root directory.
type Local struct {
	root string
	mu   sync.RWMutex
}

// NewLocal creates the root directory if needed. An empty root selects
// $XDG_DATA_HOME/zhreader or ~/.local/share/zhreader.
func NewLocal(root string) (*Local, error) {
	if root == "" {
		root = DefaultDataDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", root, err)
	}
	return &Local{root: root}, nil
}

// DefaultDataDir returns XDG_DATA_HOME/zhreader or ~/.local/share/zhreader.
func DefaultDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "zhreader")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "zhreader")
}

// Root returns the data directory.
func (l *Local) Root() string {
	return l.root
}

func (l *Local) docPath(folder, name string) (string, error) {
	k, err := key(folder, name)
	if err != nil {
		return "", err
	}
	return filepath.Join(l.root, filepath.FromSlash(k)+docExt), nil
}

func (l *Local) Put(_ context.Context, folder, name string, value any) error {
	p, err := l.docPath(folder, name)
	if err != nil {
		return err
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", folder, name, err)
	}
	payload = append(payload, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create folder %s: %w", folder, err)
	}
	tmpPath := p + ".tmp"
	if err := os.WriteFile(tmpPath, payload, 0o644); err != nil {
		return fmt.Errorf("write temp file %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, p); err != nil {
		return fmt.Errorf("replace %s: %w", p, err)
	}
	return nil
}

func (l *Local) Get(_ context.Context, folder, name string, out any) (bool, error) {
	p, err := l.docPath(folder, name)
	if err != nil {
		return false, err
	}

	l.mu.RLock()
	data, err := os.ReadFile(p)
	l.mu.RUnlock()

	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", p, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s/%s: %w", folder, name, err)
	}
	return true, nil
}

func (l *Local) List(_ context.Context, folder string) ([]string, error) {
	f, err := cleanFolder(folder)
	if err != nil {
		return nil, err
	}

	l.mu.RLock()
	entries, err := os.ReadDir(filepath.Join(l.root, filepath.FromSlash(f)))
	l.mu.RUnlock()

	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", folder, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), docExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), docExt))
	}
	sort.Strings(names)
	return names, nil
}

func (l *Local) Delete(_ context.Context, folder, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if name == "" {
		f, err := cleanFolder(folder)
		if err != nil {
			return err
		}
		if err := os.RemoveAll(filepath.Join(l.root, filepath.FromSlash(f))); err != nil {
			return fmt.Errorf("delete folder %s: %w", folder, err)
		}
		return nil
	}

	p, err := l.docPath(folder, name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", p, err)
	}
	return nil
}
