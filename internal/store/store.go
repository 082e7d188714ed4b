// Package store persists JSON documents addressed by (folder, name).
package store

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// Store is an opaque blob store. Folders may be nested with "/".
type Store interface {
	// Put writes value as JSON, replacing any previous document.
	Put(ctx context.Context, folder, name string, value any) error
	// Get decodes the document into out. found is false when it does not exist.
	Get(ctx context.Context, folder, name string, out any) (found bool, err error)
	// List returns the sorted document names directly inside folder.
	List(ctx context.Context, folder string) ([]string, error)
	// Delete removes one document, or the whole folder when name is empty.
	// Deleting something that does not exist is not an error.
	Delete(ctx context.Context, folder, name string) error
}

// cleanFolder validates a folder path and returns it without surrounding slashes.
func cleanFolder(folder string) (string, error) {
	f := strings.Trim(folder, "/")
	if f == "" {
		return "", fmt.Errorf("empty folder")
	}
	if path.Clean(f) != f {
		return "", fmt.Errorf("invalid folder %q", folder)
	}
	for _, seg := range strings.Split(f, "/") {
		if seg == "." || seg == ".." {
			return "", fmt.Errorf("invalid folder %q", folder)
		}
	}
	return f, nil
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid name %q", name)
	}
	return nil
}

func key(folder, name string) (string, error) {
	f, err := cleanFolder(folder)
	if err != nil {
		return "", err
	}
	if err := checkName(name); err != nil {
		return "", err
	}
	return f + "/" + name, nil
}
