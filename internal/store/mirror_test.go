package store

import (
	"context"
	"io"
	"log/slog"
	"reflect"
	"testing"
)

func newTestMirror(t *testing.T) (*Mirror, *Local, *Drive) {
	t.Helper()
	local, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, srv := newFakeDrive(t, "k")
	drive := NewDrive(srv.URL, "k")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMirror(local, drive, log), local, drive
}

func TestMirrorPutWritesBoth(t *testing.T) {
	ctx := context.Background()
	m, local, drive := newTestMirror(t)

	if err := m.Put(ctx, "books/b", "meta", doc{N: 1}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	for name, s := range map[string]Store{"local": local, "drive": drive} {
		var got doc
		if found, err := s.Get(ctx, "books/b", "meta", &got); err != nil || !found || got.N != 1 {
			t.Errorf("%s: found=%v err=%v got=%+v", name, found, err, got)
		}
	}
}

func TestMirrorGetBackfills(t *testing.T) {
	ctx := context.Background()
	m, local, drive := newTestMirror(t)

	drive.Put(ctx, "books/b", "meta", doc{Title: "remote"})

	var got doc
	found, err := m.Get(ctx, "books/b", "meta", &got)
	if err != nil || !found || got.Title != "remote" {
		t.Fatalf("Get: found=%v err=%v got=%+v", found, err, got)
	}

	var cached doc
	if found, _ := local.Get(ctx, "books/b", "meta", &cached); !found || cached.Title != "remote" {
		t.Errorf("primary not back-filled: found=%v got=%+v", found, cached)
	}
}

func TestMirrorSecondaryFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	local, _ := NewLocal(t.TempDir())
	broken := NewDrive("http://127.0.0.1:1", "k")
	m := NewMirror(local, broken, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := m.Put(ctx, "f", "n", doc{N: 5}); err != nil {
		t.Fatalf("Put should survive secondary failure: %v", err)
	}
	var got doc
	if found, err := m.Get(ctx, "f", "n", &got); err != nil || !found || got.N != 5 {
		t.Errorf("Get: found=%v err=%v got=%+v", found, err, got)
	}
	if found, err := m.Get(ctx, "f", "missing", &got); err != nil || found {
		t.Errorf("missing: found=%v err=%v", found, err)
	}
	names, err := m.List(ctx, "f")
	if err != nil || !reflect.DeepEqual(names, []string{"n"}) {
		t.Errorf("List: %v %v", names, err)
	}
	if err := m.Delete(ctx, "f", "n"); err != nil {
		t.Errorf("Delete: %v", err)
	}
}

func TestMirrorListUnion(t *testing.T) {
	ctx := context.Background()
	m, local, drive := newTestMirror(t)

	local.Put(ctx, "books", "a", doc{})
	drive.Put(ctx, "books", "b", doc{})
	m.Put(ctx, "books", "c", doc{})

	names, err := m.List(ctx, "books")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(names, []string{"a", "b", "c"}) {
		t.Errorf("List = %v", names)
	}
}
