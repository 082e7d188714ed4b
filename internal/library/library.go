// Package library ingests texts into books and serves their chapters and
// analysis caches from a store.
package library

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/dgallion1/zhreader/internal/analyze"
	"github.com/dgallion1/zhreader/internal/book"
	"github.com/dgallion1/zhreader/internal/parser"
	"github.com/dgallion1/zhreader/internal/segment"
	"github.com/dgallion1/zhreader/internal/store"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrNoContent   = errors.New("no readable content")
	ErrUnsupported = errors.New("unsupported file format")
)

// Store layout.
const (
	folderBooks   = "books"
	folderCatalog = "catalog"
	folderByHash  = "by_hash"
	docMeta       = "meta"
)

func bookFolder(id string) string { return folderBooks + "/" + id }

func chapterName(index int) string { return fmt.Sprintf("chapter-%04d", index) }

func analysisName(index int) string { return fmt.Sprintf("analysis-%04d", index) }

// Summary is the catalog entry listed for each book.
type Summary struct {
	ID           string    `json:"book_id"`
	Title        string    `json:"title"`
	Filename     string    `json:"filename,omitempty"`
	ChapterCount int       `json:"chapter_count"`
	CreatedAt    time.Time `json:"created_at"`
}

type hashEntry struct {
	BookID string `json:"book_id"`
}

// Config tunes ingestion.
type Config struct {
	Segment            segment.Options
	Parser             parser.Options
	MaxConcurrentStore int
}

// Library reads and writes books through a Store.
type Library struct {
	store store.Store
	cfg   Config
	log   *slog.Logger

	// Serializes read-modify-write of analysis caches per chapter.
	cacheMu sync.Mutex
}

func New(s store.Store, cfg Config, log *slog.Logger) *Library {
	if cfg.MaxConcurrentStore <= 0 {
		cfg.MaxConcurrentStore = 8
	}
	if log == nil {
		log = slog.Default()
	}
	return &Library{store: s, cfg: cfg, log: log}
}

// ContentHashHex returns the hex SHA-256 of data.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// IngestRequest is one text submission. Data is decoded by the parser chosen
// from Filename's extension.
type IngestRequest struct {
	Filename         string
	Data             []byte
	Title            string
	MaxChapterLength int  // Overrides the configured threshold when positive
	Force            bool // Ingest again even if identical content exists
}

type IngestResult struct {
	Book      *book.Book `json:"book"`
	Duplicate bool       `json:"duplicate"`
}

// Ingest parses, segments and stores a text as a new book. Identical content
// (after normalization) returns the existing book unless Force is set.
func (l *Library) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	filename := req.Filename
	if filename == "" {
		filename = "text.txt"
	}
	log := l.log.With("filename", filename)

	p, err := parser.ForFileWithOptions(filename, l.cfg.Parser)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, err)
	}
	doc, err := p.Parse(bytes.NewReader(req.Data), filename)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	text := segment.Normalize(doc.Text)
	hash := ContentHashHex([]byte(text))

	if !req.Force {
		existing, err := l.findByHash(ctx, hash)
		if err != nil {
			log.Warn("dedup check failed, proceeding", "error", err)
		} else if existing != nil {
			log.Info("duplicate content, returning existing book", "book_id", existing.ID)
			return &IngestResult{Book: existing, Duplicate: true}, nil
		}
	}

	opts := l.cfg.Segment
	if req.MaxChapterLength > 0 {
		opts.MaxChapterLength = req.MaxChapterLength
	}
	chapters := segment.Segment(text, opts)
	if len(chapters) == 0 {
		return nil, ErrNoContent
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = doc.Title
	}
	b := &book.Book{
		ID:          uuid.NewString(),
		Title:       title,
		Filename:    req.Filename,
		ContentHash: hash,
		CreatedAt:   time.Now().UTC(),
		Chapters:    make([]book.ChapterRef, len(chapters)),
	}
	for i := range chapters {
		b.Chapters[i] = chapters[i].Ref(i)
	}
	log = log.With("book_id", b.ID)

	if err := l.writeChapters(ctx, b.ID, chapters); err != nil {
		if delErr := l.store.Delete(context.WithoutCancel(ctx), bookFolder(b.ID), ""); delErr != nil {
			log.Warn("cleanup after failed ingest", "error", delErr)
		}
		return nil, err
	}

	if err := l.store.Put(ctx, bookFolder(b.ID), docMeta, b); err != nil {
		return nil, fmt.Errorf("write meta: %w", err)
	}
	summary := Summary{
		ID:           b.ID,
		Title:        b.Title,
		Filename:     b.Filename,
		ChapterCount: len(b.Chapters),
		CreatedAt:    b.CreatedAt,
	}
	if err := l.store.Put(ctx, folderCatalog, b.ID, summary); err != nil {
		return nil, fmt.Errorf("write catalog: %w", err)
	}
	if err := l.store.Put(ctx, folderByHash, hash, hashEntry{BookID: b.ID}); err != nil {
		log.Error("hash index write failed", "error", err)
	}

	log.Info("book ingested", "chapters", len(chapters))
	return &IngestResult{Book: b}, nil
}

// writeChapters stores every chapter with bounded concurrency and returns the
// first error.
func (l *Library) writeChapters(ctx context.Context, id string, chapters []book.Chapter) error {
	sem := semaphore.NewWeighted(int64(l.cfg.MaxConcurrentStore))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for i := range chapters {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)
			if err := l.store.Put(ctx, bookFolder(id), chapterName(i), &chapters[i]); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("write chapter %d: %w", i, err)
				}
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	return firstErr
}

func (l *Library) findByHash(ctx context.Context, hash string) (*book.Book, error) {
	var entry hashEntry
	found, err := l.store.Get(ctx, folderByHash, hash, &entry)
	if err != nil || !found {
		return nil, err
	}
	b, err := l.Book(ctx, entry.BookID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return b, err
}

// Book returns a book's metadata and outline.
func (l *Library) Book(ctx context.Context, id string) (*book.Book, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var b book.Book
	found, err := l.store.Get(ctx, bookFolder(id), docMeta, &b)
	if err != nil {
		return nil, fmt.Errorf("read book %s: %w", id, err)
	}
	if !found {
		return nil, ErrNotFound
	}
	return &b, nil
}

// List returns all books, newest first.
func (l *Library) List(ctx context.Context) ([]Summary, error) {
	ids, err := l.store.List(ctx, folderCatalog)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		var s Summary
		found, err := l.store.Get(ctx, folderCatalog, id, &s)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", id, err)
		}
		if found {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Chapter returns the chapter at a 0-based index.
func (l *Library) Chapter(ctx context.Context, id string, index int) (*book.Chapter, error) {
	if err := l.checkIndex(ctx, id, index); err != nil {
		return nil, err
	}
	var ch book.Chapter
	found, err := l.store.Get(ctx, bookFolder(id), chapterName(index), &ch)
	if err != nil {
		return nil, fmt.Errorf("read chapter %d: %w", index, err)
	}
	if !found {
		return nil, ErrNotFound
	}
	return &ch, nil
}

func (l *Library) checkIndex(ctx context.Context, id string, index int) error {
	b, err := l.Book(ctx, id)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(b.Chapters) {
		return ErrNotFound
	}
	return nil
}

// Analysis returns the cached analyses of a chapter; never nil on success.
func (l *Library) Analysis(ctx context.Context, id string, index int) (analyze.Cache, error) {
	if err := l.checkIndex(ctx, id, index); err != nil {
		return nil, err
	}
	cache := analyze.Cache{}
	if _, err := l.store.Get(ctx, bookFolder(id), analysisName(index), &cache); err != nil {
		return nil, fmt.Errorf("read analysis %d: %w", index, err)
	}
	return cache, nil
}

// SaveAnalysis merges results into the chapter's cache, keyed by sentence number.
func (l *Library) SaveAnalysis(ctx context.Context, id string, index int, results analyze.Cache) error {
	l.cacheMu.Lock()
	defer l.cacheMu.Unlock()

	cache, err := l.Analysis(ctx, id, index)
	if err != nil {
		return err
	}
	for n, a := range results {
		cache[n] = a
	}
	if err := l.store.Put(ctx, bookFolder(id), analysisName(index), cache); err != nil {
		return fmt.Errorf("write analysis %d: %w", index, err)
	}
	return nil
}

// Delete removes a book with its chapters, caches and index entries.
func (l *Library) Delete(ctx context.Context, id string) error {
	b, err := l.Book(ctx, id)
	if err != nil {
		return err
	}

	var entry hashEntry
	if found, err := l.store.Get(ctx, folderByHash, b.ContentHash, &entry); err == nil && found && entry.BookID == id {
		if err := l.store.Delete(ctx, folderByHash, b.ContentHash); err != nil {
			return fmt.Errorf("delete hash index: %w", err)
		}
	}
	if err := l.store.Delete(ctx, folderCatalog, id); err != nil {
		return fmt.Errorf("delete catalog entry: %w", err)
	}
	if err := l.store.Delete(ctx, bookFolder(id), ""); err != nil {
		return fmt.Errorf("delete book folder: %w", err)
	}
	l.log.Info("book deleted", "book_id", id)
	return nil
}
