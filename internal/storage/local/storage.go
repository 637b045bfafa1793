// Package local stores games and device state in a single JSON document on
// disk, the command-line counterpart of browser local storage.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mcoot/rummy-tracker/internal/model"
	"github.com/mcoot/rummy-tracker/internal/storage"
)

// DefaultFileName is the document name used inside a data directory
const DefaultFileName = "rummy.json"

// document is the on-disk layout
type document struct {
	Games  map[string]*model.Game       `json:"games"`
	Resume *model.ResumePointer         `json:"resume,omitempty"`
	Stats  map[string]model.PlayerStats `json:"stats"`
}

// Storage is a file-backed implementation of the storage interfaces.
// Every write replaces the whole document atomically.
type Storage struct {
	mu   sync.Mutex
	path string
}

// New creates a storage backed by the document at path, creating the parent
// directory if needed. The file itself is created on first write.
func New(path string) (*Storage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, unavailable(err)
	}
	return &Storage{path: path}, nil
}

// Ensure Storage implements the interfaces
var (
	_ storage.GameStore  = (*Storage)(nil)
	_ storage.GameLister = (*Storage)(nil)
	_ storage.LocalState = (*Storage)(nil)
)

// Path returns the document location
func (s *Storage) Path() string {
	return s.path
}

// Game operations

func (s *Storage) SaveGame(ctx context.Context, key string, game *model.Game) error {
	return s.update(func(doc *document) {
		doc.Games[key] = game.Clone()
	})
}

func (s *Storage) GetGame(ctx context.Context, key string) (*model.Game, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	game, ok := doc.Games[key]
	if !ok || game == nil {
		return nil, model.ErrGameNotFound
	}
	return game, nil
}

func (s *Storage) ListGames(ctx context.Context, prefix string) ([]*model.Game, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(doc.Games))
	for key, game := range doc.Games {
		if game != nil && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	games := make([]*model.Game, 0, len(keys))
	for _, key := range keys {
		games = append(games, doc.Games[key])
	}
	return games, nil
}

// Resume pointer operations

func (s *Storage) GetResumePointer(ctx context.Context) (*model.ResumePointer, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	return doc.Resume, nil
}

func (s *Storage) SaveResumePointer(ctx context.Context, ptr *model.ResumePointer) error {
	return s.update(func(doc *document) {
		p := *ptr
		doc.Resume = &p
	})
}

func (s *Storage) ClearResumePointer(ctx context.Context) error {
	return s.update(func(doc *document) {
		doc.Resume = nil
	})
}

// Stats operations

func (s *Storage) GetPlayerStats(ctx context.Context) (map[string]model.PlayerStats, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	return doc.Stats, nil
}

func (s *Storage) SavePlayerStats(ctx context.Context, stats map[string]model.PlayerStats) error {
	return s.update(func(doc *document) {
		doc.Stats = maps.Clone(stats)
		if doc.Stats == nil {
			doc.Stats = make(map[string]model.PlayerStats)
		}
	})
}

// read loads the document, treating a missing file as empty
func (s *Storage) read() (*document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// update applies fn to the document and writes it back
func (s *Storage) update(fn func(doc *document)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	fn(doc)
	return s.write(doc)
}

func (s *Storage) load() (*document, error) {
	doc := &document{}

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, unavailable(err)
	default:
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", s.path, err)
		}
	}

	if doc.Games == nil {
		doc.Games = make(map[string]*model.Game)
	}
	if doc.Stats == nil {
		doc.Stats = make(map[string]model.PlayerStats)
	}
	return doc, nil
}

func (s *Storage) write(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".rummy-*.json")
	if err != nil {
		return unavailable(err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return unavailable(err)
	}
	if err := tmp.Close(); err != nil {
		return unavailable(err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return unavailable(err)
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: local: %w", model.ErrStorageUnavailable, err)
}
