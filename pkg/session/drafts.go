package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/matzehuels/storyline/pkg/config"
	"github.com/matzehuels/storyline/pkg/dialogue"
	errs "github.com/matzehuels/storyline/pkg/errors"
	"github.com/matzehuels/storyline/pkg/script"
)

// DraftStore keeps unsaved editor work as script files, one per dialogue
// name, in a config directory.
type DraftStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewDraftStore creates a draft store.
// If baseDir is empty, defaults to ~/.config/storyline/drafts/
func NewDraftStore(baseDir string) (*DraftStore, error) {
	if baseDir == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("get config dir: %w", err)
		}
		baseDir = filepath.Join(filepath.Dir(p), "drafts")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create draft dir: %w", err)
	}
	return &DraftStore{baseDir: baseDir}, nil
}

func (s *DraftStore) draftPath(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", errs.New(errs.ErrCodeInvalidInput, "invalid draft name %q", name)
	}
	return filepath.Join(s.baseDir, name+".toml"), nil
}

// Save writes the current state of g as the draft called name.
func (s *DraftStore) Save(ctx context.Context, name string, g *dialogue.Graph) error {
	path, err := s.draftPath(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := script.FromGraph(name, g).Save(path); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Load returns the draft called name.
// Returns nil, nil if the draft doesn't exist.
func (s *DraftStore) Load(ctx context.Context, name string) (*script.Script, error) {
	path, err := s.draftPath(name)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, err := script.Load(path)
	if errs.Is(err, errs.ErrCodeFileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	return sc, nil
}

// Delete removes a draft. Missing drafts are ignored.
func (s *DraftStore) Delete(ctx context.Context, name string) error {
	path, err := s.draftPath(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove draft: %w", err)
	}
	return nil
}

// List returns the stored draft names in sorted order.
func (s *DraftStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read draft dir: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".toml" {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".toml"))
	}
	sort.Strings(names)
	return names, nil
}

// Path returns the base directory for draft files.
func (s *DraftStore) Path() string {
	return s.baseDir
}
