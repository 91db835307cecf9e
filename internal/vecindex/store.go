package vecindex

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

var (
	// ErrArtifactsMissing means the index or document artifact does not
	// exist on disk; a rebuild is the only correction path.
	ErrArtifactsMissing = errors.New("index artifacts not found")
	// ErrNotLoaded means no snapshot has been loaded into the store yet.
	ErrNotLoaded = errors.New("index not loaded")
	// ErrEmptyRebuild means a rebuild was requested with zero documents.
	ErrEmptyRebuild = errors.New("refusing to build empty index")
)

// Snapshot is an immutable (index, documents) pair. Readers hold a
// snapshot reference; the store swaps the pair as a unit so an old index
// is never mixed with a new document list.
type Snapshot struct {
	Index     *Index
	Documents []string
	Version   uint64
}

// Store owns the process-wide index/document state and its on-disk
// artifacts. Rebuilds are serialized against each other and against
// readers by the write lock.
type Store struct {
	indexPath string
	docsPath  string

	mu      sync.RWMutex
	snap    *Snapshot
	version uint64
}

func NewStore(indexPath, docsPath string) *Store {
	return &Store{indexPath: indexPath, docsPath: docsPath}
}

// Snapshot returns the current (index, documents) pair.
func (s *Store) Snapshot() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil, ErrNotLoaded
	}
	return s.snap, nil
}

// Version returns the version of the current snapshot, 0 if none.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return 0
	}
	return s.snap.Version
}

// Load reads both artifacts from disk and swaps them in together.
func (s *Store) Load() error {
	idx, err := ReadFile(s.indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrArtifactsMissing, s.indexPath)
		}
		return fmt.Errorf("load index artifact failed: %w", err)
	}
	docs, err := readDocuments(s.docsPath)
	if err != nil {
		return err
	}
	s.swap(idx, docs)
	return nil
}

// Rebuild stages both artifacts, replaces the on-disk pair, and swaps the
// in-memory snapshot. The prior artifacts are only replaced after both
// staged files are fully written, so a failed rebuild leaves the previous
// pair intact.
func (s *Store) Rebuild(idx *Index, documents []string) error {
	if idx == nil || idx.Len() == 0 || len(documents) == 0 {
		return ErrEmptyRebuild
	}
	if idx.Len() != len(documents) {
		return fmt.Errorf("index entry count %d does not match document count %d", idx.Len(), len(documents))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	indexTmp := s.indexPath + ".tmp"
	docsTmp := s.docsPath + ".tmp"
	if err := idx.WriteFile(indexTmp); err != nil {
		return err
	}
	if err := os.WriteFile(docsTmp, []byte(strings.Join(documents, "\n")+"\n"), 0o644); err != nil {
		_ = os.Remove(indexTmp)
		return fmt.Errorf("write documents artifact failed: %w", err)
	}

	if err := os.Rename(indexTmp, s.indexPath); err != nil {
		_ = os.Remove(indexTmp)
		_ = os.Remove(docsTmp)
		return fmt.Errorf("replace index artifact failed: %w", err)
	}
	if err := os.Rename(docsTmp, s.docsPath); err != nil {
		_ = os.Remove(docsTmp)
		return fmt.Errorf("replace documents artifact failed: %w", err)
	}

	s.version++
	s.snap = &Snapshot{Index: idx, Documents: documents, Version: s.version}
	return nil
}

func (s *Store) swap(idx *Index, docs []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	s.snap = &Snapshot{Index: idx, Documents: docs, Version: s.version}
}

func readDocuments(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactsMissing, path)
		}
		return nil, fmt.Errorf("load documents artifact failed: %w", err)
	}
	lines := strings.Split(string(raw), "\n")
	docs := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		docs = append(docs, line)
	}
	return docs, nil
}
