package engine

import (
	"encoding/gob"
	"errors"
	"os"

	"github.com/dreamware/immuvault/internal/xorspace"
)

// PersistedState is the on-disk role record: {is_elder,
// node_full_id}, read at startup and written on every role change.
// There is no persisted Adult/Infant distinction — a non-elder
// restart always comes back as Infant and advances on its first
// Connected event.
type PersistedState struct {
	IsElder    bool
	NodeFullID xorspace.Name
}

// StateStore persists and loads PersistedState.
type StateStore interface {
	Load() (*PersistedState, error)
	Save(*PersistedState) error
}

// FileStateStore is a StateStore backed by a single gob-encoded file,
// written via a temp-file-then-rename so a crash mid-write never
// leaves a half-written state record behind.
type FileStateStore struct {
	path string
}

// NewFileStateStore returns a StateStore rooted at path.
func NewFileStateStore(path string) *FileStateStore {
	return &FileStateStore{path: path}
}

func (s *FileStateStore) Load() (*PersistedState, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var st PersistedState
	if err := gob.NewDecoder(f).Decode(&st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *FileStateStore) Save(st *PersistedState) error {
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(st); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (e *Engine) persistState() {
	if e.stateStore == nil {
		return
	}
	st := &PersistedState{IsElder: e.Role.Kind == RoleElder, NodeFullID: e.Name}
	if err := e.stateStore.Save(st); err != nil {
		e.log.WithError(err).Error("engine: failed to persist role state")
	}
}
