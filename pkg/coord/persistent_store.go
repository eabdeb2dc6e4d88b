package coord

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
)

// PersistentStore keeps the state a node needs across restarts in a single
// JSON document. Writes go to a temporary file which replaces the document
// once synced, so that a crash never leaves a truncated document behind.
type PersistentStore struct {
	filePath string
}

func NewPersistentStore(filePath string) *PersistentStore {
	return &PersistentStore{
		filePath: filePath,
	}
}

func (s *PersistentStore) FilePath() string {
	return s.filePath
}

// Load reads the persisted state. A missing document yields an empty state;
// a document which cannot be decoded is reported as corrupted.
func (s *PersistentStore) Load(state *PersistentState) error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			*state = PersistentState{}
			return nil
		}

		return fmt.Errorf("cannot read %q: %w", s.filePath, err)
	}

	if err := json.Unmarshal(data, state); err != nil {
		return fmt.Errorf("corrupted state in %q (remove the file to "+
			"restart with an empty state): %w", s.filePath, err)
	}

	return nil
}

func (s *PersistentStore) Save(state PersistentState) error {
	dirPath := path.Dir(s.filePath)

	if err := os.MkdirAll(dirPath, 0700); err != nil {
		return fmt.Errorf("cannot create directory %q: %w", dirPath, err)
	}

	data, err := json.Marshal(&state)
	if err != nil {
		return fmt.Errorf("cannot encode state: %w", err)
	}

	tmpPath := s.filePath + ".tmp"

	file, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("cannot open %q: %w", tmpPath, err)
	}

	if _, err := file.Write(data); err != nil {
		file.Close()
		return fmt.Errorf("cannot write %q: %w", tmpPath, err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		return fmt.Errorf("cannot sync %q: %w", tmpPath, err)
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("cannot close %q: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("cannot rename %q to %q: %w", tmpPath, s.filePath,
			err)
	}

	return nil
}
