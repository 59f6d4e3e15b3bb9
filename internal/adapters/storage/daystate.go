package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alejandrodnm/kalshibot/internal/ports"
)

// FileStateStore persiste ports.DayState como un JSON chico en disco.
// La escritura es atómica (temp + rename) para que el cap diario
// sobreviva un crash sin reabrir el presupuesto del día.
type FileStateStore struct {
	path string
}

// NewFileStateStore crea el store en la ruta dada, creando el directorio
// si hace falta.
func NewFileStateStore(path string) (*FileStateStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("storage.NewFileStateStore: mkdir: %w", err)
	}
	return &FileStateStore{path: path}, nil
}

// Load lee el estado persistido. Un archivo inexistente devuelve el
// zero value sin error (primera corrida).
func (s *FileStateStore) Load(_ context.Context) (ports.DayState, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return ports.DayState{}, nil
	}
	if err != nil {
		return ports.DayState{}, fmt.Errorf("storage.FileStateStore.Load: %w", err)
	}

	var st ports.DayState
	if err := json.Unmarshal(data, &st); err != nil {
		return ports.DayState{}, fmt.Errorf("storage.FileStateStore.Load: parse %q: %w", s.path, err)
	}
	return st, nil
}

// Save sobreescribe el estado de forma atómica.
func (s *FileStateStore) Save(_ context.Context, st ports.DayState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("storage.FileStateStore.Save: marshal: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("storage.FileStateStore.Save: write temp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("storage.FileStateStore.Save: rename: %w", err)
	}
	return nil
}
