package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/muj89/usdt-p2p-moniter/internal/logging"
	"github.com/muj89/usdt-p2p-moniter/internal/market"
)

const (
	defaultPath = "data/price_history.json"

	// MaxRetained caps the rolling history at 7 days of hourly points.
	MaxRetained = 168
)

// ErrStorage marks history-file read/write faults.
var ErrStorage = errors.New("history: storage failure")

// Store is a file-backed rolling sequence of history points, capped at
// MaxRetained entries with oldest-first eviction. Every operation is a
// full load-modify-store cycle against the persisted copy; the mutex
// is the single-writer gate between the ingest job and foreground
// readers.
type Store struct {
	mu   sync.Mutex
	path string
}

// Open prepares a store at path, creating the parent directory. The
// backing file itself is created on first append.
func Open(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: ensure data dir: %v", ErrStorage, err)
	}
	return &Store{path: path}, nil
}

// Path returns the location of the persisted history file.
func (s *Store) Path() string {
	return s.path
}

// Append loads the persisted sequence, pushes point, evicts from the
// front past MaxRetained and writes the whole sequence back with
// write-then-rename semantics. Storage faults are returned, not
// swallowed; the caller decides whether to drop the point.
func (s *Store) Append(point market.HistoryPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	points := s.load()
	points = append(points, point)
	if len(points) > MaxRetained {
		points = points[len(points)-MaxRetained:]
	}
	return s.persist(points)
}

// ReadAll returns the persisted sequence verbatim, oldest-first. A
// missing file is an empty history, and a corrupt one degrades to
// empty with a logged fault since history is best-effort data.
func (s *Store) ReadAll() []market.HistoryPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() []market.HistoryPoint {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.Errorf("[history] read %s: %v", s.path, err)
		}
		return []market.HistoryPoint{}
	}
	var points []market.HistoryPoint
	if err := json.Unmarshal(raw, &points); err != nil {
		logging.Errorf("[history] corrupt history at %s, starting empty: %v", s.path, err)
		return []market.HistoryPoint{}
	}
	return points
}

func (s *Store) persist(points []market.HistoryPoint) error {
	raw, err := json.MarshalIndent(points, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal history: %v", ErrStorage, err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrStorage, tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("%w: replace %s: %v", ErrStorage, s.path, err)
	}
	return nil
}
