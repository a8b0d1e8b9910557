// Package history stores REPL input lines in SQLite. A Store satisfies
// readline's History interface, so history survives between sessions.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tliron/commonlog"

	_ "modernc.org/sqlite"
)

// ErrOutOfRange is returned by GetLine for an index with no line.
var ErrOutOfRange = errors.New("history index out of range")

// Store is a line history backed by a SQLite database.
type Store struct {
	db   *sql.DB
	path string
	max  int
	mu   sync.Mutex
}

// Memory is the path of a store that is not persisted.
const Memory = ":memory:"

// Open opens or creates the history database at path. max bounds the
// number of lines kept; 0 keeps everything.
func Open(path string, max int) (*Store, error) {
	if path != Memory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps ":memory:" databases from splitting per
	// connection.
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		line TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db, path: path, max: max}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Write appends a line and returns the new length. Blank lines and
// immediate repeats are not stored.
func (s *Store) Write(line string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	line = strings.TrimRight(line, " \t\r\n")
	if strings.TrimSpace(line) == "" {
		return s.count()
	}

	var last string
	err := s.db.QueryRow("SELECT line FROM history ORDER BY id DESC LIMIT 1").Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("reading last line: %w", err)
	}
	if err == nil && last == line {
		return s.count()
	}

	if _, err := s.db.Exec("INSERT INTO history (line) VALUES (?)", line); err != nil {
		return 0, fmt.Errorf("saving line: %w", err)
	}
	if s.max > 0 {
		_, err := s.db.Exec(
			"DELETE FROM history WHERE id NOT IN (SELECT id FROM history ORDER BY id DESC LIMIT ?)",
			s.max,
		)
		if err != nil {
			return 0, fmt.Errorf("pruning history: %w", err)
		}
	}
	return s.count()
}

// GetLine returns the line at index i, oldest first.
func (s *Store) GetLine(i int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i < 0 {
		return "", ErrOutOfRange
	}
	var line string
	err := s.db.QueryRow("SELECT line FROM history ORDER BY id LIMIT 1 OFFSET ?", i).Scan(&line)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrOutOfRange
	}
	if err != nil {
		return "", fmt.Errorf("querying line %d: %w", i, err)
	}
	return line, nil
}

// Len returns the number of stored lines.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.count()
	if err != nil {
		commonlog.GetLogger("backtalker.history").Errorf("%s", err)
		return 0
	}
	return n
}

// Dump returns every stored line, oldest first.
func (s *Store) Dump() interface{} {
	lines, err := s.Lines()
	if err != nil {
		commonlog.GetLogger("backtalker.history").Errorf("%s", err)
	}
	return lines
}

// Lines returns every stored line, oldest first.
func (s *Store) Lines() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT line FROM history ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// Search returns up to limit of the most recent distinct lines
// containing substr, newest first.
func (s *Store) Search(substr string, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT line FROM history WHERE instr(line, ?) > 0
		 GROUP BY line ORDER BY MAX(id) DESC LIMIT ?`,
		substr, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching history: %w", err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (s *Store) count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM history").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting history: %w", err)
	}
	return n, nil
}
