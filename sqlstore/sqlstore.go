// Package sqlstore keeps HTM columns in a sqlite database so that the
// column population can outlive the process or be shared with other
// readers of the same file.
package sqlstore

import (
	"bytes"
	"database/sql"
	"encoding/gob"
	"errors"
	"fmt"

	"github.com/google/uuid"
	htm "github.com/htm-community/htmcore"
	_ "github.com/mattn/go-sqlite3"
)

/*
 Store implements htm.ColumnStore. Columns are gob encoded blobs keyed by
(model, column index), several models can live in one database.
*/
type Store struct {
	db    *sql.DB
	model string
}

//Opens or creates the database at path. An empty model id allocates a new one.
func Open(path string, model string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if model == "" {
		model = uuid.New().String()
	}
	return &Store{db: db, model: model}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS columns (
			model TEXT NOT NULL,
			idx INTEGER NOT NULL,
			data BLOB NOT NULL,
			PRIMARY KEY (model, idx)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

//Model id the store reads and writes
func (s *Store) Model() string {
	return s.model
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(index int) (*htm.Column, error) {
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM columns WHERE model = ? AND idx = ?`, s.model, index).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("column %d: %w", index, htm.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get column %d: %w", index, err)
	}
	return decode(data)
}

func (s *Store) Set(index int, col *htm.Column) error {
	if index < 0 {
		return fmt.Errorf("column %d: %w", index, htm.ErrIndex)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(col); err != nil {
		return fmt.Errorf("encode column %d: %w", index, err)
	}
	_, err := s.db.Exec(`INSERT INTO columns (model, idx, data) VALUES (?, ?, ?)
		ON CONFLICT(model, idx) DO UPDATE SET data = excluded.data`, s.model, index, buf.Bytes())
	if err != nil {
		return fmt.Errorf("set column %d: %w", index, err)
	}
	return nil
}

func (s *Store) ForEach(fn func(col *htm.Column) error) error {
	rows, err := s.db.Query(`SELECT data FROM columns WHERE model = ? ORDER BY idx`, s.model)
	if err != nil {
		return fmt.Errorf("list columns: %w", err)
	}
	// decode everything first so fn may call back into the store
	var cols []*htm.Column
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			rows.Close()
			return err
		}
		col, err := decode(data)
		if err != nil {
			rows.Close()
			return err
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, col := range cols {
		if err := fn(col); err != nil {
			return err
		}
	}
	return nil
}

//Number of columns stored for the model
func (s *Store) Len() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM columns WHERE model = ?`, s.model).Scan(&n)
	return n, err
}

func decode(data []byte) (*htm.Column, error) {
	col := new(htm.Column)
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(col); err != nil {
		return nil, fmt.Errorf("decode column: %w", err)
	}
	return col, nil
}
