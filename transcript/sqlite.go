package transcript

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists transcripts to a SQLite file so they survive a
// process restart. Selected by setting TRANSCRIPT_DB.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the transcript database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS transcripts (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id   TEXT NOT NULL,
			user_name TEXT NOT NULL,
			text      TEXT NOT NULL,
			ts_ms     INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_transcripts_room ON transcripts(room_id);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create transcripts table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(roomID, userName, text string, timestampMs int64) error {
	_, err := s.db.Exec(`
		INSERT INTO transcripts (room_id, user_name, text, ts_ms)
		VALUES (?, ?, ?, ?)
	`, roomID, userName, text, timestampMs)
	return err
}

func (s *SQLiteStore) ByRoom(roomID string) ([]Entry, error) {
	rows, err := s.db.Query(`
		SELECT room_id, user_name, text, ts_ms
		FROM transcripts
		WHERE room_id = ?
		ORDER BY id
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.RoomID, &e.UserName, &e.Text, &e.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ClearRoom(roomID string) error {
	_, err := s.db.Exec(`DELETE FROM transcripts WHERE room_id = ?`, roomID)
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
