// Package alarm persists alarm records and delivers them to connected
// sessions on schedule.
package alarm

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3" driver
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Record is one alarm entry. Triggered transitions false -> true exactly once.
type Record struct {
	ID        string
	ISOTime   string
	Message   string
	Ringtone  string // empty when unset
	CreatedAt string
	Triggered bool
}

// Store persists alarm records to a local SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite alarm database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("alarm store open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("alarm store ping: %w", err)
	}
	if err = migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("alarm store migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return err
	}
	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), -1) FROM schema_version`).Scan(&current); err != nil {
		return err
	}
	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	for i := current + 1; i < len(entries); i++ {
		data, readErr := migrationFS.ReadFile("migrations/" + entries[i].Name())
		if readErr != nil {
			return fmt.Errorf("read migration %d: %w", i, readErr)
		}
		if _, execErr := db.Exec(string(data)); execErr != nil {
			return fmt.Errorf("migration %d: %w", i, execErr)
		}
		if _, execErr := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i); execErr != nil {
			return fmt.Errorf("migration %d record: %w", i, execErr)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Append persists a new alarm with triggered=false.
func (s *Store) Append(r Record) error {
	var ringtone sql.NullString
	if r.Ringtone != "" {
		ringtone = sql.NullString{String: r.Ringtone, Valid: true}
	}
	_, err := s.db.Exec(
		`INSERT INTO alarms (id, iso_time, message, ringtone, created_at, triggered) VALUES (?, ?, ?, ?, ?, 0)`,
		r.ID, r.ISOTime, r.Message, ringtone, r.CreatedAt,
	)
	return err
}

// DueAlarms returns all non-triggered alarms whose iso_time has passed now.
func (s *Store) DueAlarms(now time.Time) ([]Record, error) {
	rows, err := s.db.Query(`SELECT id, iso_time, message, ringtone, created_at, triggered FROM alarms WHERE triggered = 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []Record
	for rows.Next() {
		var r Record
		var ringtone sql.NullString
		var triggeredInt int
		if err := rows.Scan(&r.ID, &r.ISOTime, &r.Message, &ringtone, &r.CreatedAt, &triggeredInt); err != nil {
			return nil, err
		}
		r.Ringtone = ringtone.String
		r.Triggered = triggeredInt != 0

		alarmTime, err := time.Parse(time.RFC3339, r.ISOTime)
		if err != nil {
			continue
		}
		if !alarmTime.After(now) {
			due = append(due, r)
		}
	}
	return due, rows.Err()
}

// MarkTriggered flips triggered to true. Called before delivery so a
// scheduler tick that races a crash never double-fires the same alarm.
func (s *Store) MarkTriggered(id string) error {
	_, err := s.db.Exec(`UPDATE alarms SET triggered = 1 WHERE id = ?`, id)
	return err
}
