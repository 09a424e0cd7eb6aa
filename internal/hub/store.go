// Package hub implements the fleet server: player registration, per-player
// playlists and settings, and liveness tracking over a SQLite database.
package hub

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver

	"github.com/marqueehq/marquee/internal/config"
)

// ErrNotFound is returned when a player or serial is unknown.
var ErrNotFound = errors.New("not found")

// Player is one registered display device.
type Player struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	Serial           string     `json:"serial"`
	RotationInterval int        `json:"rotation_interval"`
	OnTime           string     `json:"on_time"`
	OffTime          string     `json:"off_time"`
	LastPing         *time.Time `json:"last_ping"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Online reports whether the player pinged within the given window.
func (p *Player) Online(now time.Time, window time.Duration) bool {
	return p.LastPing != nil && now.Sub(*p.LastPing) <= window
}

// Store persists players and their playlists.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the hub database at path.
func OpenStore(path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("failed to apply %s: %w", p, err)
		}
	}

	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS players (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			serial TEXT NOT NULL UNIQUE,
			rotation_interval INTEGER NOT NULL DEFAULT 30,
			on_time TEXT NOT NULL DEFAULT '',
			off_time TEXT NOT NULL DEFAULT '',
			last_ping DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create players table: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS media (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			player_id INTEGER NOT NULL REFERENCES players(id) ON DELETE CASCADE,
			type TEXT NOT NULL,
			source TEXT NOT NULL,
			duration INTEGER NOT NULL DEFAULT 0,
			position INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create media table: %w", err)
	}

	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_media_player ON media(player_id, position)"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// Register creates a player for serial or returns the existing one. The
// second return reports whether a new row was created.
func (s *Store) Register(ctx context.Context, name, description, serial string) (*Player, bool, error) {
	existing, err := s.PlayerBySerial(ctx, serial)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	if name == "" {
		name = serial
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO players (name, description, serial, created_at) VALUES (?, ?, ?, ?)",
		name, description, serial, time.Now().UTC(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert player: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read new player id: %w", err)
	}

	player, err := s.PlayerByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return player, true, nil
}

const playerColumns = "id, name, description, serial, rotation_interval, on_time, off_time, last_ping, created_at"

// PlayerBySerial looks a player up by its device serial.
func (s *Store) PlayerBySerial(ctx context.Context, serial string) (*Player, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+playerColumns+" FROM players WHERE serial = ?", serial)
	return scanPlayer(row)
}

// PlayerByID looks a player up by its row id.
func (s *Store) PlayerByID(ctx context.Context, id int64) (*Player, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+playerColumns+" FROM players WHERE id = ?", id)
	return scanPlayer(row)
}

// ListPlayers returns every registered player, oldest first.
func (s *Store) ListPlayers(ctx context.Context) ([]*Player, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+playerColumns+" FROM players ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	var players []*Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// CountPlayers returns the number of registered players.
func (s *Store) CountPlayers(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM players").Scan(&count)
	return count, err
}

// DeletePlayer removes a player and, through the cascade, its playlist.
func (s *Store) DeletePlayer(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM players WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping records a liveness beat for serial.
func (s *Store) Ping(ctx context.Context, serial string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, "UPDATE players SET last_ping = ? WHERE serial = ?", at.UTC(), serial)
	if err != nil {
		return fmt.Errorf("failed to record ping: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateSettings replaces a player's rotation interval and power windows.
func (s *Store) UpdateSettings(ctx context.Context, id int64, rotationInterval int, onTime, offTime string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE players SET rotation_interval = ?, on_time = ?, off_time = ? WHERE id = ?",
		rotationInterval, onTime, offTime, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Playlist returns the player's playlist in position order.
func (s *Store) Playlist(ctx context.Context, playerID int64) ([]config.ContentEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT type, source, duration FROM media WHERE player_id = ? ORDER BY position",
		playerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist: %w", err)
	}
	defer rows.Close()

	entries := []config.ContentEntry{}
	for rows.Next() {
		var entry config.ContentEntry
		var duration int
		if err := rows.Scan(&entry.Type, &entry.Source, &duration); err != nil {
			return nil, fmt.Errorf("failed to scan media row: %w", err)
		}
		if duration > 0 {
			entry.Duration = &duration
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// SetPlaylist atomically replaces the player's playlist.
func (s *Store) SetPlaylist(ctx context.Context, playerID int64, entries []config.ContentEntry) error {
	if _, err := s.PlayerByID(ctx, playerID); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			_ = err
		}
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM media WHERE player_id = ?", playerID); err != nil {
		return fmt.Errorf("failed to clear playlist: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO media (player_id, type, source, duration, position) VALUES (?, ?, ?, ?, ?)",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, entry := range entries {
		duration := 0
		if entry.Duration != nil {
			duration = *entry.Duration
		}
		if _, err := stmt.ExecContext(ctx, playerID, entry.Type, entry.Source, duration, i); err != nil {
			return fmt.Errorf("failed to insert media %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanPlayer(row interface{ Scan(...any) error }) (*Player, error) {
	var p Player
	var lastPing sql.NullTime
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Serial,
		&p.RotationInterval,
		&p.OnTime,
		&p.OffTime,
		&lastPing,
		&p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan player: %w", err)
	}
	if lastPing.Valid {
		t := lastPing.Time
		p.LastPing = &t
	}
	return &p, nil
}
