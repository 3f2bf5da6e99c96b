// Package savedb maintains a SQLite index over the save directory:
// one row per autosave plus the notification feed, so operators can
// query game history without decompressing save files.
package savedb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

type Index struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqSave reqKind = iota + 1
	reqEvent
)

type req struct {
	kind reqKind

	save  SaveRow
	event eventRow
}

// SaveRow is the queryable summary of one save file.
type SaveRow struct {
	Elapsed      float64
	StateVersion uint64
	Path         string
	Season       string
	Population   int
	Gold         float64
	Buildings    int
	RecordedAt   string
}

type eventRow struct {
	Elapsed    float64
	Message    string
	RecordedAt string
}

func Open(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Index{
		db: db,
		// Buffered so a slow disk never stalls the tick loop.
		ch: make(chan req, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads. NORMAL is a decent
	// durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalog (
			digest TEXT PRIMARY KEY,
			buildings INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS saves (
			elapsed_ms INTEGER PRIMARY KEY,
			state_version INTEGER NOT NULL,
			path TEXT NOT NULL,
			season TEXT NOT NULL,
			population INTEGER NOT NULL,
			gold REAL NOT NULL,
			buildings INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			elapsed REAL NOT NULL,
			message TEXT NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_elapsed ON events(elapsed);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Index) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordSave enqueues a save summary. Drops the row when the writer
// falls behind; the save file itself is the source of truth.
func (s *Index) RecordSave(row SaveRow) {
	if s == nil || s.closed.Load() {
		return
	}
	if row.RecordedAt == "" {
		row.RecordedAt = time.Now().UTC().Format(time.RFC3339Nano)
	}
	select {
	case s.ch <- req{kind: reqSave, save: row}:
	default:
	}
}

// RecordEvents enqueues a batch of notification feed messages.
func (s *Index) RecordEvents(elapsed float64, messages []string) {
	if s == nil || s.closed.Load() || len(messages) == 0 {
		return
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, msg := range messages {
		select {
		case s.ch <- req{kind: reqEvent, event: eventRow{Elapsed: elapsed, Message: msg, RecordedAt: now}}:
		default:
		}
	}
}

// UpsertCatalog records the active catalog digest so a later operator
// can tell which catalog produced which saves.
func (s *Index) UpsertCatalog(digest string, buildings int) error {
	if s == nil || digest == "" {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO catalog(digest,buildings,updated_at) VALUES(?,?,?)`, digest, buildings, now); err != nil {
		return err
	}
	return tx.Commit()
}

// RecentSaves lists the newest save rows, newest first. Reads go
// straight to the database, not through the writer queue.
func (s *Index) RecentSaves(limit int) ([]SaveRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
		SELECT elapsed_ms, state_version, path, season, population, gold, buildings, recorded_at
		FROM saves ORDER BY elapsed_ms DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SaveRow
	for rows.Next() {
		var r SaveRow
		var elapsedMS int64
		if err := rows.Scan(&elapsedMS, &r.StateVersion, &r.Path, &r.Season, &r.Population, &r.Gold, &r.Buildings, &r.RecordedAt); err != nil {
			return nil, err
		}
		r.Elapsed = float64(elapsedMS) / 1000
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Index) loop() {
	ctx := context.Background()

	insertSave, _ := s.db.Prepare(`INSERT OR REPLACE INTO saves(elapsed_ms,state_version,path,season,population,gold,buildings,recorded_at) VALUES(?,?,?,?,?,?,?,?)`)
	insertEvent, _ := s.db.Prepare(`INSERT INTO events(elapsed,message,recorded_at) VALUES(?,?,?)`)
	defer func() {
		if insertSave != nil {
			_ = insertSave.Close()
		}
		if insertEvent != nil {
			_ = insertEvent.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 256
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqSave:
			sv := r.save
			if insertSave != nil {
				if _, err := tx.Stmt(insertSave).Exec(
					int64(sv.Elapsed*1000),
					int64(sv.StateVersion),
					sv.Path,
					sv.Season,
					sv.Population,
					sv.Gold,
					sv.Buildings,
					sv.RecordedAt,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqEvent:
			ev := r.event
			if insertEvent != nil {
				if _, err := tx.Stmt(insertEvent).Exec(ev.Elapsed, ev.Message, ev.RecordedAt); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
