package factsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hyperengineering/factsync/internal/store/migrations"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

const schemaVersion = "1"

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store manages the local SQLite fact cache.
//
// Writes are serialized through mu and applied in a single transaction per
// batch; readers share mu and never observe a partially applied batch.
// Every committed write re-triggers the store's live subscriptions.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	path   string
	log    *Channel

	subsMu    sync.Mutex
	subs      map[uint64]*Subscription
	nextSubID uint64
}

// NewStore opens or creates a local fact store.
func NewStore(path string) (*Store, error) {
	if path != MemoryPath {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows one writer; a single connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	store := &Store{
		db:   db,
		path: path,
		subs: make(map[uint64]*Subscription),
	}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return store, nil
}

// WithLogger sets the channel the store reports failures to.
func (s *Store) WithLogger(log *Channel) *Store {
	s.log = log
	return s
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("store: %q: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) migrate() error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("store: set goose dialect: %w", err)
	}
	if err := goose.Up(s.db, "."); err != nil {
		return fmt.Errorf("store: run migrations: %w", err)
	}

	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', ?)
	`, schemaVersion)
	return err
}

// Save upserts a batch of facts atomically: either every fact is written or
// none is. A fact whose id already exists is replaced. An empty batch is a no-op.
// Returns *PersistenceError if the transaction cannot complete.
func (s *Store) Save(ctx context.Context, facts []Fact) error {
	if len(facts) == 0 {
		return nil
	}

	if err := s.save(ctx, facts); err != nil {
		s.log.Error(err, "save %d facts", len(facts))
		return err
	}

	s.notifySubscribers()
	return nil
}

func (s *Store) save(ctx context.Context, facts []Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &PersistenceError{Operation: "save", Err: fmt.Errorf("begin transaction: %w", err)}
	}
	defer tx.Rollback() // no-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO facts (id, fact, length, ordering_rank)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return &PersistenceError{Operation: "save", Err: fmt.Errorf("prepare insert: %w", err)}
	}
	defer stmt.Close()

	for _, f := range facts {
		if _, err := stmt.ExecContext(ctx, f.ID, f.Text, f.Length, f.OrderingRank); err != nil {
			return &PersistenceError{Operation: "save", Err: fmt.Errorf("insert fact %q: %w", f.ID, err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return &PersistenceError{Operation: "save", Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}

// Get retrieves a fact by ID.
func (s *Store) Get(ctx context.Context, id string) (*Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, fact, length, ordering_rank FROM facts WHERE id = ?
	`, id)
	return scanFact(row)
}

// ReadAll returns a snapshot of the facts matching q.
// The result is never nil.
func (s *Store) ReadAll(ctx context.Context, q Query) ([]Fact, error) {
	query, args, err := q.compile()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	results := []Fact{}
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *f)
	}

	return results, rows.Err()
}

// Delete removes the facts with the given ids in one transaction and returns
// the number of rows removed. Deleting an empty id set is a no-op.
func (s *Store) Delete(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`DELETE FROM facts WHERE id IN (%s)`, strings.Join(placeholders, ","))

	return s.deleteWhere(ctx, "delete", query, args...)
}

// DeleteAll removes every fact and returns the number of rows removed.
func (s *Store) DeleteAll(ctx context.Context) (int, error) {
	return s.deleteWhere(ctx, "delete_all", `DELETE FROM facts`)
}

func (s *Store) deleteWhere(ctx context.Context, op, query string, args ...any) (int, error) {
	n, err := s.execDelete(ctx, op, query, args...)
	if err != nil {
		s.log.Error(err, "%s", op)
		return 0, err
	}
	if n > 0 {
		s.notifySubscribers()
	}
	return n, nil
}

func (s *Store) execDelete(ctx context.Context, op, query string, args ...any) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &PersistenceError{Operation: op, Err: fmt.Errorf("begin transaction: %w", err)}
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, &PersistenceError{Operation: op, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &PersistenceError{Operation: op, Err: err}
	}

	if err := tx.Commit(); err != nil {
		return 0, &PersistenceError{Operation: op, Err: fmt.Errorf("commit: %w", err)}
	}
	return int(n), nil
}

// Count returns the number of cached facts.
func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM facts").Scan(&count); err != nil {
		return 0, fmt.Errorf("count facts: %w", err)
	}
	return count, nil
}

// GetMetadata returns a metadata value, or "" if the key is unset.
func (s *Store) GetMetadata(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", ErrStoreClosed
	}

	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %s: %w", key, err)
	}
	return value, nil
}

// Stats returns store statistics.
func (s *Store) Stats(ctx context.Context) (*StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	var (
		count  int
		newest sql.NullInt64
	)
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*), MAX(ordering_rank) FROM facts").Scan(&count, &newest); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	var version sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("stats: schema version: %w", err)
	}

	s.subsMu.Lock()
	subscribers := len(s.subs)
	s.subsMu.Unlock()

	return &StoreStats{
		FactCount:     count,
		NewestRank:    newest.Int64,
		Subscribers:   subscribers,
		SchemaVersion: version.String,
	}, nil
}

// Close closes the store and ends all live subscriptions.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	err := s.db.Close()
	s.mu.Unlock()

	s.subsMu.Lock()
	subs := make([]*Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subsMu.Unlock()

	for _, sub := range subs {
		sub.stop(ErrStoreClosed)
	}

	return err
}

// scanner abstracts the Scan method shared by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanFact scans a single fact row. Returns ErrNotFound for sql.ErrNoRows.
func scanFact(sc scanner) (*Fact, error) {
	var f Fact
	err := sc.Scan(&f.ID, &f.Text, &f.Length, &f.OrderingRank)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}
