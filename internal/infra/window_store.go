package infra

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlcipher "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/focusd/opwindow/internal/domain"
)

const (
	windowsDBName = "windows.db"
	schemaVersion = "1"
)

// SQLiteWindowStore implements domain.WindowStore using a SQLCipher encrypted
// SQLite database.
type SQLiteWindowStore struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// NewSQLiteWindowStore opens (or creates) the encrypted window database.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewSQLiteWindowStore(dataDir string, key []byte) (*SQLiteWindowStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, windowsDBName)
	keyHex := hex.EncodeToString(key)

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}
	// One writer at a time; SQLite would otherwise answer concurrent writes with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	store := &SQLiteWindowStore{
		db:     db,
		dbPath: dbPath,
		now:    time.Now,
	}

	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

// OpenWindowStore resolves the key through provider, generating one on first use,
// and opens the store in dataDir.
func OpenWindowStore(dataDir string, provider domain.KeyProvider) (*SQLiteWindowStore, error) {
	key, err := EnsureKey(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to load store key: %w", err)
	}
	return NewSQLiteWindowStore(dataDir, key)
}

func (s *SQLiteWindowStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS windows (
		rule_id INTEGER PRIMARY KEY AUTOINCREMENT,
		scope_kind TEXT NOT NULL,
		scope_ref TEXT NOT NULL,
		name TEXT NOT NULL,
		start_date INTEGER NOT NULL,
		end_date INTEGER NOT NULL,
		operations TEXT NOT NULL,
		week_of_month TEXT NOT NULL DEFAULT '',
		do_not_submit_job INTEGER NOT NULL DEFAULT 0,
		enabled INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE (scope_kind, scope_ref, name)
	);

	CREATE TABLE IF NOT EXISTS window_segments (
		rule_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		weekday INTEGER NOT NULL,
		start_seconds INTEGER NOT NULL,
		end_seconds INTEGER NOT NULL,
		PRIMARY KEY (rule_id, position)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT OR IGNORE INTO meta (key, value) VALUES ('schema_version', ?)`, schemaVersion)
	return err
}

// CreateWindow inserts rule and its segments in one transaction.
func (s *SQLiteWindowStore) CreateWindow(ctx context.Context, scope domain.EntityScope, rule domain.WindowRule) (*domain.WindowRule, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("begin create", err)
	}
	defer tx.Rollback()

	now := s.now().Unix()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO windows (scope_kind, scope_ref, name, start_date, end_date, operations,
			week_of_month, do_not_submit_job, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		string(scope.Kind), scope.Ref, rule.Name, rule.StartDate, rule.EndDate,
		joinOperations(rule.Operations), joinOrdinals(rule.WeekOfMonth), rule.DoNotSubmitJob, now, now,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("window %q in %s: %w", rule.Name, scope, domain.ErrAlreadyExists)
	}
	if err != nil {
		return nil, unavailable("insert window", err)
	}
	ruleID, err := res.LastInsertId()
	if err != nil {
		return nil, unavailable("read rule id", err)
	}

	if err := insertSegments(ctx, tx, ruleID, rule.DaySegments); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, unavailable("commit create", err)
	}

	return s.GetWindow(ctx, scope, domain.ByID(ruleID))
}

// ModifyWindow writes the supplied fields of update. Segments are replaced as a whole.
func (s *SQLiteWindowStore) ModifyWindow(ctx context.Context, scope domain.EntityScope, id domain.Identifier, update domain.WindowUpdate) (*domain.WindowRule, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("begin modify", err)
	}
	defer tx.Rollback()

	ruleID, err := resolveRuleID(ctx, tx, scope, id)
	if err != nil {
		return nil, err
	}

	sets := []string{"updated_at = ?"}
	args := []any{s.now().Unix()}
	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.StartDate != nil {
		sets = append(sets, "start_date = ?")
		args = append(args, *update.StartDate)
	}
	if update.EndDate != nil {
		sets = append(sets, "end_date = ?")
		args = append(args, *update.EndDate)
	}
	if update.Operations != nil {
		sets = append(sets, "operations = ?")
		args = append(args, joinOperations(update.Operations))
	}
	if update.WeekOfMonth != nil {
		sets = append(sets, "week_of_month = ?")
		args = append(args, joinOrdinals(update.WeekOfMonth))
	}
	if update.DoNotSubmitJob != nil {
		sets = append(sets, "do_not_submit_job = ?")
		args = append(args, *update.DoNotSubmitJob)
	}
	args = append(args, ruleID)

	_, err = tx.ExecContext(ctx, `UPDATE windows SET `+strings.Join(sets, ", ")+` WHERE rule_id = ?`, args...)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("window %q in %s: %w", *update.Name, scope, domain.ErrAlreadyExists)
	}
	if err != nil {
		return nil, unavailable("update window", err)
	}

	if update.DaySegments != nil {
		if _, err := tx.ExecContext(ctx, `DELETE FROM window_segments WHERE rule_id = ?`, ruleID); err != nil {
			return nil, unavailable("clear segments", err)
		}
		if err := insertSegments(ctx, tx, ruleID, update.DaySegments); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, unavailable("commit modify", err)
	}
	return s.GetWindow(ctx, scope, domain.ByID(ruleID))
}

// DeleteWindow removes the rule and its segments.
func (s *SQLiteWindowStore) DeleteWindow(ctx context.Context, scope domain.EntityScope, id domain.Identifier) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin delete", err)
	}
	defer tx.Rollback()

	ruleID, err := resolveRuleID(ctx, tx, scope, id)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM window_segments WHERE rule_id = ?`, ruleID); err != nil {
		return unavailable("delete segments", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM windows WHERE rule_id = ?`, ruleID); err != nil {
		return unavailable("delete window", err)
	}
	if err := tx.Commit(); err != nil {
		return unavailable("commit delete", err)
	}
	return nil
}

// GetWindow fetches one rule with its segments.
func (s *SQLiteWindowStore) GetWindow(ctx context.Context, scope domain.EntityScope, id domain.Identifier) (*domain.WindowRule, error) {
	query := selectWindows + ` WHERE scope_kind = ? AND scope_ref = ? AND `
	args := []any{string(scope.Kind), scope.Ref}
	if id.RuleID != 0 {
		query += `rule_id = ?`
		args = append(args, id.RuleID)
	} else {
		query += `name = ?`
		args = append(args, id.Name)
	}

	rule, err := scanWindow(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("window %s in %s: %w", id, scope, domain.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("read window", err)
	}

	segments, err := s.loadSegments(ctx, []int64{rule.RuleID})
	if err != nil {
		return nil, err
	}
	rule.DaySegments = segments[rule.RuleID]
	return &rule, nil
}

// ListWindows returns every rule in scope ordered by rule id.
func (s *SQLiteWindowStore) ListWindows(ctx context.Context, scope domain.EntityScope) ([]domain.WindowRule, error) {
	rows, err := s.db.QueryContext(ctx,
		selectWindows+` WHERE scope_kind = ? AND scope_ref = ? ORDER BY rule_id`,
		string(scope.Kind), scope.Ref)
	if err != nil {
		return nil, unavailable("list windows", err)
	}
	defer rows.Close()

	var rules []domain.WindowRule
	var ids []int64
	for rows.Next() {
		rule, err := scanWindow(rows)
		if err != nil {
			return nil, unavailable("scan window", err)
		}
		rules = append(rules, rule)
		ids = append(ids, rule.RuleID)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list windows", err)
	}
	rows.Close()

	if len(rules) == 0 {
		return rules, nil
	}
	segments, err := s.loadSegments(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range rules {
		rules[i].DaySegments = segments[rules[i].RuleID]
	}
	return rules, nil
}

func (s *SQLiteWindowStore) loadSegments(ctx context.Context, ids []int64) (map[int64][]domain.DaySegment, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT rule_id, weekday, start_seconds, end_seconds FROM window_segments
		WHERE rule_id IN (`+placeholders+`) ORDER BY rule_id, position`, args...)
	if err != nil {
		return nil, unavailable("read segments", err)
	}
	defer rows.Close()

	out := make(map[int64][]domain.DaySegment, len(ids))
	for rows.Next() {
		var ruleID int64
		var seg domain.DaySegment
		var weekday int
		if err := rows.Scan(&ruleID, &weekday, &seg.StartSeconds, &seg.EndSeconds); err != nil {
			return nil, unavailable("scan segment", err)
		}
		seg.Weekday = time.Weekday(weekday)
		out[ruleID] = append(out[ruleID], seg)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("read segments", err)
	}
	return out, nil
}

// exclusive runs fn while holding a reserved lock, so no writer changes the
// database file underneath it.
func (s *SQLiteWindowStore) exclusive(ctx context.Context, fn func() error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return unavailable("acquire connection", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
		return unavailable("lock database", err)
	}
	defer conn.ExecContext(context.Background(), `ROLLBACK`)

	return fn()
}

// Path returns the database file path.
func (s *SQLiteWindowStore) Path() string {
	return s.dbPath
}

// Close releases the database connection.
func (s *SQLiteWindowStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const selectWindows = `
	SELECT rule_id, scope_kind, scope_ref, name, start_date, end_date, operations,
		week_of_month, do_not_submit_job, enabled
	FROM windows`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWindow(row rowScanner) (domain.WindowRule, error) {
	var rule domain.WindowRule
	var kind, ops, weeks string
	err := row.Scan(&rule.RuleID, &kind, &rule.Scope.Ref, &rule.Name, &rule.StartDate, &rule.EndDate,
		&ops, &weeks, &rule.DoNotSubmitJob, &rule.Enabled)
	if err != nil {
		return rule, err
	}
	rule.Scope.Kind = domain.ScopeKind(kind)
	for _, op := range splitList(ops) {
		rule.Operations = append(rule.Operations, domain.OperationCategory(op))
	}
	for _, w := range splitList(weeks) {
		rule.WeekOfMonth = append(rule.WeekOfMonth, domain.WeekOrdinal(w))
	}
	return rule, nil
}

func resolveRuleID(ctx context.Context, tx *sql.Tx, scope domain.EntityScope, id domain.Identifier) (int64, error) {
	var ruleID int64
	var err error
	if id.RuleID != 0 {
		err = tx.QueryRowContext(ctx,
			`SELECT rule_id FROM windows WHERE rule_id = ? AND scope_kind = ? AND scope_ref = ?`,
			id.RuleID, string(scope.Kind), scope.Ref).Scan(&ruleID)
	} else {
		err = tx.QueryRowContext(ctx,
			`SELECT rule_id FROM windows WHERE name = ? AND scope_kind = ? AND scope_ref = ?`,
			id.Name, string(scope.Kind), scope.Ref).Scan(&ruleID)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("window %s in %s: %w", id, scope, domain.ErrNotFound)
	}
	if err != nil {
		return 0, unavailable("resolve window", err)
	}
	return ruleID, nil
}

func insertSegments(ctx context.Context, tx *sql.Tx, ruleID int64, segments []domain.DaySegment) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO window_segments (rule_id, position, weekday, start_seconds, end_seconds)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return unavailable("prepare segments", err)
	}
	defer stmt.Close()

	for i, seg := range segments {
		if _, err := stmt.ExecContext(ctx, ruleID, i, int(seg.Weekday), seg.StartSeconds, seg.EndSeconds); err != nil {
			return unavailable("insert segment", err)
		}
	}
	return nil
}

func joinOperations(ops []domain.OperationCategory) string {
	items := make([]string, len(ops))
	for i, op := range ops {
		items[i] = string(op)
	}
	return strings.Join(items, ",")
}

func joinOrdinals(weeks []domain.WeekOrdinal) string {
	items := make([]string, len(weeks))
	for i, w := range weeks {
		items[i] = string(w)
	}
	return strings.Join(items, ",")
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func isUniqueViolation(err error) bool {
	var sqlErr sqlcipher.Error
	return errors.As(err, &sqlErr) && sqlErr.ExtendedCode == sqlcipher.ErrConstraintUnique
}

func unavailable(op string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", op, domain.ErrStoreUnavailable, err)
}

// Ensure SQLiteWindowStore implements domain.WindowStore.
var _ domain.WindowStore = (*SQLiteWindowStore)(nil)
