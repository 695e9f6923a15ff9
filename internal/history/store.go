// Package history journals every wallet deployment to a SQLite database so
// operators can audit what was deployed, when, and by which run, even after
// the JSON ledgers have been edited or lost.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"xnet.company/lockup/internal/types"

	_ "modernc.org/sqlite"
)

const (
	defaultDBFile        = "lockup-history.db"
	defaultBackupDirName = "backups"
	maxBusyTimeoutMs     = 5000
	defaultMaxBackups    = 20
)

var errNoBackups = errors.New("no history backups available")

// Store is the deployment journal.
type Store struct {
	mu        sync.RWMutex
	db        *sql.DB
	file      string
	backupDir string
	now       func() time.Time
}

type backupInfo struct {
	path      string
	timestamp int64
}

// NewStore opens (or creates) the journal at filePath. A corrupt database
// is replaced by its latest backup, or by an empty one if there is none.
func NewStore(filePath string) (*Store, error) {
	if filePath == "" {
		filePath = defaultDBFile
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}

	s := &Store{
		file:      absPath,
		backupDir: filepath.Join(filepath.Dir(absPath), defaultBackupDirName),
		now:       time.Now,
	}

	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}

	if err := s.tryOpenOrRecover(); err != nil {
		return nil, err
	}

	if err := s.ensureSchema(); err != nil {
		_ = s.closeDB()
		return nil, err
	}

	return s, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeDB()
}

func (s *Store) tryOpenOrRecover() error {
	if err := s.openDB(); err != nil {
		if recErr := s.recoverDatabase(err); recErr != nil {
			return recErr
		}
	}
	return nil
}

func (s *Store) openDB() error {
	if err := os.MkdirAll(filepath.Dir(s.file), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s", filepath.Clean(s.file))

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", maxBusyTimeoutMs)); err != nil {
		db.Close()
		return fmt.Errorf("set busy timeout: %w", err)
	}

	// sqlite opens lazily; make a garbage file fail here rather than later.
	var version int
	if err := db.QueryRow("PRAGMA schema_version").Scan(&version); err != nil {
		db.Close()
		return fmt.Errorf("read schema: %w", err)
	}

	s.db = db
	return nil
}

func (s *Store) recoverDatabase(openErr error) error {
	if err := s.restoreLatestBackup(); err != nil {
		if errors.Is(err, errNoBackups) {
			if cleanErr := s.resetDatabaseFiles(); cleanErr != nil {
				return fmt.Errorf("reset database after %v: %w", openErr, cleanErr)
			}
			if err := s.openDB(); err != nil {
				return fmt.Errorf("create fresh database after %v: %w", openErr, err)
			}
			return nil
		}
		return fmt.Errorf("restore database after %v: %w", openErr, err)
	}
	return nil
}

func (s *Store) closeDB() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) resetDatabaseFiles() error {
	_ = s.closeDB()

	var firstErr error
	for _, path := range []string{s.file, s.file + "-wal", s.file + "-shm"} {
		if err := os.Remove(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			if firstErr == nil {
				firstErr = fmt.Errorf("remove %s: %w", filepath.Base(path), err)
			}
		}
	}
	return firstErr
}

func (s *Store) restoreLatestBackup() error {
	base := filepath.Base(s.file)
	ext := filepath.Ext(base)
	backups, err := listBackups(s.backupDir, strings.TrimSuffix(base, ext), ext)
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		return errNoBackups
	}

	latest := backups[len(backups)-1]
	if err := s.resetDatabaseFiles(); err != nil {
		return err
	}
	if err := copyFile(latest.path, s.file); err != nil {
		return fmt.Errorf("copy backup %s: %w", filepath.Base(latest.path), err)
	}
	return s.openDB()
}

// listBackups returns the backups of prefix in dir, oldest first.
func listBackups(dir, prefix, ext string) ([]backupInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var backups []backupInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasPrefix(name, prefix+"-") {
			continue
		}
		if ext != "" && !strings.HasSuffix(name, ext) {
			continue
		}

		stem := name
		if ext != "" {
			stem = strings.TrimSuffix(stem, ext)
		}
		tsPart := strings.TrimPrefix(stem, prefix+"-")
		ts, parseErr := strconv.ParseInt(tsPart, 10, 64)
		if parseErr != nil {
			info, statErr := entry.Info()
			if statErr != nil {
				continue
			}
			ts = info.ModTime().Unix()
		}

		backups = append(backups, backupInfo{
			path:      filepath.Join(dir, name),
			timestamp: ts,
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		if backups[i].timestamp == backups[j].timestamp {
			return backups[i].path < backups[j].path
		}
		return backups[i].timestamp < backups[j].timestamp
	})

	return backups, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS deployments (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		network TEXT NOT NULL,
		variant TEXT NOT NULL,
		wallet TEXT NOT NULL,
		agent TEXT,
		beneficiary TEXT NOT NULL,
		start INTEGER NOT NULL,
		duration INTEGER NOT NULL,
		deployed_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create deployments table: %w", err)
	}

	if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS deployments_network ON deployments (network, variant)`); err != nil {
		return fmt.Errorf("create deployments index: %w", err)
	}

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode=WAL").Scan(&mode); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	return nil
}

// Record journals one deployment. A missing ID or timestamp is filled in.
func (s *Store) Record(r types.Record) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.DeployedAt.IsZero() {
		r.DeployedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO deployments (
		id, run_id, network, variant, wallet, agent, beneficiary, start, duration, deployed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, recordToArgs(r)...)
	if err != nil {
		return fmt.Errorf("insert deployment: %w", err)
	}
	return nil
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	Network string
	Variant types.Variant
	RunID   string
}

// List returns journaled deployments in the order they were made.
func (s *Store) List(f Filter) ([]types.Record, error) {
	var (
		where []string
		args  []any
	)
	if f.Network != "" {
		where = append(where, "network = ?")
		args = append(args, strings.ToLower(f.Network))
	}
	if f.Variant != "" {
		where = append(where, "variant = ?")
		args = append(args, string(f.Variant))
	}
	if f.RunID != "" {
		where = append(where, "run_id = ?")
		args = append(args, f.RunID)
	}

	query := `SELECT id, run_id, network, variant, wallet, agent, beneficiary,
		start, duration, deployed_at FROM deployments`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY rowid"

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query deployments: %w", err)
	}
	defer rows.Close()

	records := []types.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deployment: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// All returns every journaled deployment.
func (s *Store) All() ([]types.Record, error) {
	return s.List(Filter{})
}

// BackupCurrent writes a snapshot of the database to a timestamped file and
// prunes old backups beyond maxBackups. Returns the backup path when created.
func (s *Store) BackupCurrent(maxBackups int) (string, error) {
	snapshot, err := s.ExportSnapshot()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}

	if maxBackups <= 0 {
		maxBackups = defaultMaxBackups
	}

	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backup directory: %w", err)
	}

	base := filepath.Base(s.file)
	ext := filepath.Ext(base)
	prefix := strings.TrimSuffix(base, ext)
	if prefix == "" {
		prefix = base
	}

	backupPath := uniqueBackupPath(s.backupDir, prefix, ext)
	if err := os.WriteFile(backupPath, snapshot, 0o600); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	pruneBackups(s.backupDir, prefix, ext, maxBackups)

	return backupPath, nil
}

// ExportSnapshot returns a consistent copy of the current database contents.
func (s *Store) ExportSnapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.file); errors.Is(err, os.ErrNotExist) {
		return nil, os.ErrNotExist
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.file), "history-export-*.db")
	if err != nil {
		return nil, fmt.Errorf("create temp export file: %w", err)
	}
	tempPath := tempFile.Name()
	tempFile.Close()

	escaped := strings.ReplaceAll(tempPath, "'", "''")
	if _, err := s.db.Exec(fmt.Sprintf("VACUUM INTO '%s'", escaped)); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("vacuum into temp file: %w", err)
	}

	data, err := os.ReadFile(tempPath)
	os.Remove(tempPath)
	if err != nil {
		return nil, fmt.Errorf("read export file: %w", err)
	}

	return data, nil
}

func recordToArgs(r types.Record) []any {
	d := r.Deployment
	return []any{
		r.ID,
		r.RunID,
		strings.ToLower(r.Network),
		string(r.Variant),
		d.Wallet,
		d.Agent,
		d.Beneficiary.Address,
		d.Beneficiary.Start,
		d.Beneficiary.Duration,
		r.DeployedAt.UTC().Format(time.RFC3339Nano),
	}
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (types.Record, error) {
	var (
		id, runID, network, variant sql.NullString
		wallet, agent, beneficiary  sql.NullString
		start, duration             sql.NullInt64
		deployedAt                  sql.NullString
	)

	if err := scanner.Scan(
		&id, &runID, &network, &variant,
		&wallet, &agent, &beneficiary,
		&start, &duration, &deployedAt,
	); err != nil {
		return types.Record{}, err
	}

	return types.Record{
		ID:      id.String,
		RunID:   runID.String,
		Network: network.String,
		Variant: types.Variant(variant.String),
		Deployment: types.Deployment{
			Wallet: wallet.String,
			Agent:  agent.String,
			Beneficiary: types.Beneficiary{
				Address:  beneficiary.String,
				Start:    start.Int64,
				Duration: duration.Int64,
			},
		},
		DeployedAt: parseTime(deployedAt.String),
	}, nil
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	return time.Time{}
}

func uniqueBackupPath(dir, prefix, ext string) string {
	timestamp := time.Now().Unix()
	for {
		name := fmt.Sprintf("%s-%d%s", prefix, timestamp, ext)
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return path
		}
		timestamp++
	}
}

func pruneBackups(dir, prefix, ext string, maxBackups int) {
	if maxBackups <= 0 {
		return
	}

	backups, err := listBackups(dir, prefix, ext)
	if err != nil || len(backups) <= maxBackups {
		return
	}

	for i := 0; i < len(backups)-maxBackups; i++ {
		_ = os.Remove(backups[i].path)
	}
}
