// Package history keeps a cross-session index of scanned repositories,
// their cluster layouts and clipboard copy events. File paths never
// leave their own repository: copy events store sha256 path hashes and
// only resolve back to relative paths for the repo that owns them.
package history

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"promptpack/internal/shared/util"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5

	// Copy events older than this do not feed recommendations.
	recommendationHistoryDays = 90
	// Recent events scanned per recommendation query.
	recommendationEventWindow = 500
)

// ClusterRecord is a stored cluster layout row.
type ClusterRecord struct {
	RepoRoot        string
	Name            string
	ModuleKeys      []string
	FileCount       int
	AggregateImpact float64
}

// CoCopy is a file recommended from copy co-occurrence.
type CoCopy struct {
	RelativePath string
	Count        int
}

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// PathHash is the stable identifier copy events use in place of a raw
// file path. The store always hashes the repo-relative slash form so
// that absolute and relative callers agree on the identifier.
func PathHash(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])[:32]
}

// repoRelative canonicalizes p to a slash-relative path under root.
// Both absolute paths and paths already relative to the root are
// accepted; paths escaping the root report ok = false.
func repoRelative(root, p string) (string, bool) {
	if filepath.IsAbs(p) {
		if !util.HasPathPrefix(filepath.ToSlash(p), filepath.ToSlash(root)) {
			return "", false
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return "", false
		}
		return filepath.ToSlash(rel), true
	}
	rel := filepath.ToSlash(filepath.Clean(p))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

func (s *Store) RecordRepoSeen(ctx context.Context, root string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.repoID(ctx, root)
	return err
}

// repoID upserts the repo row and refreshes last_seen_at. Callers hold
// s.mu.
func (s *Store) repoID(ctx context.Context, root string) (int64, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return 0, fmt.Errorf("repo root must not be empty")
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	var id int64
	err := s.withRetry("upsert repo", func() error {
		row := s.db.QueryRowContext(ctx, `SELECT id FROM repos WHERE root_path = ?`, root)
		switch scanErr := row.Scan(&id); scanErr {
		case nil:
			_, err := s.db.ExecContext(ctx, `UPDATE repos SET last_seen_at_utc = ? WHERE id = ?`, now, id)
			return err
		case sql.ErrNoRows:
			res, err := s.db.ExecContext(ctx,
				`INSERT INTO repos (root_path, first_seen_at_utc, last_seen_at_utc) VALUES (?, ?, ?)`,
				root, now, now)
			if err != nil {
				return err
			}
			id, err = res.LastInsertId()
			return err
		default:
			return scanErr
		}
	})
	return id, err
}

// RecordClusters replaces the stored cluster layout for the repo.
func (s *Store) RecordClusters(ctx context.Context, root string, clusters []ClusterRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	repoID, err := s.repoID(ctx, root)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	return s.withRetry("record clusters", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM clusters WHERE repo_id = ?`, repoID); err != nil {
			_ = tx.Rollback()
			return err
		}
		for _, c := range clusters {
			keys, err := json.Marshal(c.ModuleKeys)
			if err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("encode module keys: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO clusters (repo_id, name, module_keys, file_count, aggregate_impact, created_at_utc)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				repoID, c.Name, string(keys), c.FileCount, c.AggregateImpact, now); err != nil {
				_ = tx.Rollback()
				return err
			}
		}
		return tx.Commit()
	})
}

// RecordCopyEvent stores one clipboard copy of the given files. Paths
// outside the repo root are dropped.
func (s *Store) RecordCopyEvent(ctx context.Context, root string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	repoID, err := s.repoID(ctx, root)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	return s.withRetry("record copy event", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}

		hashes := make([]string, 0, len(paths))
		for _, p := range paths {
			rel, ok := repoRelative(root, p)
			if !ok {
				continue
			}
			h := PathHash(rel)
			hashes = append(hashes, h)

			res, err := tx.ExecContext(ctx,
				`UPDATE file_stats SET copy_count = copy_count + 1, last_copied_at_utc = ?, relative_path = ?
				 WHERE repo_id = ? AND path_hash = ?`,
				now, rel, repoID, h)
			if err != nil {
				_ = tx.Rollback()
				return err
			}
			if n, _ := res.RowsAffected(); n == 0 {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO file_stats (repo_id, path_hash, relative_path, copy_count, last_copied_at_utc)
					 VALUES (?, ?, ?, 1, ?)`,
					repoID, h, rel, now); err != nil {
					_ = tx.Rollback()
					return err
				}
			}
		}

		if len(hashes) == 0 {
			return tx.Commit()
		}
		encoded, err := json.Marshal(hashes)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode path hashes: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO copy_events (repo_id, path_hashes, copied_at_utc) VALUES (?, ?, ?)`,
			repoID, string(encoded), now); err != nil {
			_ = tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

// FilesOftenCopiedTogether returns repo-relative paths that co-occur in
// recent copy events with the given selection. An empty selection
// returns the most frequently co-copied files overall.
func (s *Store) FilesOftenCopiedTogether(ctx context.Context, root string, selected []string, limit int) ([]CoCopy, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	repoID, err := s.repoID(ctx, root)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().UTC().
		Add(-recommendationHistoryDays * 24 * time.Hour).
		Format(time.RFC3339Nano)

	var rows *sql.Rows
	err = s.withRetry("load copy events", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx,
			`SELECT path_hashes FROM copy_events
			 WHERE repo_id = ? AND copied_at_utc >= ?
			 ORDER BY copied_at_utc DESC LIMIT ?`,
			repoID, cutoff, recommendationEventWindow)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	current := make(map[string]bool, len(selected))
	for _, p := range selected {
		if rel, ok := repoRelative(root, p); ok {
			current[PathHash(rel)] = true
		}
	}

	counts := make(map[string]int)
	for rows.Next() {
		var encoded string
		if err := rows.Scan(&encoded); err != nil {
			return nil, fmt.Errorf("scan copy event row: %w", err)
		}
		var hashes []string
		if err := json.Unmarshal([]byte(encoded), &hashes); err != nil {
			continue
		}
		if len(current) > 0 && !intersects(current, hashes) {
			continue
		}
		for _, h := range hashes {
			if !current[h] {
				counts[h]++
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate copy event rows: %w", err)
	}

	type scored struct {
		hash  string
		count int
	}
	ranked := make([]scored, 0, len(counts))
	for h, c := range counts {
		ranked = append(ranked, scored{hash: h, count: c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].hash < ranked[j].hash
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]CoCopy, 0, len(ranked))
	for _, cand := range ranked {
		var rel string
		row := s.db.QueryRowContext(ctx,
			`SELECT relative_path FROM file_stats WHERE repo_id = ? AND path_hash = ?`,
			repoID, cand.hash)
		if err := row.Scan(&rel); err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			return nil, fmt.Errorf("resolve path hash: %w", err)
		}
		out = append(out, CoCopy{RelativePath: rel, Count: cand.count})
	}
	return out, nil
}

// HighImpactClusters returns the repo's stored clusters ranked by
// aggregate impact.
func (s *Store) HighImpactClusters(ctx context.Context, root string, limit int) ([]ClusterRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	repoID, err := s.repoID(ctx, root)
	if err != nil {
		return nil, err
	}

	return s.queryClusters(ctx,
		`SELECT r.root_path, c.name, c.module_keys, c.file_count, c.aggregate_impact
		 FROM clusters c JOIN repos r ON c.repo_id = r.id
		 WHERE c.repo_id = ?
		 ORDER BY c.aggregate_impact DESC, c.name ASC LIMIT ?`,
		repoID, limit)
}

// SimilarClusters returns same-named clusters recorded for other repos.
func (s *Store) SimilarClusters(ctx context.Context, root, clusterName string, limit int) ([]ClusterRecord, error) {
	if limit <= 0 {
		limit = 5
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	repoID, err := s.repoID(ctx, root)
	if err != nil {
		return nil, err
	}

	return s.queryClusters(ctx,
		`SELECT r.root_path, c.name, c.module_keys, c.file_count, c.aggregate_impact
		 FROM clusters c JOIN repos r ON c.repo_id = r.id
		 WHERE c.repo_id != ? AND c.name = ?
		 ORDER BY c.aggregate_impact DESC, r.root_path ASC LIMIT ?`,
		repoID, clusterName, limit)
}

func (s *Store) queryClusters(ctx context.Context, query string, args ...any) ([]ClusterRecord, error) {
	var rows *sql.Rows
	err := s.withRetry("load clusters", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]ClusterRecord, 0)
	for rows.Next() {
		var (
			rec     ClusterRecord
			encoded string
		)
		if err := rows.Scan(&rec.RepoRoot, &rec.Name, &encoded, &rec.FileCount, &rec.AggregateImpact); err != nil {
			return nil, fmt.Errorf("scan cluster row: %w", err)
		}
		if err := json.Unmarshal([]byte(encoded), &rec.ModuleKeys); err != nil {
			return nil, fmt.Errorf("decode module keys: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cluster rows: %w", err)
	}
	return records, nil
}

func intersects(set map[string]bool, items []string) bool {
	for _, item := range items {
		if set[item] {
			return true
		}
	}
	return false
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
