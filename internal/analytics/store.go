// Package analytics keeps privacy-conscious counters for the site: visits
// with hashed client addresses, resume download outcomes, and contact form
// outcome labels. Message content is never stored.
package analytics

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Contact outcome labels.
const (
	ContactSent          = "sent"
	ContactFailed        = "failed"
	ContactMissingConfig = "missing_config"
	ContactInvalid       = "invalid"
)

type Visit struct {
	ID        int64     `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

type Stats struct {
	TotalVisitors    int64            `json:"total_visitors"`
	UniqueVisitors   int64            `json:"unique_visitors"`
	VisitorsToday    int64            `json:"visitors_today"`
	VisitorsThisWeek int64            `json:"visitors_this_week"`
	Downloads        map[string]int64 `json:"downloads"`
	Contacts         map[string]int64 `json:"contacts"`
	TopPaths         []PathCount      `json:"top_paths"`
	RecentVisitors   []Visit          `json:"recent_visitors"`
}

type PathCount struct {
	Path  string `json:"path"`
	Count int64  `json:"count"`
}

// Store records and aggregates events.
type Store struct {
	db   *DB
	salt string
	now  func() time.Time
}

// NewStore uses a fresh random salt, so hashes are stable only for the
// lifetime of the process.
func NewStore(db *DB) (*Store, error) {
	salt, err := RandomToken()
	if err != nil {
		return nil, err
	}
	return &Store{db: db, salt: salt, now: time.Now}, nil
}

// RandomToken returns 32 random bytes hex-encoded.
func RandomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashIP returns a truncated salted SHA-256 of ip.
func (s *Store) HashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + s.salt))
	return hex.EncodeToString(sum[:])[:16]
}

func (s *Store) RecordVisit(ctx context.Context, ip, userAgent, path string) error {
	_, err := s.db.Writer.ExecContext(ctx,
		`INSERT INTO visitors (hashed_ip, user_agent, path, created_at) VALUES (?, ?, ?, ?)`,
		s.HashIP(ip), userAgent, path, s.now().Unix())
	if err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	return nil
}

func (s *Store) RecordDownload(ctx context.Context, ip, path, outcome string) error {
	_, err := s.db.Writer.ExecContext(ctx,
		`INSERT INTO resume_downloads (hashed_ip, path, outcome, created_at) VALUES (?, ?, ?, ?)`,
		s.HashIP(ip), path, outcome, s.now().Unix())
	if err != nil {
		return fmt.Errorf("record download: %w", err)
	}
	return nil
}

func (s *Store) RecordContact(ctx context.Context, outcome string) error {
	_, err := s.db.Writer.ExecContext(ctx,
		`INSERT INTO contact_events (outcome, created_at) VALUES (?, ?)`,
		outcome, s.now().Unix())
	if err != nil {
		return fmt.Errorf("record contact: %w", err)
	}
	return nil
}

// Stats aggregates everything the dashboard shows.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).Unix()
	weekAgo := now.Add(-7 * 24 * time.Hour).Unix()

	stats := &Stats{
		Downloads: map[string]int64{},
		Contacts:  map[string]int64{},
	}

	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&stats.TotalVisitors, `SELECT COUNT(*) FROM visitors`, nil},
		{&stats.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil},
		{&stats.VisitorsToday, `SELECT COUNT(*) FROM visitors WHERE created_at >= ?`, []any{startOfDay}},
		{&stats.VisitorsThisWeek, `SELECT COUNT(*) FROM visitors WHERE created_at >= ?`, []any{weekAgo}},
	}
	for _, c := range counts {
		if err := s.db.Reader.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}

	if err := s.groupCount(ctx, `SELECT outcome, COUNT(*) FROM resume_downloads GROUP BY outcome`, stats.Downloads); err != nil {
		return nil, err
	}
	if err := s.groupCount(ctx, `SELECT outcome, COUNT(*) FROM contact_events GROUP BY outcome`, stats.Contacts); err != nil {
		return nil, err
	}

	rows, err := s.db.Reader.QueryContext(ctx,
		`SELECT path, COUNT(*) AS n FROM visitors GROUP BY path ORDER BY n DESC, path LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("stats: top paths: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var pc PathCount
		if err := rows.Scan(&pc.Path, &pc.Count); err != nil {
			return nil, fmt.Errorf("stats: scan top path: %w", err)
		}
		stats.TopPaths = append(stats.TopPaths, pc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stats: top paths: %w", err)
	}

	stats.RecentVisitors, err = s.RecentVisitors(ctx, 50)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) groupCount(ctx context.Context, query string, dst map[string]int64) error {
	rows, err := s.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		var n int64
		if err := rows.Scan(&k, &n); err != nil {
			return fmt.Errorf("stats: scan: %w", err)
		}
		dst[k] = n
	}
	return rows.Err()
}

// RecentVisitors returns up to limit visits, newest first.
func (s *Store) RecentVisitors(ctx context.Context, limit int) ([]Visit, error) {
	rows, err := s.db.Reader.QueryContext(ctx,
		`SELECT id, hashed_ip, user_agent, path, created_at FROM visitors ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("recent visitors: %w", err)
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		var v Visit
		var ts int64
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &ts); err != nil {
			return nil, fmt.Errorf("recent visitors: scan: %w", err)
		}
		v.Timestamp = time.Unix(ts, 0).UTC()
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// Cleanup deletes visits and download records older than retention.
func (s *Store) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention).Unix()

	var total int64
	for _, table := range []string{"visitors", "resume_downloads"} {
		res, err := s.db.Writer.ExecContext(ctx, `DELETE FROM `+table+` WHERE created_at < ?`, cutoff)
		if err != nil {
			return total, fmt.Errorf("cleanup %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}
