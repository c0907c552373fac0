// Package runs archives finished crawls and their records in SQLite.
package runs

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pevans/udnfetch/discovery"
	"github.com/pevans/udnfetch/newsfeed"
)

// Custom errors for run operations
var (
	ErrRunNotFound = errors.New("run not found")
	ErrNilResult   = errors.New("run result is nil")
)

// Store manages archived runs using SQLite.
type Store struct {
	db *sql.DB
}

// Run is the archived summary of one crawl.
type Run struct {
	RunID        uuid.UUID `json:"run_id"`
	Keyword      string    `json:"keyword"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
	MaxArticles  int       `json:"max_articles"`
	MaxPages     *int      `json:"max_pages,omitempty"`
	TotalResults int       `json:"total_results"`
	Pages        int       `json:"pages"`
	PagesVisited int       `json:"pages_visited"`
	LinkCount    int       `json:"link_count"`
	RecordCount  int       `json:"record_count"`
	State        string    `json:"state"`
	Error        *string   `json:"error,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Partial reports whether the run stopped early.
func (r *Run) Partial() bool {
	return r.Error != nil
}

// RunFilter represents filtering options for listing runs.
type RunFilter struct {
	Keyword *string // Exact keyword match
	Limit   int
	Offset  int
}

// NewStore opens (or creates) the archive at dbPath.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:"
	// databases consistent.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the runs and articles tables if they don't exist.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		keyword TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		max_articles INTEGER NOT NULL,
		max_pages INTEGER,
		total_results INTEGER NOT NULL DEFAULT 0,
		pages INTEGER NOT NULL DEFAULT 0,
		pages_visited INTEGER NOT NULL DEFAULT 0,
		link_count INTEGER NOT NULL DEFAULT 0,
		record_count INTEGER NOT NULL DEFAULT 0,
		state TEXT NOT NULL,
		error TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS articles (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		news_id TEXT NOT NULL,
		title TEXT NOT NULL,
		date TEXT NOT NULL,
		content TEXT NOT NULL,
		url TEXT,
		PRIMARY KEY (run_id, position)
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun archives a finished crawl with its records, in record order.
func (s *Store) SaveRun(result *discovery.RunResult) (*Run, error) {
	if result == nil {
		return nil, ErrNilResult
	}

	run := &Run{
		RunID:        result.ID,
		Keyword:      result.Criteria.Keyword,
		StartDate:    result.Criteria.StartDate,
		EndDate:      result.Criteria.EndDate,
		MaxArticles:  result.Limits.MaxArticles,
		TotalResults: result.TotalResults,
		Pages:        result.Pages,
		PagesVisited: result.PagesVisited,
		LinkCount:    len(result.Links),
		RecordCount:  len(result.Records),
		State:        result.State.String(),
		StartedAt:    result.StartedAt.Truncate(0),
		FinishedAt:   result.FinishedAt.Truncate(0),
	}
	if n, ok := result.Limits.PageCap(); ok {
		run.MaxPages = &n
	}
	if result.Err != nil {
		msg := result.Err.Error()
		run.Error = &msg
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (
			run_id, keyword, start_date, end_date, max_articles, max_pages,
			total_results, pages, pages_visited, link_count, record_count,
			state, error, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.RunID.String(), run.Keyword, run.StartDate, run.EndDate,
		run.MaxArticles, run.MaxPages,
		run.TotalResults, run.Pages, run.PagesVisited, run.LinkCount, run.RecordCount,
		run.State, run.Error,
		formatTime(&run.StartedAt), formatTime(&run.FinishedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO articles (run_id, position, news_id, title, date, content, url)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare article insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range result.Records {
		_, err := stmt.Exec(run.RunID.String(), i, rec.NewsID, rec.Title, rec.Date, rec.Content, rec.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to insert article %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}
	return run, nil
}

const runColumns = `
	run_id, keyword, start_date, end_date, max_articles, max_pages,
	total_results, pages, pages_visited, link_count, record_count,
	state, error, started_at, finished_at
`

// GetRun retrieves a run by ID.
func (s *Store) GetRun(runID uuid.UUID) (*Run, error) {
	row := s.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE run_id = ?", runID.String())
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	return run, nil
}

// ListRuns lists runs, newest first.
func (s *Store) ListRuns(filter RunFilter) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs"

	var whereClauses []string
	var args []any

	if filter.Keyword != nil {
		whereClauses = append(whereClauses, "keyword = ?")
		args = append(args, *filter.Keyword)
	}
	if len(whereClauses) > 0 {
		query += " WHERE " + strings.Join(whereClauses, " AND ")
	}

	query += " ORDER BY started_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	} else if filter.Offset > 0 {
		// SQLite requires a LIMIT before OFFSET
		query += " LIMIT -1"
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

// Articles returns the records of a run in their original order.
func (s *Store) Articles(runID uuid.UUID) ([]newsfeed.ArticleRecord, error) {
	if _, err := s.GetRun(runID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT news_id, title, date, content, url
		FROM articles
		WHERE run_id = ?
		ORDER BY position
	`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	records := []newsfeed.ArticleRecord{}
	for rows.Next() {
		var rec newsfeed.ArticleRecord
		var url sql.NullString
		if err := rows.Scan(&rec.NewsID, &rec.Title, &rec.Date, &rec.Content, &url); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		rec.URL = url.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate articles: %w", err)
	}

	return records, nil
}

// DeleteRun deletes a run and its articles.
func (s *Store) DeleteRun(runID uuid.UUID) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec("DELETE FROM runs WHERE run_id = ?", runID.String())
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrRunNotFound
	}

	if _, err := tx.Exec("DELETE FROM articles WHERE run_id = ?", runID.String()); err != nil {
		return fmt.Errorf("failed to delete articles: %w", err)
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun parses one runs row. sql.ErrNoRows is returned unwrapped.
func scanRun(row rowScanner) (*Run, error) {
	var runIDStr, startedAtStr, finishedAtStr string
	var maxPages sql.NullInt64
	var runErr sql.NullString
	run := &Run{}

	err := row.Scan(
		&runIDStr, &run.Keyword, &run.StartDate, &run.EndDate,
		&run.MaxArticles, &maxPages,
		&run.TotalResults, &run.Pages, &run.PagesVisited, &run.LinkCount, &run.RecordCount,
		&run.State, &runErr, &startedAtStr, &finishedAtStr,
	)
	if err != nil {
		return nil, err
	}

	run.RunID, err = uuid.Parse(runIDStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run ID: %w", err)
	}
	if maxPages.Valid {
		n := int(maxPages.Int64)
		run.MaxPages = &n
	}
	if runErr.Valid {
		run.Error = &runErr.String
	}
	run.StartedAt = parseTime(startedAtStr)
	run.FinishedAt = parseTime(finishedAtStr)

	return run, nil
}

// Helper functions for time formatting
// storedTimeLayout is fixed width so that text ordering matches time
// ordering.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Truncate(0).UTC().Format(storedTimeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.Truncate(0)
}
