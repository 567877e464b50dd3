package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"gitfolio/internal/models"
	"gitfolio/pkg/errors"
)

// PostgresStore persists completed analyses. Rows are append-only: the
// store assigns id and created_at on insert and exposes no update or
// delete operation.
type PostgresStore struct {
	db *sql.DB
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	MaxConns int
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore(cfg Config) (*PostgresStore, error) {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreWithDB wraps an existing connection (used by tests)
func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Ping checks database connectivity
func (s *PostgresStore) Ping() error {
	return s.db.Ping()
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const analysisColumns = `id, profile_url, username, created_at,
		score_overall, score_documentation, score_code_quality, score_activity,
		score_project_impact, score_discoverability,
		repo_count, pinned_count, top_languages, recent_commit_days,
		strengths, red_flags, suggestions, repos, is_partial, partial_reason`

// CreateAnalysis inserts an analysis and returns it with the generated id
// and creation timestamp filled in. The input record is not mutated.
func (s *PostgresStore) CreateAnalysis(a *models.Analysis) (*models.Analysis, error) {
	if err := a.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeValidation, "refusing to store invalid analysis")
	}

	topLanguages, err := json.Marshal(emptyIfNilLanguages(a.TopLanguages))
	if err != nil {
		return nil, fmt.Errorf("failed to encode top languages: %w", err)
	}
	strengths, err := json.Marshal(emptyIfNil(a.Strengths))
	if err != nil {
		return nil, fmt.Errorf("failed to encode strengths: %w", err)
	}
	redFlags, err := json.Marshal(emptyIfNil(a.RedFlags))
	if err != nil {
		return nil, fmt.Errorf("failed to encode red flags: %w", err)
	}
	suggestions, err := json.Marshal(emptyIfNil(a.Suggestions))
	if err != nil {
		return nil, fmt.Errorf("failed to encode suggestions: %w", err)
	}
	repos, err := json.Marshal(emptyIfNilRepos(a.Repos))
	if err != nil {
		return nil, fmt.Errorf("failed to encode repos: %w", err)
	}

	insertQuery := `
		INSERT INTO github_analyses (
			profile_url, username,
			score_overall, score_documentation, score_code_quality, score_activity,
			score_project_impact, score_discoverability,
			repo_count, pinned_count, top_languages, recent_commit_days,
			strengths, red_flags, suggestions, repos, is_partial, partial_reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, created_at`

	created := *a
	err = s.db.QueryRow(insertQuery,
		a.ProfileURL, a.Username,
		a.ScoreOverall, a.ScoreDocumentation, a.ScoreCodeQuality, a.ScoreActivity,
		a.ScoreProjectImpact, a.ScoreDiscoverability,
		a.RepoCount, a.PinnedCount, topLanguages, a.RecentCommitDays,
		strengths, redFlags, suggestions, repos, a.IsPartial, nullableString(a.PartialReason),
	).Scan(&created.ID, &created.CreatedAt)

	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeDatabase, "failed to insert analysis")
	}

	return &created, nil
}

// GetAnalysis loads one analysis by id
func (s *PostgresStore) GetAnalysis(id string) (*models.Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM github_analyses WHERE id = $1`

	a, err := scanAnalysis(s.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrorTypeNotFound, "Analysis not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeDatabase, "failed to query analysis")
	}
	return a, nil
}

// ListAnalyses returns the newest analyses first, up to limit
func (s *PostgresStore) ListAnalyses(limit int) ([]*models.Analysis, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT ` + analysisColumns + ` FROM github_analyses ORDER BY created_at DESC LIMIT $1`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeDatabase, "failed to list analyses")
	}
	defer rows.Close()

	analyses := []*models.Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeDatabase, "failed to scan analysis row")
		}
		analyses = append(analyses, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeDatabase, "failed to read analysis rows")
	}

	return analyses, nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAnalysis(row scanner) (*models.Analysis, error) {
	var a models.Analysis
	var topLanguages, strengths, redFlags, suggestions, repos []byte
	var partialReason sql.NullString

	err := row.Scan(
		&a.ID, &a.ProfileURL, &a.Username, &a.CreatedAt,
		&a.ScoreOverall, &a.ScoreDocumentation, &a.ScoreCodeQuality, &a.ScoreActivity,
		&a.ScoreProjectImpact, &a.ScoreDiscoverability,
		&a.RepoCount, &a.PinnedCount, &topLanguages, &a.RecentCommitDays,
		&strengths, &redFlags, &suggestions, &repos, &a.IsPartial, &partialReason,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(topLanguages, &a.TopLanguages); err != nil {
		return nil, fmt.Errorf("failed to decode top languages: %w", err)
	}
	if err := json.Unmarshal(strengths, &a.Strengths); err != nil {
		return nil, fmt.Errorf("failed to decode strengths: %w", err)
	}
	if err := json.Unmarshal(redFlags, &a.RedFlags); err != nil {
		return nil, fmt.Errorf("failed to decode red flags: %w", err)
	}
	if err := json.Unmarshal(suggestions, &a.Suggestions); err != nil {
		return nil, fmt.Errorf("failed to decode suggestions: %w", err)
	}
	if err := json.Unmarshal(repos, &a.Repos); err != nil {
		return nil, fmt.Errorf("failed to decode repos: %w", err)
	}

	if partialReason.Valid {
		a.PartialReason = &partialReason.String
	}

	return &a, nil
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func emptyIfNilLanguages(s []models.LanguageShare) []models.LanguageShare {
	if s == nil {
		return []models.LanguageShare{}
	}
	return s
}

func emptyIfNilRepos(s []models.RepoSnapshot) []models.RepoSnapshot {
	if s == nil {
		return []models.RepoSnapshot{}
	}
	return s
}
