package storage

import (
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"gitfolio/internal/models"
	"gitfolio/pkg/errors"
)

var analysisTestColumns = []string{
	"id", "profile_url", "username", "created_at",
	"score_overall", "score_documentation", "score_code_quality", "score_activity",
	"score_project_impact", "score_discoverability",
	"repo_count", "pinned_count", "top_languages", "recent_commit_days",
	"strengths", "red_flags", "suggestions", "repos", "is_partial", "partial_reason",
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresStoreWithDB(db), mock
}

func validAnalysis() *models.Analysis {
	return &models.Analysis{
		ProfileURL:           "https://github.com/octocat",
		Username:             "octocat",
		ScoreOverall:         72,
		ScoreDocumentation:   80,
		ScoreCodeQuality:     65,
		ScoreActivity:        70,
		ScoreProjectImpact:   60,
		ScoreDiscoverability: 75,
		RepoCount:            8,
		TopLanguages:         []models.LanguageShare{{Language: "Go", Share: 0.5}},
		RecentCommitDays:     30,
		Strengths:            []string{"s1"},
		RedFlags:             []string{},
		Suggestions:          []string{"g1", "g2"},
		Repos: []models.RepoSnapshot{
			{Name: "hello", FullName: "octocat/hello", HasReadme: true, ReadmeLength: 900},
		},
	}
}

func analysisRow(id string, createdAt time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(analysisTestColumns).AddRow(
		id, "https://github.com/octocat", "octocat", createdAt,
		72, 80, 65, 70,
		60, 75,
		8, 0, []byte(`[{"language":"Go","share":0.5}]`), 30,
		[]byte(`["s1"]`), []byte(`[]`), []byte(`["g1","g2"]`),
		[]byte(`[{"name":"hello","fullName":"octocat/hello","url":"","description":null,"primaryLanguage":null,"stars":0,"forks":0,"openIssues":0,"hasReadme":true,"readmeLength":900,"hasLicense":false,"hasTopics":false,"topicsCount":0,"lastPushAt":""}]`),
		false, nil,
	)
}

func TestCreateAnalysis(t *testing.T) {
	store, mock := newMockStore(t)
	createdAt := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO github_analyses")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("abc-123", createdAt))

	input := validAnalysis()
	created, err := store.CreateAnalysis(input)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if created.ID != "abc-123" {
		t.Errorf("Expected generated id, got %q", created.ID)
	}
	if !created.CreatedAt.Equal(createdAt) {
		t.Errorf("Expected createdAt %v, got %v", createdAt, created.CreatedAt)
	}
	if created.Username != "octocat" || created.ScoreOverall != 72 {
		t.Errorf("Expected input fields preserved, got %+v", created)
	}
	if input.ID != "" {
		t.Errorf("Expected input record untouched, got id %q", input.ID)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestCreateAnalysis_RejectsInvalid(t *testing.T) {
	store, mock := newMockStore(t)

	a := validAnalysis()
	a.ScoreOverall = 150

	_, err := store.CreateAnalysis(a)
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if !errors.IsType(err, errors.ErrorTypeValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}

	// No query should have reached the database
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unexpected database interaction: %v", err)
	}
}

func TestCreateAnalysis_RejectsPartialWithoutReason(t *testing.T) {
	store, _ := newMockStore(t)

	a := validAnalysis()
	a.IsPartial = true

	_, err := store.CreateAnalysis(a)
	if err == nil {
		t.Fatal("Expected validation error for partial without reason")
	}
}

func TestGetAnalysis(t *testing.T) {
	store, mock := newMockStore(t)
	createdAt := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM github_analyses WHERE id = $1")).
		WithArgs("abc-123").
		WillReturnRows(analysisRow("abc-123", createdAt))

	a, err := store.GetAnalysis("abc-123")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if a.ID != "abc-123" || a.Username != "octocat" {
		t.Errorf("Unexpected analysis: %+v", a)
	}
	if len(a.TopLanguages) != 1 || a.TopLanguages[0].Language != "Go" {
		t.Errorf("Expected decoded top languages, got %+v", a.TopLanguages)
	}
	if len(a.Repos) != 1 || a.Repos[0].FullName != "octocat/hello" {
		t.Errorf("Expected decoded repos, got %+v", a.Repos)
	}
	if a.RedFlags == nil || len(a.RedFlags) != 0 {
		t.Errorf("Expected empty red flags slice, got %v", a.RedFlags)
	}
	if a.PartialReason != nil {
		t.Errorf("Expected nil partialReason, got %q", *a.PartialReason)
	}
}

func TestGetAnalysis_NotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM github_analyses WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(analysisTestColumns))

	_, err := store.GetAnalysis("missing")
	if err == nil {
		t.Fatal("Expected error")
	}
	if !errors.IsType(err, errors.ErrorTypeNotFound) {
		t.Errorf("Expected not found error, got %v", err)
	}
}

func TestListAnalyses(t *testing.T) {
	store, mock := newMockStore(t)

	rows := analysisRow("id-2", time.Date(2026, 8, 16, 0, 0, 0, 0, time.UTC))
	rows.AddRow(
		"id-1", "https://github.com/octocat", "octocat", time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
		50, 50, 50, 50,
		50, 50,
		3, 0, []byte(`[]`), 10,
		[]byte(`[]`), []byte(`[]`), []byte(`[]`), []byte(`[]`),
		true, "Could not fetch recent activity events; using repo update dates as fallback.",
	)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT $1")).
		WithArgs(5).
		WillReturnRows(rows)

	analyses, err := store.ListAnalyses(5)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(analyses) != 2 {
		t.Fatalf("Expected 2 analyses, got %d", len(analyses))
	}
	if analyses[0].ID != "id-2" || analyses[1].ID != "id-1" {
		t.Errorf("Expected newest first, got %s then %s", analyses[0].ID, analyses[1].ID)
	}
	if !analyses[1].IsPartial || analyses[1].PartialReason == nil {
		t.Errorf("Expected partial flags to round-trip, got %+v", analyses[1])
	}
}

func TestListAnalyses_DefaultLimit(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT $1")).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(analysisTestColumns))

	analyses, err := store.ListAnalyses(0)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(analyses) != 0 {
		t.Errorf("Expected empty result, got %d", len(analyses))
	}
}
