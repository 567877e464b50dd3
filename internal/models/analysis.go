package models

import "time"

// RepoSnapshot is the per-repository record captured at analysis time.
// It is built once by the collector and stored verbatim inside the
// parent Analysis.
type RepoSnapshot struct {
	Name            string  `json:"name"`
	FullName        string  `json:"fullName"`
	URL             string  `json:"url"`
	Description     *string `json:"description"`
	PrimaryLanguage *string `json:"primaryLanguage"`
	Stars           int     `json:"stars"`
	Forks           int     `json:"forks"`
	OpenIssues      int     `json:"openIssues"`
	HasReadme       bool    `json:"hasReadme"`
	ReadmeLength    int     `json:"readmeLength"`
	HasLicense      bool    `json:"hasLicense"`
	HasTopics       bool    `json:"hasTopics"`
	TopicsCount     int     `json:"topicsCount"`
	LastPushAt      string  `json:"lastPushAt"`
}

// LanguageShare is one entry of the top-languages breakdown. Share is the
// fraction of analyzed repos whose primary language matches; repos without
// a primary language stay in the denominator, so shares need not sum to 1.
type LanguageShare struct {
	Language string  `json:"language"`
	Share    float64 `json:"share"`
}

// Aggregates holds the collector's summary counters, the sole input to the
// scoring engine. Coverages are fractions in [0,1].
type Aggregates struct {
	RepoCount        int     `json:"repoCount"`
	ReadmeCoverage   float64 `json:"readmeCoverage"`
	AvgReadmeLen     float64 `json:"avgReadmeLen"`
	TopicsCoverage   float64 `json:"topicsCoverage"`
	LicenseCoverage  float64 `json:"licenseCoverage"`
	RecentCommitDays int     `json:"recentCommitDays"`
	LangDiversity    int     `json:"langDiversity"`
	StarsTotal       int     `json:"starsTotal"`
	ForksTotal       int     `json:"forksTotal"`
}

// AnalysisDraft is the collector's output: everything an Analysis needs
// except the scores, id, and creation timestamp.
type AnalysisDraft struct {
	ProfileURL    string
	Username      string
	Repos         []RepoSnapshot
	TopLanguages  []LanguageShare
	Aggregates    Aggregates
	IsPartial     bool
	PartialReason *string
}

// Analysis is one completed analysis run, the unit of persistence.
// ID and CreatedAt are assigned by the store on insert; the record is
// immutable afterwards.
type Analysis struct {
	ID                    string          `json:"id"`
	ProfileURL            string          `json:"profileUrl"`
	Username              string          `json:"username"`
	CreatedAt             time.Time       `json:"createdAt"`
	ScoreOverall          int             `json:"scoreOverall"`
	ScoreDocumentation    int             `json:"scoreDocumentation"`
	ScoreCodeQuality      int             `json:"scoreCodeQuality"`
	ScoreActivity         int             `json:"scoreActivity"`
	ScoreProjectImpact    int             `json:"scoreProjectImpact"`
	ScoreDiscoverability  int             `json:"scoreDiscoverability"`
	RepoCount             int             `json:"repoCount"`
	PinnedCount           int             `json:"pinnedCount"`
	TopLanguages          []LanguageShare `json:"topLanguages"`
	RecentCommitDays      int             `json:"recentCommitDays"`
	Strengths             []string        `json:"strengths"`
	RedFlags              []string        `json:"redFlags"`
	Suggestions           []string        `json:"suggestions"`
	Repos                 []RepoSnapshot  `json:"repos"`
	IsPartial             bool            `json:"isPartial"`
	PartialReason         *string         `json:"partialReason"`
}

// Validate checks the cross-field invariants of a finished Analysis.
func (a *Analysis) Validate() error {
	for _, s := range []int{
		a.ScoreOverall, a.ScoreDocumentation, a.ScoreCodeQuality,
		a.ScoreActivity, a.ScoreProjectImpact, a.ScoreDiscoverability,
	} {
		if s < 0 || s > 100 {
			return ErrScoreOutOfRange
		}
	}
	if a.RepoCount < 0 {
		return ErrInvalidRepoCount
	}
	if a.IsPartial && a.PartialReason == nil {
		return ErrMissingPartialReason
	}
	if !a.IsPartial && a.PartialReason != nil {
		return ErrUnexpectedPartialReason
	}
	return nil
}

// Validate checks a snapshot's count invariants.
func (r *RepoSnapshot) Validate() error {
	if r.FullName == "" {
		return ErrMissingFullName
	}
	if r.Stars < 0 || r.Forks < 0 || r.OpenIssues < 0 {
		return ErrNegativeCount
	}
	if !r.HasReadme && r.ReadmeLength != 0 {
		return ErrReadmeLengthWithoutReadme
	}
	return nil
}

// Custom errors for validation
var (
	ErrMissingFullName           = &ValidationError{Field: "fullName", Message: "fullName is required"}
	ErrNegativeCount             = &ValidationError{Field: "counts", Message: "counts cannot be negative"}
	ErrReadmeLengthWithoutReadme = &ValidationError{Field: "readmeLength", Message: "readmeLength must be 0 when hasReadme is false"}
	ErrScoreOutOfRange           = &ValidationError{Field: "scores", Message: "scores must be within [0,100]"}
	ErrInvalidRepoCount          = &ValidationError{Field: "repoCount", Message: "repoCount cannot be negative"}
	ErrMissingPartialReason      = &ValidationError{Field: "partialReason", Message: "partialReason is required when isPartial is true"}
	ErrUnexpectedPartialReason   = &ValidationError{Field: "partialReason", Message: "partialReason must be empty when isPartial is false"}
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
