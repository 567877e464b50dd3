package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestAnalysisValidate(t *testing.T) {
	reason := "Could not fetch recent activity events; using repo update dates as fallback."

	tests := []struct {
		name    string
		mutate  func(a *Analysis)
		wantErr error
	}{
		{
			name:    "valid analysis",
			mutate:  func(a *Analysis) {},
			wantErr: nil,
		},
		{
			name:    "score above range",
			mutate:  func(a *Analysis) { a.ScoreActivity = 101 },
			wantErr: ErrScoreOutOfRange,
		},
		{
			name:    "score below range",
			mutate:  func(a *Analysis) { a.ScoreDocumentation = -1 },
			wantErr: ErrScoreOutOfRange,
		},
		{
			name:    "negative repo count",
			mutate:  func(a *Analysis) { a.RepoCount = -3 },
			wantErr: ErrInvalidRepoCount,
		},
		{
			name:    "partial without reason",
			mutate:  func(a *Analysis) { a.IsPartial = true },
			wantErr: ErrMissingPartialReason,
		},
		{
			name: "reason without partial",
			mutate: func(a *Analysis) {
				a.PartialReason = &reason
			},
			wantErr: ErrUnexpectedPartialReason,
		},
		{
			name: "partial with reason",
			mutate: func(a *Analysis) {
				a.IsPartial = true
				a.PartialReason = &reason
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Analysis{
				ProfileURL:   "https://github.com/octocat",
				Username:     "octocat",
				ScoreOverall: 50,
				RepoCount:    2,
			}
			tt.mutate(a)
			if err := a.Validate(); err != tt.wantErr {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRepoSnapshotValidate(t *testing.T) {
	tests := []struct {
		name    string
		snap    RepoSnapshot
		wantErr error
	}{
		{
			name:    "valid snapshot",
			snap:    RepoSnapshot{FullName: "octocat/hello", HasReadme: true, ReadmeLength: 120},
			wantErr: nil,
		},
		{
			name:    "missing full name",
			snap:    RepoSnapshot{},
			wantErr: ErrMissingFullName,
		},
		{
			name:    "negative stars",
			snap:    RepoSnapshot{FullName: "octocat/hello", Stars: -1},
			wantErr: ErrNegativeCount,
		},
		{
			name:    "readme length without readme",
			snap:    RepoSnapshot{FullName: "octocat/hello", ReadmeLength: 50},
			wantErr: ErrReadmeLengthWithoutReadme,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.snap.Validate(); err != tt.wantErr {
				t.Errorf("Expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// The API serves stored records as-is, so the JSON field names are part of
// the response contract.
func TestAnalysisWireNames(t *testing.T) {
	a := Analysis{
		ProfileURL:   "https://github.com/octocat",
		ScoreOverall: 72,
		Repos: []RepoSnapshot{
			{FullName: "octocat/hello", HasReadme: true, ReadmeLength: 10, LastPushAt: "2026-08-01T00:00:00Z"},
		},
	}

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, field := range []string{
		`"profileUrl"`, `"scoreOverall"`, `"scoreCodeQuality"`, `"pinnedCount"`,
		`"topLanguages"`, `"recentCommitDays"`, `"redFlags"`, `"isPartial"`, `"partialReason"`,
		`"fullName"`, `"hasReadme"`, `"readmeLength"`, `"lastPushAt"`,
	} {
		if !strings.Contains(string(data), field) {
			t.Errorf("Expected field %s in wire format:\n%s", field, data)
		}
	}
}
