package collector

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gitfolio/internal/github"
	"gitfolio/internal/models"
	"gitfolio/pkg/errors"
	"gitfolio/pkg/logger"
	"gitfolio/pkg/telemetry"
)

const (
	// Only the first readmeProbeLimit most-recently-updated repos get a
	// README probe; the first fallbackRepoLimit feed the events fallback.
	// Both cutoffs are load-bearing cost controls.
	readmeProbeLimit  = 12
	fallbackRepoLimit = 30
	topLanguageLimit  = 6

	unrecognizedLicense = "NOASSERTION"
	pushEventType       = "PushEvent"

	eventsFallbackReason = "Could not fetch recent activity events; using repo update dates as fallback."
)

// GitHubAPI is the upstream surface the collector consumes.
type GitHubAPI interface {
	FetchUser(ctx context.Context, username string) (*github.User, error)
	FetchRepos(ctx context.Context, username string) ([]github.Repo, error)
	ProbeReadme(ctx context.Context, fullName string) github.ReadmeProbe
	FetchEvents(ctx context.Context, username string) ([]github.Event, error)
}

// Collector builds a normalized snapshot of a profile's public footprint.
// Each Collect call is self-contained; the Collector itself holds no
// per-request state.
type Collector struct {
	gh     GitHubAPI
	logger *logger.Logger
	tracer trace.Tracer
}

// New creates a collector over the given upstream client
func New(gh GitHubAPI, log *logger.Logger) *Collector {
	if log == nil {
		log = logger.Get()
	}
	return &Collector{
		gh:     gh,
		logger: log,
		tracer: otel.Tracer("gitfolio/collector"),
	}
}

// ParseUsername derives the username from a profile URL. The host must be
// exactly github.com and the path must have at least one segment.
func ParseUsername(profileURL string) (string, error) {
	u, err := url.Parse(profileURL)
	if err != nil || u.Host != "github.com" {
		return "", errors.New(errors.ErrorTypeValidation, "profileUrl must be a valid github.com profile URL").
			WithField("profileUrl")
	}

	for _, part := range strings.Split(u.Path, "/") {
		if part != "" {
			return part, nil
		}
	}
	return "", errors.New(errors.ErrorTypeValidation, "profileUrl has no username path segment").
		WithField("profileUrl")
}

// Collect fetches the bounded sequence of upstream resources for a profile
// and returns the normalized draft. The user fetch is the only fatal read;
// every later step degrades instead of failing.
func (c *Collector) Collect(ctx context.Context, profileURL string) (*models.AnalysisDraft, error) {
	username, err := ParseUsername(profileURL)
	if err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "collector.Collect")
	defer span.End()
	telemetry.AddSpanAttributes(ctx, attribute.String("github.username", username))

	log := c.logger.WithUsername(username)

	if err := telemetry.TraceFunction(ctx, c.tracer, "collector.fetchUser", func(ctx context.Context) error {
		_, err := c.gh.FetchUser(ctx, username)
		return err
	}); err != nil {
		return nil, err
	}

	repos := c.fetchRepos(ctx, username, log)
	probes := c.probeReadmes(ctx, repos)

	draft := buildDraft(profileURL, username, repos, probes)
	c.countActivity(ctx, username, draft, log)

	telemetry.AddSpanAttributes(ctx,
		attribute.Int("repo_count", draft.Aggregates.RepoCount),
		attribute.Bool("partial", draft.IsPartial),
	)
	log.Info().
		Int("repo_count", draft.Aggregates.RepoCount).
		Int("recent_commit_days", draft.Aggregates.RecentCommitDays).
		Bool("partial", draft.IsPartial).
		Msg("profile collected")

	return draft, nil
}

// fetchRepos tolerates any repository-list failure and reports zero repos.
func (c *Collector) fetchRepos(ctx context.Context, username string, log *logger.Logger) []github.Repo {
	var repos []github.Repo
	_ = telemetry.TraceFunction(ctx, c.tracer, "collector.fetchRepos", func(ctx context.Context) error {
		fetched, err := c.gh.FetchRepos(ctx, username)
		if err != nil {
			log.Warn().Err(err).Msg("repository list fetch failed, continuing with zero repos")
			return err
		}
		repos = fetched
		return nil
	})
	return repos
}

// probeReadmes probes the first readmeProbeLimit repos, sequentially.
func (c *Collector) probeReadmes(ctx context.Context, repos []github.Repo) map[string]github.ReadmeProbe {
	probes := make(map[string]github.ReadmeProbe)
	_ = telemetry.TraceFunction(ctx, c.tracer, "collector.probeReadmes", func(ctx context.Context) error {
		for i, repo := range repos {
			if i >= readmeProbeLimit {
				break
			}
			if repo.FullName == "" {
				continue
			}
			probes[repo.FullName] = c.gh.ProbeReadme(ctx, repo.FullName)
		}
		return nil
	})
	return probes
}

// buildDraft converts the raw repo list into snapshots and aggregates.
func buildDraft(profileURL, username string, repos []github.Repo, probes map[string]github.ReadmeProbe) *models.AnalysisDraft {
	snapshots := make([]models.RepoSnapshot, 0, len(repos))

	languageCounts := make(map[string]int)
	var languageOrder []string

	var readmeCount, readmeLenSum int
	var topicsCount, licenseCount int
	var starsTotal, forksTotal int

	for _, r := range repos {
		starsTotal += r.StargazersCount
		forksTotal += r.ForksCount

		if r.Language != nil && *r.Language != "" {
			if _, seen := languageCounts[*r.Language]; !seen {
				languageOrder = append(languageOrder, *r.Language)
			}
			languageCounts[*r.Language]++
		}

		hasTopics := len(r.Topics) > 0
		if hasTopics {
			topicsCount++
		}

		hasLicense := r.License != nil && r.License.SPDXID != "" && r.License.SPDXID != unrecognizedLicense
		if hasLicense {
			licenseCount++
		}

		probe := probes[r.FullName]
		if probe.Exists {
			readmeCount++
			readmeLenSum += probe.Length
		}

		lastPushAt := r.PushedAt
		if lastPushAt == "" {
			lastPushAt = r.UpdatedAt
		}

		snapshots = append(snapshots, models.RepoSnapshot{
			Name:            r.Name,
			FullName:        r.FullName,
			URL:             r.HTMLURL,
			Description:     r.Description,
			PrimaryLanguage: r.Language,
			Stars:           r.StargazersCount,
			Forks:           r.ForksCount,
			OpenIssues:      r.OpenIssuesCount,
			HasReadme:       probe.Exists,
			ReadmeLength:    probe.Length,
			HasLicense:      hasLicense,
			HasTopics:       hasTopics,
			TopicsCount:     len(r.Topics),
			LastPushAt:      lastPushAt,
		})
	}

	repoCount := len(snapshots)
	agg := models.Aggregates{
		RepoCount:     repoCount,
		LangDiversity: len(languageCounts),
		StarsTotal:    starsTotal,
		ForksTotal:    forksTotal,
	}
	if repoCount > 0 {
		agg.ReadmeCoverage = float64(readmeCount) / float64(repoCount)
		agg.TopicsCoverage = float64(topicsCount) / float64(repoCount)
		agg.LicenseCoverage = float64(licenseCount) / float64(repoCount)
	}
	if readmeCount > 0 {
		agg.AvgReadmeLen = float64(readmeLenSum) / float64(readmeCount)
	}

	return &models.AnalysisDraft{
		ProfileURL:   profileURL,
		Username:     username,
		Repos:        snapshots,
		TopLanguages: topLanguages(languageCounts, languageOrder, repoCount),
		Aggregates:   agg,
	}
}

// topLanguages ranks languages by repo count, ties broken by first
// encounter, capped at topLanguageLimit.
func topLanguages(counts map[string]int, order []string, repoCount int) []models.LanguageShare {
	ranked := make([]string, len(order))
	copy(ranked, order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i]] > counts[ranked[j]]
	})

	if len(ranked) > topLanguageLimit {
		ranked = ranked[:topLanguageLimit]
	}

	shares := make([]models.LanguageShare, 0, len(ranked))
	for _, lang := range ranked {
		share := 0.0
		if repoCount > 0 {
			share = float64(counts[lang]) / float64(repoCount)
		}
		shares = append(shares, models.LanguageShare{Language: lang, Share: share})
	}
	return shares
}

// countActivity fills RecentCommitDays from the public events feed, falling
// back to repo push dates when the feed is unavailable. The fallback marks
// the draft partial with a fixed reason.
func (c *Collector) countActivity(ctx context.Context, username string, draft *models.AnalysisDraft, log *logger.Logger) {
	var events []github.Event
	err := telemetry.TraceFunction(ctx, c.tracer, "collector.fetchEvents", func(ctx context.Context) error {
		fetched, err := c.gh.FetchEvents(ctx, username)
		if err != nil {
			return err
		}
		events = fetched
		return nil
	})

	if err == nil {
		days := make(map[string]struct{})
		for _, e := range events {
			if e.Type != pushEventType {
				continue
			}
			if d := dayOf(e.CreatedAt); d != "" {
				days[d] = struct{}{}
			}
		}
		draft.Aggregates.RecentCommitDays = len(days)
		return
	}

	log.Warn().Err(err).Msg("events fetch failed, falling back to repo push dates")

	days := make(map[string]struct{})
	for i, snap := range draft.Repos {
		if i >= fallbackRepoLimit {
			break
		}
		if d := dayOf(snap.LastPushAt); d != "" {
			days[d] = struct{}{}
		}
	}
	draft.Aggregates.RecentCommitDays = len(days)
	draft.IsPartial = true
	reason := eventsFallbackReason
	draft.PartialReason = &reason
}

// dayOf slices an ISO-8601 timestamp down to its UTC calendar date.
func dayOf(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ""
}
