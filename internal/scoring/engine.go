package scoring

import (
	"math"

	"gitfolio/internal/models"
)

// Narrative copy. These strings are part of the stored record contract;
// changing them changes what past and future analyses look like side by side.
const (
	strengthReadme   = "Most repositories have a README, which helps recruiters quickly understand your work."
	strengthTopics   = "Many repositories use topics, improving search/discoverability."
	strengthActivity = "Recent and consistent activity signals momentum and learning consistency."
	strengthStars    = "Your projects show external interest (stars), which helps with credibility."

	redFlagReadme   = "Many repositories are missing READMEs, which makes it hard for recruiters to evaluate impact."
	redFlagActivity = "Low recent activity can look like an inactive portfolio."
	redFlagTopics   = "Few repos have topics, reducing discoverability and clarity."

	suggestReadmes      = "Pick your top 3–5 repositories and add recruiter-focused READMEs (problem, approach, setup, screenshots, tradeoffs, and results)."
	suggestTopics       = "Add topics and short descriptions to each showcased repository so people can understand them at a glance."
	suggestProjectStory = "Create a simple project story: add a demo link, key features, and a clear 'what I learned' section for each project."
	suggestLicense      = "Add a LICENSE file to public repos you want recruiters to review—signals professionalism."
	suggestDiversity    = "Show breadth by pinning projects in different languages/frameworks (even small ones) to demonstrate range."
	suggestShareability = "Improve shareability: add screenshots, a short demo video, and clear usage instructions to encourage stars."
)

const maxSuggestions = 6

// Result is the full score bundle for one set of aggregates.
type Result struct {
	Documentation   int
	CodeQuality     int
	Activity        int
	ProjectImpact   int
	Discoverability int
	Overall         int
	Strengths       []string
	RedFlags        []string
	Suggestions     []string
}

// Engine converts aggregate profile statistics into the five dimension
// scores plus narrative output. Score is a pure function: identical
// aggregates always produce identical results.
type Engine struct{}

// NewEngine creates a scoring engine
func NewEngine() *Engine {
	return &Engine{}
}

// Score computes the score bundle for the given aggregates. Every emitted
// score is rounded and clamped to [0,100].
func (e *Engine) Score(in models.Aggregates) Result {
	documentation := clampScore(
		in.ReadmeCoverage*55 +
			math.Min(25, in.AvgReadmeLen/80) +
			in.LicenseCoverage*10 +
			in.TopicsCoverage*10)

	codeQuality := clampScore(
		(in.LicenseCoverage*15 + in.TopicsCoverage*15) +
			math.Min(40, float64(in.LangDiversity)*10) +
			math.Min(30, math.Log10(1+float64(in.RepoCount))*25))

	// recentCommitDays: higher is better
	activity := clampScore(
		math.Min(70, float64(in.RecentCommitDays)/120*70) +
			math.Min(30, math.Log10(1+float64(in.RepoCount))*18))

	projectImpact := clampScore(
		math.Min(70, math.Log10(1+float64(in.StarsTotal))*35) +
			math.Min(30, math.Log10(1+float64(in.ForksTotal))*30))

	discoverability := clampScore(
		in.TopicsCoverage*45 + in.ReadmeCoverage*35 + math.Min(20, float64(in.RepoCount)*2))

	overall := clampScore(
		float64(documentation)*0.25 +
			float64(codeQuality)*0.20 +
			float64(activity)*0.20 +
			float64(projectImpact)*0.20 +
			float64(discoverability)*0.15)

	return Result{
		Documentation:   documentation,
		CodeQuality:     codeQuality,
		Activity:        activity,
		ProjectImpact:   projectImpact,
		Discoverability: discoverability,
		Overall:         overall,
		Strengths:       strengths(in),
		RedFlags:        redFlags(in),
		Suggestions:     suggestions(in),
	}
}

// strengths and redFlags gate on the raw aggregates, not the derived
// scores, and always append in the same order.
func strengths(in models.Aggregates) []string {
	out := []string{}
	if in.ReadmeCoverage >= 0.7 {
		out = append(out, strengthReadme)
	}
	if in.TopicsCoverage >= 0.5 {
		out = append(out, strengthTopics)
	}
	if in.RecentCommitDays >= 60 {
		out = append(out, strengthActivity)
	}
	if in.StarsTotal >= 20 {
		out = append(out, strengthStars)
	}
	return out
}

func redFlags(in models.Aggregates) []string {
	out := []string{}
	if in.ReadmeCoverage < 0.4 {
		out = append(out, redFlagReadme)
	}
	if in.RecentCommitDays < 10 {
		out = append(out, redFlagActivity)
	}
	if in.TopicsCoverage < 0.25 {
		out = append(out, redFlagTopics)
	}
	return out
}

// suggestions: three fixed baseline entries first, conditional entries
// after, truncated to maxSuggestions.
func suggestions(in models.Aggregates) []string {
	out := []string{suggestReadmes, suggestTopics, suggestProjectStory}

	if in.LicenseCoverage < 0.5 {
		out = append(out, suggestLicense)
	}
	if in.LangDiversity <= 1 {
		out = append(out, suggestDiversity)
	}
	if in.StarsTotal == 0 {
		out = append(out, suggestShareability)
	}

	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

// clampScore rounds and clamps to [0,100]
func clampScore(n float64) int {
	r := int(math.Round(n))
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return r
}
