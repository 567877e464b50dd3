package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"gitfolio/pkg/errors"
	"gitfolio/pkg/metrics"
)

const (
	acceptJSON = "application/vnd.github+json"
	acceptRaw  = "application/vnd.github.raw"
)

// User is the subset of the GitHub user resource the collector needs.
type User struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	PublicRepos int    `json:"public_repos"`
}

// Repo mirrors the fields of the GitHub repository resource consumed here.
type Repo struct {
	Name            string   `json:"name"`
	FullName        string   `json:"full_name"`
	HTMLURL         string   `json:"html_url"`
	Description     *string  `json:"description"`
	Language        *string  `json:"language"`
	StargazersCount int      `json:"stargazers_count"`
	ForksCount      int      `json:"forks_count"`
	OpenIssuesCount int      `json:"open_issues_count"`
	Topics          []string `json:"topics"`
	License         *License `json:"license"`
	PushedAt        string   `json:"pushed_at"`
	UpdatedAt       string   `json:"updated_at"`
}

// License carries the SPDX identifier of a repository license.
type License struct {
	SPDXID string `json:"spdx_id"`
}

// Event is one entry of the public events feed.
type Event struct {
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
}

// ReadmeProbe is the result of probing one repository's README resource.
type ReadmeProbe struct {
	Exists bool
	Length int
}

// Client talks to the GitHub REST API. Requests are paced by a
// fixed-interval limiter when one is configured; there is no retrying.
type Client struct {
	baseURL    string
	token      string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Config holds GitHub client configuration
type Config struct {
	BaseURL         string
	Token           string
	UserAgent       string
	Timeout         time.Duration
	RequestInterval time.Duration
}

// NewClient creates a GitHub API client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.github.com"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "github-portfolio-analyzer"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.RequestInterval), 1)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
	}
}

// FetchUser fetches the user resource. Any non-success status is fatal for
// the analysis; a 403 is tagged as a rate-limit condition.
func (c *Client) FetchUser(ctx context.Context, username string) (*User, error) {
	resp, err := c.get(ctx, "user", c.baseURL+"/users/"+url.PathEscape(username), acceptJSON)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeUpstream, "failed to fetch GitHub user")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := "Unable to fetch GitHub profile"
		var body struct {
			Message string `json:"message"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&body); decodeErr == nil && body.Message != "" {
			message = body.Message
		}

		errType := errors.ErrorTypeUpstream
		if resp.StatusCode == http.StatusForbidden {
			errType = errors.ErrorTypeRateLimit
		}
		return nil, errors.New(errType, message).WithContext("status_code", resp.StatusCode)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeUpstream, "failed to decode GitHub user")
	}
	return &user, nil
}

// FetchRepos fetches up to 100 repositories, most recently updated first.
func (c *Client) FetchRepos(ctx context.Context, username string) ([]Repo, error) {
	u := fmt.Sprintf("%s/users/%s/repos?per_page=100&sort=updated", c.baseURL, url.PathEscape(username))
	resp, err := c.get(ctx, "repos", u, acceptJSON)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("GitHub repos request returned status %d", resp.StatusCode)
	}

	var repos []Repo
	if err := json.NewDecoder(resp.Body).Decode(&repos); err != nil {
		return nil, fmt.Errorf("failed to decode repository list: %w", err)
	}
	return repos, nil
}

// ProbeReadme checks whether a repository has a README and measures its raw
// length. A failed probe is reported as "no README", never as an error.
func (c *Client) ProbeReadme(ctx context.Context, fullName string) ReadmeProbe {
	resp, err := c.get(ctx, "readme", c.baseURL+"/repos/"+fullName+"/readme", acceptRaw)
	if err != nil {
		return ReadmeProbe{}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ReadmeProbe{}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ReadmeProbe{Exists: true}
	}
	return ReadmeProbe{Exists: true, Length: len(body)}
}

// FetchEvents fetches up to 100 recent public events.
func (c *Client) FetchEvents(ctx context.Context, username string) ([]Event, error) {
	u := fmt.Sprintf("%s/users/%s/events/public?per_page=100", c.baseURL, url.PathEscape(username))
	resp, err := c.get(ctx, "events", u, acceptJSON)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("GitHub events request returned status %d", resp.StatusCode)
	}

	var events []Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}

func (c *Client) get(ctx context.Context, resource, rawURL, accept string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordGitHubRequest(resource, "error")
		return nil, err
	}

	metrics.RecordGitHubRequest(resource, strconv.Itoa(resp.StatusCode))
	return resp, nil
}
