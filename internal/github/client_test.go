package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"gitfolio/pkg/errors"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL: baseURL,
		Token:   "test-token",
	})
}

func TestClient_FetchUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/octocat" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("User-Agent"); got != "github-portfolio-analyzer" {
			t.Errorf("Unexpected User-Agent: %s", got)
		}
		if got := r.Header.Get("Accept"); got != "application/vnd.github+json" {
			t.Errorf("Unexpected Accept: %s", got)
		}
		if got := r.Header.Get("Authorization"); got != "token test-token" {
			t.Errorf("Unexpected Authorization: %s", got)
		}
		w.Write([]byte(`{"login":"octocat","name":"The Octocat","public_repos":8}`))
	}))
	defer srv.Close()

	user, err := newTestClient(srv.URL).FetchUser(context.Background(), "octocat")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if user.Login != "octocat" || user.PublicRepos != 8 {
		t.Errorf("Unexpected user: %+v", user)
	}
}

func TestClient_FetchUser_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"API rate limit exceeded for 1.2.3.4"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchUser(context.Background(), "octocat")
	if err == nil {
		t.Fatal("Expected error")
	}
	e, ok := errors.AsError(err)
	if !ok || e.Type != errors.ErrorTypeRateLimit {
		t.Errorf("Expected rate limit error, got %v", err)
	}
	if e != nil && e.Message != "API rate limit exceeded for 1.2.3.4" {
		t.Errorf("Expected upstream message passthrough, got %q", e.Message)
	}
}

func TestClient_FetchUser_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchUser(context.Background(), "ghost")
	if err == nil {
		t.Fatal("Expected error")
	}
	e, ok := errors.AsError(err)
	if !ok || e.Type != errors.ErrorTypeUpstream {
		t.Errorf("Expected upstream error, got %v", err)
	}
	if e != nil && e.Message != "Not Found" {
		t.Errorf("Expected upstream message passthrough, got %q", e.Message)
	}
}

func TestClient_FetchRepos(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/octocat/repos" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("per_page") != "100" || q.Get("sort") != "updated" {
			t.Errorf("Unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`[
			{"name":"hello","full_name":"octocat/hello","language":"Go","stargazers_count":3,"topics":["demo"],"license":{"spdx_id":"MIT"},"pushed_at":"2026-08-01T00:00:00Z"},
			{"name":"web","full_name":"octocat/web","language":null,"stargazers_count":0,"topics":[]}
		]`))
	}))
	defer srv.Close()

	repos, err := newTestClient(srv.URL).FetchRepos(context.Background(), "octocat")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(repos) != 2 {
		t.Fatalf("Expected 2 repos, got %d", len(repos))
	}
	if repos[0].FullName != "octocat/hello" || *repos[0].Language != "Go" {
		t.Errorf("Unexpected repo: %+v", repos[0])
	}
	if repos[0].License == nil || repos[0].License.SPDXID != "MIT" {
		t.Errorf("Expected MIT license, got %+v", repos[0].License)
	}
	if repos[1].Language != nil {
		t.Errorf("Expected nil language, got %v", *repos[1].Language)
	}
}

func TestClient_FetchRepos_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchRepos(context.Background(), "octocat")
	if err == nil {
		t.Fatal("Expected error on 500")
	}
}

func TestClient_ProbeReadme(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "application/vnd.github.raw" {
			t.Errorf("Unexpected Accept: %s", got)
		}
		switch r.URL.Path {
		case "/repos/octocat/hello/readme":
			w.Write([]byte("# hello\n\na readme"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)

	probe := client.ProbeReadme(context.Background(), "octocat/hello")
	if !probe.Exists || probe.Length != len("# hello\n\na readme") {
		t.Errorf("Unexpected probe: %+v", probe)
	}

	// A missing README is a result, not an error
	probe = client.ProbeReadme(context.Background(), "octocat/empty")
	if probe.Exists || probe.Length != 0 {
		t.Errorf("Expected empty probe on 404, got %+v", probe)
	}
}

func TestClient_FetchEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/octocat/events/public" {
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`[
			{"type":"PushEvent","created_at":"2026-08-01T10:00:00Z"},
			{"type":"WatchEvent","created_at":"2026-08-02T10:00:00Z"}
		]`))
	}))
	defer srv.Close()

	events, err := newTestClient(srv.URL).FetchEvents(context.Background(), "octocat")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(events) != 2 || events[0].Type != "PushEvent" {
		t.Errorf("Unexpected events: %+v", events)
	}
}
