package gh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fastRetry keeps retry tests from sleeping for real.
func fastRetry() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := DefaultConfig("test-token")
	cfg.Endpoint = server.URL
	cfg.RequestsPerSecond = 1000
	cfg.Burst = 1000
	cfg.Retry = fastRetry()

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return client, server
}

func writeGraphQL(w http.ResponseWriter, data string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"data":%s}`, data)
}

func accountPageData(logins []string, hasNext bool, cursor string, remaining int) string {
	nodes := make([]map[string]any, len(logins))
	for i, login := range logins {
		nodes[i] = map[string]any{
			"login":      login,
			"__typename": "User",
			"createdAt":  "2015-03-01T00:00:00Z",
		}
	}
	data, _ := json.Marshal(map[string]any{
		"search": map[string]any{
			"userCount": len(logins),
			"pageInfo":  map[string]any{"hasNextPage": hasNext, "endCursor": cursor},
			"nodes":     nodes,
		},
		"rateLimit": map[string]any{
			"remaining": remaining,
			"limit":     5000,
			"resetAt":   time.Now().Add(time.Hour).Format(time.RFC3339),
			"cost":      1,
		},
	})
	return string(data)
}

func TestNew_RequiresToken(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New() with empty token must fail")
	}
}

func TestClient_SearchAccounts(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Variables["query"] != `location:"Peru" type:user` {
			t.Errorf("query variable = %v", req.Variables["query"])
		}
		if _, ok := req.Variables["after"]; ok {
			t.Error("first page must omit the after variable")
		}

		writeGraphQL(w, accountPageData([]string{"alice", "bob"}, true, "cur1", 4999))
	})

	page, err := client.SearchAccounts(context.Background(), `location:"Peru" type:user`, 100, "")
	if err != nil {
		t.Fatalf("SearchAccounts() error: %v", err)
	}

	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if len(page.Accounts) != 2 || page.Accounts[0].Login != "alice" {
		t.Errorf("unexpected page: %+v", page.Accounts)
	}
	if !page.PageInfo.HasNextPage || page.PageInfo.EndCursor != "cur1" {
		t.Errorf("unexpected pageInfo: %+v", page.PageInfo)
	}

	// The in-band rateLimit block must refresh the gate.
	state := client.Gate().State()
	if state.Remaining != 4999 || state.Limit != 5000 {
		t.Errorf("gate state = %+v, want remaining 4999 of 5000", state)
	}
}

func TestClient_SearchAccounts_PassesCursor(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Variables map[string]any `json:"variables"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Variables["after"] != "cur1" {
			t.Errorf("after = %v, want cur1", req.Variables["after"])
		}
		writeGraphQL(w, accountPageData([]string{"carol"}, false, "cur2", 4998))
	})

	if _, err := client.SearchAccounts(context.Background(), "q", 100, "cur1"); err != nil {
		t.Fatalf("SearchAccounts() error: %v", err)
	}
}

func TestClient_CountAccounts(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeGraphQL(w, `{"search":{"userCount":1234},"rateLimit":{"remaining":100,"limit":5000,"resetAt":"2026-01-01T00:00:00Z"}}`)
	})

	count, err := client.CountAccounts(context.Background(), "q")
	if err != nil {
		t.Fatalf("CountAccounts() error: %v", err)
	}
	if count != 1234 {
		t.Errorf("count = %d, want 1234", count)
	}
}

func TestClient_RetryOnServerError(t *testing.T) {
	attempts := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeGraphQL(w, accountPageData([]string{"alice"}, false, "", 4999))
	})

	page, err := client.SearchAccounts(context.Background(), "q", 100, "")
	if err != nil {
		t.Fatalf("SearchAccounts() error after transient 502s: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if len(page.Accounts) != 1 {
		t.Errorf("accounts = %d, want 1", len(page.Accounts))
	}
}

func TestClient_RetryExhausted(t *testing.T) {
	attempts := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.SearchAccounts(context.Background(), "q", 100, "")
	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("err = %v, want ErrRetryExhausted", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestClient_ClientErrorNotRetried(t *testing.T) {
	attempts := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.SearchAccounts(context.Background(), "q", 100, "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Class != ErrorClassClient {
		t.Errorf("class = %s, want %s", apiErr.Class, ErrorClassClient)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, a 401 must not be retried", attempts)
	}
}

func TestClient_GraphQLErrorNotRetried(t *testing.T) {
	attempts := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"rateLimit":{"remaining":4000,"limit":5000,"resetAt":"2026-01-01T00:00:00Z"}},"errors":[{"message":"Field 'bogus' doesn't exist"}]}`)
	})

	_, err := client.SearchAccounts(context.Background(), "q", 100, "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Class != ErrorClassGraphQL {
		t.Errorf("class = %s, want %s", apiErr.Class, ErrorClassGraphQL)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, GraphQL errors must not be retried", attempts)
	}

	// Quota still refreshes from a rejected query.
	if got := client.Gate().State().Remaining; got != 4000 {
		t.Errorf("gate remaining = %d, want 4000", got)
	}
}

func TestClient_QuotaHeadersOnErrorResponse(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "42")
		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Reset", "1767225600")
		w.WriteHeader(http.StatusForbidden)
	})

	if _, err := client.SearchAccounts(context.Background(), "q", 100, ""); err == nil {
		t.Fatal("expected error from 403")
	}

	state := client.Gate().State()
	if state.Remaining != 42 {
		t.Errorf("gate remaining = %d, want 42 from headers", state.Remaining)
	}
}

func TestClient_FetchRepository(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeGraphQL(w, `{
			"repository": {
				"nameWithOwner": "octocat/hello-world",
				"name": "hello-world",
				"stargazerCount": 42,
				"isFork": false,
				"createdAt": "2011-01-26T19:01:12Z"
			},
			"rateLimit": {"remaining": 4999, "limit": 5000, "resetAt": "2026-01-01T00:00:00Z"}
		}`)
	})

	repo, err := client.FetchRepository(context.Background(), "octocat", "hello-world")
	if err != nil {
		t.Fatalf("FetchRepository() error: %v", err)
	}
	if repo.NameWithOwner != "octocat/hello-world" || repo.StargazerCount != 42 {
		t.Errorf("unexpected repository: %+v", repo)
	}
}

func TestClient_FetchRepository_NotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeGraphQL(w, `{"repository":null,"rateLimit":{"remaining":4999,"limit":5000,"resetAt":"2026-01-01T00:00:00Z"}}`)
	})

	_, err := client.FetchRepository(context.Background(), "octocat", "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestClient_SearchRepositories_DropsNullNodes(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeGraphQL(w, `{
			"search": {
				"repositoryCount": 2,
				"pageInfo": {"hasNextPage": false, "endCursor": ""},
				"nodes": [
					{"nameWithOwner": "a/x", "name": "x", "createdAt": "2020-01-01T00:00:00Z"},
					null,
					{"nameWithOwner": "a/y", "name": "y", "createdAt": "2020-01-02T00:00:00Z"}
				]
			},
			"rateLimit": {"remaining": 4999, "limit": 5000, "resetAt": "2026-01-01T00:00:00Z"}
		}`)
	})

	page, err := client.SearchRepositories(context.Background(), "q", 10, "")
	if err != nil {
		t.Fatalf("SearchRepositories() error: %v", err)
	}
	if len(page.Repositories) != 2 {
		t.Fatalf("repositories = %d, want 2 with null dropped", len(page.Repositories))
	}
	for _, r := range page.Repositories {
		if r == nil {
			t.Fatal("nil repository leaked through")
		}
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{http.StatusTooManyRequests, ErrorClassRateLimit},
		{http.StatusBadGateway, ErrorClassServer},
		{http.StatusServiceUnavailable, ErrorClassServer},
		{http.StatusUnauthorized, ErrorClassClient},
		{http.StatusNotFound, ErrorClassClient},
	}
	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.want {
			t.Errorf("classifyStatus(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}
