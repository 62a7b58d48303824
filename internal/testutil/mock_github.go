// Package testutil provides testing utilities for the fetcher, chiefly a
// configurable mock of the GitHub GraphQL endpoint.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockAccount is a user or organization served by the mock.
type MockAccount struct {
	Login     string
	Type      string // "User" or "Organization"
	Location  string
	Bio       string
	CreatedAt time.Time
}

// MockRepo is a repository served by the mock, owned by one of its accounts.
type MockRepo struct {
	Owner     string
	Name      string
	Stars     int
	Fork      bool
	Language  string
	Readme    string
	CreatedAt time.Time
}

// MockGitHub emulates the GraphQL search surface the client exercises:
// account and repository search with created-window qualifiers, cursor
// pagination, count probes, single-repository lookup, and the in-band
// rateLimit block on every response.
type MockGitHub struct {
	server *httptest.Server

	mu       sync.Mutex
	accounts []MockAccount
	repos    []MockRepo

	// failures maps a login to how many repository searches for it should
	// fail with 502 before succeeding. -1 fails forever.
	failures map[string]int

	remaining int
	limit     int

	RequestCount int
}

// NewMockGitHub starts a mock server over the given fixtures.
func NewMockGitHub(accounts []MockAccount, repos []MockRepo) *MockGitHub {
	m := &MockGitHub{
		accounts:  accounts,
		repos:     repos,
		failures:  make(map[string]int),
		remaining: 5000,
		limit:     5000,
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the mock endpoint URL.
func (m *MockGitHub) URL() string {
	return m.server.URL
}

// Close shuts the server down.
func (m *MockGitHub) Close() {
	m.server.Close()
}

// FailRepoSearches makes the next n repository searches for login fail with
// a 502. Use -1 to fail every attempt.
func (m *MockGitHub) FailRepoSearches(login string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[login] = n
}

// SetQuota overrides the reported quota state.
func (m *MockGitHub) SetQuota(remaining, limit int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.remaining = remaining
	m.limit = limit
}

func (m *MockGitHub) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RequestCount++
	if m.remaining > 0 {
		m.remaining--
	}

	var req struct {
		Query     string         `json:"query"`
		Variables map[string]any `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	switch {
	case strings.Contains(req.Query, "query RateLimit"):
		m.respond(w, map[string]any{})
	case strings.Contains(req.Query, "query CountAccounts"):
		matched := m.matchAccounts(stringVar(req.Variables, "query"))
		m.respond(w, map[string]any{"search": map[string]any{"userCount": len(matched)}})
	case strings.Contains(req.Query, "query SearchAccounts"):
		m.searchAccounts(w, req.Variables)
	case strings.Contains(req.Query, "query CountRepos"):
		matched := m.matchRepos(stringVar(req.Variables, "query"))
		m.respond(w, map[string]any{"search": map[string]any{"repositoryCount": len(matched)}})
	case strings.Contains(req.Query, "query SearchRepos"):
		m.searchRepos(w, req.Variables)
	case strings.Contains(req.Query, "query GetRepo"):
		m.getRepo(w, req.Variables)
	default:
		m.graphQLError(w, "unsupported operation")
	}
}

func (m *MockGitHub) searchAccounts(w http.ResponseWriter, vars map[string]any) {
	matched := m.matchAccounts(stringVar(vars, "query"))
	page, info := paginate(len(matched), vars)

	nodes := make([]map[string]any, 0, page[1]-page[0])
	for _, a := range matched[page[0]:page[1]] {
		nodes = append(nodes, map[string]any{
			"login":      a.Login,
			"__typename": a.Type,
			"location":   a.Location,
			"bio":        a.Bio,
			"createdAt":  a.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	m.respond(w, map[string]any{"search": map[string]any{
		"userCount": len(matched),
		"pageInfo":  info,
		"nodes":     nodes,
	}})
}

func (m *MockGitHub) searchRepos(w http.ResponseWriter, vars map[string]any) {
	query := stringVar(vars, "query")

	if login := qualifier(query, "user:"); login != "" {
		if n, ok := m.failures[login]; ok && n != 0 {
			if n > 0 {
				m.failures[login] = n - 1
			}
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		}
	}

	matched := m.matchRepos(query)
	page, info := paginate(len(matched), vars)

	nodes := make([]map[string]any, 0, page[1]-page[0])
	for _, repo := range matched[page[0]:page[1]] {
		nodes = append(nodes, m.repoNode(repo))
	}
	m.respond(w, map[string]any{"search": map[string]any{
		"repositoryCount": len(matched),
		"pageInfo":        info,
		"nodes":           nodes,
	}})
}

func (m *MockGitHub) getRepo(w http.ResponseWriter, vars map[string]any) {
	owner := stringVar(vars, "owner")
	name := stringVar(vars, "name")
	for _, repo := range m.repos {
		if repo.Owner == owner && repo.Name == name {
			m.respond(w, map[string]any{"repository": m.repoNode(repo)})
			return
		}
	}
	m.respond(w, map[string]any{"repository": nil})
}

func (m *MockGitHub) repoNode(repo MockRepo) map[string]any {
	account := m.accountByLogin(repo.Owner)
	node := map[string]any{
		"nameWithOwner":  repo.Owner + "/" + repo.Name,
		"name":           repo.Name,
		"url":            "https://github.com/" + repo.Owner + "/" + repo.Name,
		"stargazerCount": repo.Stars,
		"isFork":         repo.Fork,
		"createdAt":      repo.CreatedAt.UTC().Format(time.RFC3339),
		"owner": map[string]any{
			"login":      account.Login,
			"__typename": account.Type,
			"location":   account.Location,
			"bio":        account.Bio,
			"createdAt":  account.CreatedAt.UTC().Format(time.RFC3339),
		},
	}
	if repo.Language != "" {
		node["primaryLanguage"] = map[string]any{"name": repo.Language}
		node["languages"] = map[string]any{"nodes": []map[string]any{{"name": repo.Language}}}
	}
	if repo.Readme != "" {
		node["object"] = map[string]any{"text": repo.Readme}
	}
	return node
}

func (m *MockGitHub) accountByLogin(login string) MockAccount {
	for _, a := range m.accounts {
		if a.Login == login {
			return a
		}
	}
	return MockAccount{Login: login, Type: "User"}
}

// matchAccounts filters by the type and created qualifiers, sorted by
// creation date like window-ordered enumeration expects.
func (m *MockGitHub) matchAccounts(query string) []MockAccount {
	wantType := "User"
	if strings.Contains(query, "type:org") {
		wantType = "Organization"
	}
	from, to := createdBounds(query)

	var matched []MockAccount
	for _, a := range m.accounts {
		if a.Type != wantType {
			continue
		}
		if a.CreatedAt.Before(from) || a.CreatedAt.After(to) {
			continue
		}
		matched = append(matched, a)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	return matched
}

func (m *MockGitHub) matchRepos(query string) []MockRepo {
	login := qualifier(query, "user:")
	includeForks := !strings.Contains(query, "fork:false")
	minStars := 0
	if s := qualifier(query, "stars:>="); s != "" {
		minStars, _ = strconv.Atoi(s)
	}

	var matched []MockRepo
	for _, repo := range m.repos {
		if login != "" && repo.Owner != login {
			continue
		}
		if repo.Fork && !includeForks {
			continue
		}
		if repo.Stars < minStars {
			continue
		}
		matched = append(matched, repo)
	}
	return matched
}

func (m *MockGitHub) respond(w http.ResponseWriter, data map[string]any) {
	data["rateLimit"] = map[string]any{
		"remaining": m.remaining,
		"limit":     m.limit,
		"resetAt":   time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
		"cost":      1,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func (m *MockGitHub) graphQLError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"data":null,"errors":[{"message":%q}]}`, msg)
}

// paginate resolves first/after variables into a [start, end) slice range
// plus the pageInfo block, using integer offsets as opaque cursors.
func paginate(total int, vars map[string]any) ([2]int, map[string]any) {
	first := 100
	if f, ok := vars["first"].(float64); ok {
		first = int(f)
	}
	offset := 0
	if after := stringVar(vars, "after"); after != "" {
		offset, _ = strconv.Atoi(after)
	}
	if offset > total {
		offset = total
	}
	end := offset + first
	if end > total {
		end = total
	}
	return [2]int{offset, end}, map[string]any{
		"hasNextPage": end < total,
		"endCursor":   strconv.Itoa(end),
	}
}

func stringVar(vars map[string]any, key string) string {
	s, _ := vars[key].(string)
	return s
}

// qualifier extracts the value of a prefixed search qualifier from a query.
func qualifier(query, prefix string) string {
	for _, term := range strings.Fields(query) {
		if strings.HasPrefix(term, prefix) {
			return strings.TrimPrefix(term, prefix)
		}
	}
	return ""
}

// createdBounds parses the inclusive created:A..B qualifier; absent bounds
// span all time.
func createdBounds(query string) (time.Time, time.Time) {
	clause := qualifier(query, "created:")
	if clause == "" {
		return time.Time{}, time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	bounds := strings.SplitN(clause, "..", 2)
	if len(bounds) != 2 {
		return time.Time{}, time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	from, err1 := time.Parse(time.RFC3339, bounds[0])
	to, err2 := time.Parse(time.RFC3339, bounds[1])
	if err1 != nil || err2 != nil {
		return time.Time{}, time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return from, to
}
