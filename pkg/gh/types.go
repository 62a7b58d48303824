package gh

import (
	"encoding/json"
	"time"
)

// RateLimit is the quota block GitHub attaches to every GraphQL response.
type RateLimit struct {
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	ResetAt   time.Time `json:"resetAt"`
	Cost      int       `json:"cost"`
}

// PageInfo carries the continuation state of a search connection.
type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// Named is a node exposing only a name (languages, topics, primary language).
type Named struct {
	Name string `json:"name"`
}

// Count is a node exposing only a total count (watchers, issues, followers).
type Count struct {
	TotalCount int `json:"totalCount"`
}

// License describes a repository license.
type License struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Owner is the account owning a repository. User and Organization variants
/// populate different subsets: Company/Bio/Followers/CreatedAt are user-only,
// Description is the organization counterpart of Bio.
type Owner struct {
	Login       string    `json:"login"`
	Typename    string    `json:"__typename"`
	Location    string    `json:"location"`
	Company     string    `json:"company"`
	Bio         string    `json:"bio"`
	Description string    `json:"description"`
	Email       string    `json:"email"`
	Followers   *Count    `json:"followers"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Blob holds README text fetched alongside the repository node.
type Blob struct {
	Text string `json:"text"`
}

// Repository is the raw GraphQL repository node.
type Repository struct {
	NameWithOwner    string     `json:"nameWithOwner"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	URL              string     `json:"url"`
	HomepageURL      string     `json:"homepageUrl"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	PushedAt         *time.Time `json:"pushedAt"`
	StargazerCount   int        `json:"stargazerCount"`
	ForkCount        int        `json:"forkCount"`
	DiskUsage        int        `json:"diskUsage"`
	PrimaryLanguage  *Named     `json:"primaryLanguage"`
	Languages        *struct {
		Nodes []Named `json:"nodes"`
	} `json:"languages"`
	RepositoryTopics *struct {
		Nodes []struct {
			Topic Named `json:"topic"`
		} `json:"nodes"`
	} `json:"repositoryTopics"`
	LicenseInfo      *License `json:"licenseInfo"`
	IsFork           bool     `json:"isFork"`
	IsArchived       bool     `json:"isArchived"`
	IsPrivate        bool     `json:"isPrivate"`
	IsTemplate       bool     `json:"isTemplate"`
	HasWikiEnabled   bool     `json:"hasWikiEnabled"`
	HasIssuesEnabled bool     `json:"hasIssuesEnabled"`
	Watchers         *Count   `json:"watchers"`
	Issues           *Count   `json:"issues"`
	Owner            *Owner   `json:"owner"`
	Object           *Blob    `json:"object"`
}

// Account is a user or organization node from an account search.
type Account struct {
	Login       string    `json:"login"`
	Typename    string    `json:"__typename"`
	Location    string    `json:"location"`
	Company     string    `json:"company"`
	Bio         string    `json:"bio"`
	Description string    `json:"description"`
	Email       string    `json:"email"`
	Followers   *Count    `json:"followers"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AccountPage is one page of an account search.
type AccountPage struct {
	Accounts   []Account
	PageInfo   PageInfo
	TotalCount int
}

// RepositoryPage is one page of a repository search.
type RepositoryPage struct {
	Repositories []*Repository
	PageInfo     PageInfo
	TotalCount   int
}

// graphQLError is one entry of the response "errors" array.
type graphQLError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// envelope is the raw GraphQL response shape.
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

// rateLimitOnly extracts just the rateLimit block for gate updates.
type rateLimitOnly struct {
	RateLimit *RateLimit `json:"rateLimit"`
}

// Wire shapes for decoding typed operations.

type searchRepositoriesData struct {
	Search struct {
		PageInfo        PageInfo      `json:"pageInfo"`
		RepositoryCount int           `json:"repositoryCount"`
		Nodes           []*Repository `json:"nodes"`
	} `json:"search"`
}

type searchAccountsData struct {
	Search struct {
		UserCount int       `json:"userCount"`
		PageInfo  PageInfo  `json:"pageInfo"`
		Nodes     []Account `json:"nodes"`
	} `json:"search"`
}

type countAccountsData struct {
	Search struct {
		UserCount int `json:"userCount"`
	} `json:"search"`
}

type countRepositoriesData struct {
	Search struct {
		RepositoryCount int `json:"repositoryCount"`
	} `json:"search"`
}

type singleRepositoryData struct {
	Repository *Repository `json:"repository"`
}
