// Package record defines the flat output rows produced by a fetch run and
// the flattening from raw GraphQL nodes.
package record

import (
	"time"

	"github.com/alexanderquispe/github-repo-fetcher/pkg/gh"
)

// RepositoryRecord is one output row: repository fields flattened, with the
// owner's profile denormalized onto the row. NWO (owner/name) is the unique
// key across a run.
type RepositoryRecord struct {
	NWO         string     `json:"nwo"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	URL         string     `json:"url"`
	HomepageURL string     `json:"homepage_url"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	PushedAt    *time.Time `json:"pushed_at"`

	Stars       int `json:"stars"`
	Forks       int `json:"forks"`
	Watchers    int `json:"watchers"`
	OpenIssues  int `json:"open_issues"`
	DiskUsageKB int `json:"disk_usage_kb"`

	PrimaryLanguage string   `json:"primary_language"`
	Languages       []string `json:"languages"`
	Topics          []string `json:"topics"`

	IsFork     bool `json:"is_fork"`
	IsArchived bool `json:"is_archived"`
	IsPrivate  bool `json:"is_private"`
	IsTemplate bool `json:"is_template"`
	HasWiki    bool `json:"has_wiki"`
	HasIssues  bool `json:"has_issues"`

	LicenseKey  string `json:"license_key"`
	LicenseName string `json:"license_name"`

	OwnerLogin     string    `json:"owner_login"`
	OwnerType      string    `json:"owner_type"`
	OwnerLocation  string    `json:"owner_location"`
	OwnerCompany   string    `json:"owner_company"`
	OwnerBio       string    `json:"owner_bio"`
	OwnerEmail     string    `json:"owner_email"`
	OwnerFollowers int       `json:"owner_followers"`
	OwnerCreatedAt time.Time `json:"owner_created_at"`

	ReadmeContent string `json:"readme_content"`
}

// AccountRecord is the transient profile of an enumerated account. It never
// reaches the output on its own; its fields ride along denormalized on each
// repository row.
type AccountRecord struct {
	Login     string    `json:"login"`
	Type      string    `json:"type"`
	Location  string    `json:"location"`
	Company   string    `json:"company"`
	Bio       string    `json:"bio"`
	Email     string    `json:"email"`
	Followers int       `json:"followers"`
	CreatedAt time.Time `json:"created_at"`
}

// FromAccount flattens an account search node. Organizations carry their
// description where users carry a bio; both land in Bio.
func FromAccount(a gh.Account) AccountRecord {
	rec := AccountRecord{
		Login:     a.Login,
		Type:      a.Typename,
		Location:  a.Location,
		Email:     a.Email,
		CreatedAt: a.CreatedAt,
	}
	if a.Typename == "User" {
		rec.Company = a.Company
		rec.Bio = a.Bio
	} else {
		rec.Bio = a.Description
	}
	if a.Followers != nil {
		rec.Followers = a.Followers.TotalCount
	}
	return rec
}

// FromRepositoryNode flattens a raw repository node into an output row.
// Nil sub-objects (license, languages, README blob, counts) flatten to
// zero values, never panic.
func FromRepositoryNode(repo *gh.Repository) RepositoryRecord {
	if repo == nil {
		return RepositoryRecord{}
	}

	rec := RepositoryRecord{
		NWO:         repo.NameWithOwner,
		Name:        repo.Name,
		Description: repo.Description,
		URL:         repo.URL,
		HomepageURL: repo.HomepageURL,
		CreatedAt:   repo.CreatedAt,
		UpdatedAt:   repo.UpdatedAt,
		PushedAt:    repo.PushedAt,
		Stars:       repo.StargazerCount,
		Forks:       repo.ForkCount,
		DiskUsageKB: repo.DiskUsage,
		Languages:   []string{},
		Topics:      []string{},
		IsFork:      repo.IsFork,
		IsArchived:  repo.IsArchived,
		IsPrivate:   repo.IsPrivate,
		IsTemplate:  repo.IsTemplate,
		HasWiki:     repo.HasWikiEnabled,
		HasIssues:   repo.HasIssuesEnabled,
	}

	if repo.Watchers != nil {
		rec.Watchers = repo.Watchers.TotalCount
	}
	if repo.Issues != nil {
		rec.OpenIssues = repo.Issues.TotalCount
	}
	if repo.PrimaryLanguage != nil {
		rec.PrimaryLanguage = repo.PrimaryLanguage.Name
	}
	if repo.Languages != nil {
		for _, lang := range repo.Languages.Nodes {
			rec.Languages = append(rec.Languages, lang.Name)
		}
	}
	if repo.RepositoryTopics != nil {
		for _, node := range repo.RepositoryTopics.Nodes {
			if node.Topic.Name != "" {
				rec.Topics = append(rec.Topics, node.Topic.Name)
			}
		}
	}
	if repo.LicenseInfo != nil {
		rec.LicenseKey = repo.LicenseInfo.Key
		rec.LicenseName = repo.LicenseInfo.Name
	}
	if repo.Object != nil {
		rec.ReadmeContent = repo.Object.Text
	}

	if repo.Owner != nil {
		rec.OwnerLogin = repo.Owner.Login
		rec.OwnerType = repo.Owner.Typename
		rec.OwnerLocation = repo.Owner.Location
		rec.OwnerEmail = repo.Owner.Email
		rec.OwnerCreatedAt = repo.Owner.CreatedAt
		if repo.Owner.Typename == "User" {
			rec.OwnerCompany = repo.Owner.Company
			rec.OwnerBio = repo.Owner.Bio
		} else {
			rec.OwnerBio = repo.Owner.Description
		}
		if repo.Owner.Followers != nil {
			rec.OwnerFollowers = repo.Owner.Followers.TotalCount
		}
	}

	return rec
}

// Denormalize overlays an enumerated account's profile onto the row. The
// enumerated profile wins over the node's own owner fields so every row of
// one account carries identical owner columns.
func (r *RepositoryRecord) Denormalize(owner AccountRecord) {
	r.OwnerLogin = owner.Login
	r.OwnerType = owner.Type
	r.OwnerLocation = owner.Location
	r.OwnerCompany = owner.Company
	r.OwnerBio = owner.Bio
	r.OwnerEmail = owner.Email
	r.OwnerFollowers = owner.Followers
	r.OwnerCreatedAt = owner.CreatedAt
}
