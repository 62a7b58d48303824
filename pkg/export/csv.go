package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/alexanderquispe/github-repo-fetcher/pkg/record"
)

// csvColumns is the fixed column order of CSV output.
var csvColumns = []string{
	"nwo", "name", "description", "url", "homepage_url",
	"created_at", "updated_at", "pushed_at",
	"stars", "forks", "watchers", "open_issues", "disk_usage_kb",
	"primary_language", "languages", "topics",
	"is_fork", "is_archived", "is_private", "is_template", "has_wiki", "has_issues",
	"license_key", "license_name",
	"owner_login", "owner_type", "owner_location", "owner_company", "owner_bio",
	"owner_email", "owner_followers", "owner_created_at",
	"readme_content",
}

// CSVWriter renders rows as CSV. List-valued fields (languages, topics) are
// JSON-encoded into their cell so the row stays flat.
type CSVWriter struct{}

func (CSVWriter) Write(path string, rows []record.RepositoryRecord) error {
	return atomicWrite(path, func(f *os.File) error {
		w := csv.NewWriter(f)
		if err := w.Write(csvColumns); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
		for i := range rows {
			if err := w.Write(csvRow(&rows[i])); err != nil {
				return fmt.Errorf("write csv row %s: %w", rows[i].NWO, err)
			}
		}
		w.Flush()
		return w.Error()
	})
}

func csvRow(r *record.RepositoryRecord) []string {
	return []string{
		r.NWO, r.Name, r.Description, r.URL, r.HomepageURL,
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt), formatTimePtr(r.PushedAt),
		strconv.Itoa(r.Stars), strconv.Itoa(r.Forks), strconv.Itoa(r.Watchers),
		strconv.Itoa(r.OpenIssues), strconv.Itoa(r.DiskUsageKB),
		r.PrimaryLanguage, jsonCell(r.Languages), jsonCell(r.Topics),
		strconv.FormatBool(r.IsFork), strconv.FormatBool(r.IsArchived),
		strconv.FormatBool(r.IsPrivate), strconv.FormatBool(r.IsTemplate),
		strconv.FormatBool(r.HasWiki), strconv.FormatBool(r.HasIssues),
		r.LicenseKey, r.LicenseName,
		r.OwnerLogin, r.OwnerType, r.OwnerLocation, r.OwnerCompany, r.OwnerBio,
		r.OwnerEmail, strconv.Itoa(r.OwnerFollowers), formatTime(r.OwnerCreatedAt),
		r.ReadmeContent,
	}
}

func jsonCell(list []string) string {
	if list == nil {
		list = []string{}
	}
	data, _ := json.Marshal(list)
	return string(data)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
