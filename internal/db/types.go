package db

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Platform constants for job boards
const (
	PlatformGreenhouse = "greenhouse"
	PlatformLever      = "lever"
	PlatformLinkedIn   = "linkedin"
	PlatformWorkday    = "workday"
	PlatformAshby      = "ashby"
	PlatformUnknown    = "unknown"
)

// JobPosting is a stored job posting. Only the columns the highlighter
// reads are mapped.
type JobPosting struct {
	ID           uuid.UUID `json:"id"`
	URL          string    `json:"url"`
	RoleTitle    *string   `json:"role_title,omitempty"`
	Platform     *string   `json:"platform,omitempty"`
	CleanedText  *string   `json:"cleaned_text,omitempty"`
	AboutCompany *string   `json:"about_company,omitempty"`
	ContentHash  *string   `json:"content_hash,omitempty"`
	FetchStatus  string    `json:"fetch_status"`
	FetchedAt    time.Time `json:"fetched_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// Page sizes for ListJobPostings.
const (
	DefaultListLimit = 50
	MaxListLimit     = 100
)

// ListJobPostingsOptions filters and pages ListJobPostings
type ListJobPostingsOptions struct {
	Platform *string
	Limit    int
	Offset   int
}

// Normalized returns opts with the limit defaulted and capped and a
// non-negative offset, as ListJobPostings applies them.
func (o ListJobPostingsOptions) Normalized() ListJobPostingsOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultListLimit
	}
	if o.Limit > MaxListLimit {
		o.Limit = MaxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// Description returns the text to highlight: the cleaned posting followed
// by the about-company section when present. ok is false when the posting
// has no text at all.
func (p *JobPosting) Description() (text string, ok bool) {
	var parts []string
	if p.CleanedText != nil && strings.TrimSpace(*p.CleanedText) != "" {
		parts = append(parts, *p.CleanedText)
	}
	if p.AboutCompany != nil && strings.TrimSpace(*p.AboutCompany) != "" {
		parts = append(parts, *p.AboutCompany)
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n\n"), true
}

// Title returns the role title, falling back to the URL.
func (p *JobPosting) Title() string {
	if p.RoleTitle != nil && *p.RoleTitle != "" {
		return *p.RoleTitle
	}
	return p.URL
}

// PlatformName returns the stored platform or one detected from the URL.
func (p *JobPosting) PlatformName() string {
	if p.Platform != nil && *p.Platform != "" {
		return *p.Platform
	}
	return DetectPlatform(p.URL)
}

// DetectPlatform attempts to detect the job board platform from a URL
func DetectPlatform(url string) string {
	urlLower := strings.ToLower(url)
	switch {
	case strings.Contains(urlLower, "greenhouse.io") || strings.Contains(urlLower, "boards.greenhouse"):
		return PlatformGreenhouse
	case strings.Contains(urlLower, "lever.co"):
		return PlatformLever
	case strings.Contains(urlLower, "linkedin.com"):
		return PlatformLinkedIn
	case strings.Contains(urlLower, "myworkday") || strings.Contains(urlLower, "workday.com"):
		return PlatformWorkday
	case strings.Contains(urlLower, "ashbyhq.com"):
		return PlatformAshby
	default:
		return PlatformUnknown
	}
}
