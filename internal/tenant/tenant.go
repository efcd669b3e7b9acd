package tenant

import (
	"regexp"
	"time"
)

// Hackathon is one tenant. Slug is the external identifier used in every
// tenant-scoped route; ID stays internal.
type Hackathon struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// MaxSlugLength bounds slugs to what fits comfortably in a URL segment
const MaxSlugLength = 64

// ValidSlug reports whether s is a lowercase URL-safe slug.
func ValidSlug(s string) bool {
	return len(s) <= MaxSlugLength && slugPattern.MatchString(s)
}
