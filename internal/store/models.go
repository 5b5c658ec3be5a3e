package store

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a work item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// ArticleFormat distinguishes the two generated layouts.
type ArticleFormat string

const (
	FormatWebtoon  ArticleFormat = "WEBTOON"
	FormatCardNews ArticleFormat = "CARD_NEWS"
)

// ParseArticleFormat converts a string into a known ArticleFormat.
func ParseArticleFormat(value string) (ArticleFormat, bool) {
	normalized := ArticleFormat(strings.ToUpper(strings.TrimSpace(value)))
	switch normalized {
	case FormatWebtoon, FormatCardNews:
		return normalized, true
	}
	return "", false
}

// WorkItem is a source news article queued for generation.
type WorkItem struct {
	ID           int64
	Title        string
	Body         string
	Press        string
	OriginURL    string
	Category     string
	Status       Status
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Editor is a persona that voices generated articles.
type Editor struct {
	ID         int64
	Name       string
	Persona    string
	Categories []string
	CreatedAt  time.Time
}

// Citation references a source article used by a generated piece.
type Citation struct {
	Title string `json:"title"`
	Press string `json:"press"`
	URL   string `json:"url"`
}

// Article is a generated content piece ready for publication.
type Article struct {
	ID           int64
	WorkItemID   int64
	ContentKey   string
	Format       ArticleFormat
	Title        string
	Summary      string
	Category     string
	Body         string
	Script       string
	EditorID     int64
	ThumbnailURL string
	ImageURLs    []string
	Citations    []Citation
	CreatedAt    time.Time
}

// ReactionCounts holds per-article reaction tallies, initialized to zero at publish time.
type ReactionCounts struct {
	ArticleID int64 `json:"article_id"`
	Likes     int64 `json:"likes"`
	Hearts    int64 `json:"hearts"`
	Laughs    int64 `json:"laughs"`
	Surprises int64 `json:"surprises"`
	Sads      int64 `json:"sads"`
}

// TimelineEntry marks one article's span inside a briefing's audio track.
type TimelineEntry struct {
	ArticleID    int64   `json:"article_id"`
	Title        string  `json:"title"`
	ThumbnailURL string  `json:"thumbnail_url,omitempty"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
}

// Briefing is a generated daily audio briefing.
type Briefing struct {
	ID              int64
	Title           string
	AudioURL        string
	Script          string
	DurationSeconds float64
	ArticleIDs      []int64
	Timeline        []TimelineEntry
	CreatedAt       time.Time
}

// HealthSummary describes aggregated work-item counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	InProgress int
	Failed     int
	Completed  int
}

// DatabaseHealth captures diagnostic information about the database file.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}
