package models

import "time"

// PostType identifies the kind of content-store entity
type PostType string

const (
	PostTypeTrial    PostType = "trial"
	PostTypeLocation PostType = "trial_location"
)

// PostStatus is the visibility state of a content-store entity.
// Archive is a soft delete: the post stays queryable with its meta and
// terms but is excluded from public listings.
type PostStatus string

const (
	StatusDraft   PostStatus = "draft"
	StatusPublish PostStatus = "publish"
	StatusArchive PostStatus = "archive"
	StatusTrash   PostStatus = "trash"
)

// Post is a content-store record (trial or location)
type Post struct {
	ID         int64      `json:"id"`
	Type       PostType   `json:"type"`
	Status     PostStatus `json:"status"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Slug       string     `json:"slug"`
	ExternalID string     `json:"external_id"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
