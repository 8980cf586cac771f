package store

import (
	"context"

	"github.com/trialsite/trial-importer/internal/models"
)

// Store defines the content-store interface the import pipeline consumes:
// a post record per entity, key-value meta per post, and a term graph for
// categorical associations.
type Store interface {
	// Post operations
	FindByExternalID(ctx context.Context, postType models.PostType, externalID string) (int64, error)
	GetPost(ctx context.Context, id int64) (*models.Post, error)
	CreatePost(ctx context.Context, post *models.Post) (int64, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, id int64) error
	ListPosts(ctx context.Context, postType models.PostType) ([]*models.Post, error)
	ListExternalIDsByStatus(ctx context.Context, postType models.PostType, status models.PostStatus) ([]string, error)

	// Meta operations
	GetField(ctx context.Context, id int64, key string) (string, error)
	SetField(ctx context.Context, id int64, key, value string) error
	GetFields(ctx context.Context, id int64) (map[string]string, error)

	// Term operations
	SetTerms(ctx context.Context, id int64, taxonomy string, terms []string, appendTerms bool) error
	GetTerms(ctx context.Context, id int64, taxonomy string) ([]string, error)
	RemoveTerm(ctx context.Context, id int64, taxonomy, slug string) error
	ListPostsWithTerm(ctx context.Context, postType models.PostType, taxonomy, slug string) ([]*models.Post, error)
}
