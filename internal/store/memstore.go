package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/trialsite/trial-importer/internal/models"
	"github.com/trialsite/trial-importer/pkg/utils"
)

// MemStore is an in-memory Store used by tests and local tooling. It
// mirrors the Postgres semantics: external-id lookups return 0 when
// absent, term names are slugified, and deleting a post cascades to its
// meta and term relationships.
type MemStore struct {
	mu     sync.RWMutex
	nextID int64
	posts  map[int64]*models.Post
	meta   map[int64]map[string]string
	// terms[postID][taxonomy][slug] = display name
	terms map[int64]map[string]map[string]string
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		nextID: 1,
		posts:  make(map[int64]*models.Post),
		meta:   make(map[int64]map[string]string),
		terms:  make(map[int64]map[string]map[string]string),
	}
}

func (s *MemStore) FindByExternalID(ctx context.Context, postType models.PostType, externalID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, p := range s.posts {
		if p.Type == postType && p.ExternalID == externalID {
			return id, nil
		}
	}
	return 0, nil
}

func (s *MemStore) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *MemStore) CreatePost(ctx context.Context, post *models.Post) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	cp := *post
	cp.ID = id
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	s.posts[id] = &cp
	return id, nil
}

func (s *MemStore) UpdatePost(ctx context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.posts[post.ID]
	if !ok {
		return nil
	}
	existing.Status = post.Status
	existing.Slug = post.Slug
	existing.Content = post.Content
	existing.UpdatedAt = time.Now()
	return nil
}

func (s *MemStore) DeletePost(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.posts, id)
	delete(s.meta, id)
	delete(s.terms, id)
	return nil
}

func (s *MemStore) ListPosts(ctx context.Context, postType models.PostType) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Post
	for _, p := range s.posts {
		if p.Type == postType {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) ListExternalIDsByStatus(ctx context.Context, postType models.PostType, status models.PostStatus) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, p := range s.posts {
		if p.Type == postType && p.Status == status {
			out = append(out, p.ExternalID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemStore) GetField(ctx context.Context, id int64, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta[id][key], nil
}

func (s *MemStore) SetField(ctx context.Context, id int64, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta[id] == nil {
		s.meta[id] = make(map[string]string)
	}
	s.meta[id][key] = value
	return nil
}

func (s *MemStore) GetFields(ctx context.Context, id int64) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.meta[id]))
	for k, v := range s.meta[id] {
		out[k] = v
	}
	return out, nil
}

func (s *MemStore) SetTerms(ctx context.Context, id int64, taxonomy string, terms []string, appendTerms bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terms[id] == nil {
		s.terms[id] = make(map[string]map[string]string)
	}
	if !appendTerms || s.terms[id][taxonomy] == nil {
		s.terms[id][taxonomy] = make(map[string]string)
	}
	for _, name := range terms {
		slug := utils.Slugify(name)
		if slug == "" {
			continue
		}
		s.terms[id][taxonomy][slug] = name
	}
	return nil
}

func (s *MemStore) GetTerms(ctx context.Context, id int64, taxonomy string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, name := range s.terms[id][taxonomy] {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemStore) RemoveTerm(ctx context.Context, id int64, taxonomy, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.terms[id][taxonomy], slug)
	return nil
}

func (s *MemStore) ListPostsWithTerm(ctx context.Context, postType models.PostType, taxonomy, slug string) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Post
	for id, p := range s.posts {
		if p.Type != postType {
			continue
		}
		if _, ok := s.terms[id][taxonomy][slug]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
