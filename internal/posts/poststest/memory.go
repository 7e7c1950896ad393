// Package poststest provides an in-memory posts.Repository for tests.
package poststest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/blogcms/internal/posts"
)

// MemoryRepository keeps posts in a map. Each created post is stamped one
// minute after the previous one.
type MemoryRepository struct {
	mu     sync.Mutex
	posts  map[int64]*posts.Post
	names  map[uuid.UUID][2]string
	nextID int64
	clock  time.Time
}

var _ posts.Repository = (*MemoryRepository)(nil)

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		posts: make(map[int64]*posts.Post),
		names: make(map[uuid.UUID][2]string),
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// SetAuthor registers the display name of a post owner. Owners without a
// name are reported as posts.UnknownAuthor.
func (m *MemoryRepository) SetAuthor(id uuid.UUID, first, last string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[id] = [2]string{first, last}
}

func (m *MemoryRepository) author(id uuid.UUID) string {
	n, ok := m.names[id]
	if !ok {
		return posts.UnknownAuthor
	}
	return n[0] + " " + n[1]
}

func (m *MemoryRepository) List(_ context.Context, owner *uuid.UUID) ([]posts.ListItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []posts.ListItem{}
	for _, p := range m.posts {
		if owner != nil && p.OwnerID != *owner {
			continue
		}
		items = append(items, posts.ListItem{
			ID:           p.ID,
			Title:        p.Title,
			CreatedAt:    p.CreatedAt,
			ThumbnailURL: p.ThumbnailURL,
			AuthorName:   m.author(p.OwnerID),
		})
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID > items[j].ID
	})
	return items, nil
}

func (m *MemoryRepository) Create(_ context.Context, p *posts.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.posts {
		if existing.Slug == p.Slug {
			return posts.ErrSlugTaken
		}
	}
	m.nextID++
	m.clock = m.clock.Add(time.Minute)
	p.ID, p.CreatedAt = m.nextID, m.clock
	cp := *p
	m.posts[p.ID] = &cp
	return nil
}

func (m *MemoryRepository) Get(_ context.Context, id int64) (*posts.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, posts.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryRepository) Update(_ context.Context, p *posts.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.posts[p.ID]
	if !ok {
		return posts.ErrNotFound
	}
	stored.Title, stored.Description, stored.ThumbnailURL = p.Title, p.Description, p.ThumbnailURL
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return posts.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *MemoryRepository) FindBySlug(_ context.Context, slug string) (*posts.PublishedPost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.Slug == slug {
			return &posts.PublishedPost{
				Title:        p.Title,
				Description:  p.Description,
				ThumbnailURL: p.ThumbnailURL,
				Slug:         p.Slug,
				CreatedAt:    p.CreatedAt,
				AuthorName:   m.author(p.OwnerID),
			}, nil
		}
	}
	return nil, posts.ErrNotFound
}
