package posts_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/blogcms/internal/identity"
	"github.com/dmitrymomot/blogcms/internal/posts"
	"github.com/dmitrymomot/blogcms/internal/posts/poststest"
	"github.com/dmitrymomot/blogcms/pkg/storage"
	"github.com/dmitrymomot/blogcms/pkg/validator"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func pngUpload(name string) *posts.Upload {
	return &posts.Upload{Filename: name, Size: int64(len(pngHeader)), Content: bytes.NewReader(pngHeader)}
}

type fixture struct {
	svc    *posts.Service
	repo   *poststest.MemoryRepository
	root   string
	admin  posts.Actor
	alice  posts.Actor
	bob    posts.Actor
	mallet posts.Actor
}

func newFixture(t *testing.T, cfg posts.Config) *fixture {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewLocal(root, "/thumbnails")
	require.NoError(t, err)

	f := &fixture{
		repo:   poststest.NewMemoryRepository(),
		root:   root,
		admin:  posts.Actor{ID: uuid.New(), Role: identity.RoleAdmin},
		alice:  posts.Actor{ID: uuid.New(), Role: identity.RoleAuthor},
		bob:    posts.Actor{ID: uuid.New(), Role: identity.RoleAuthor},
		mallet: posts.Actor{ID: uuid.New(), Role: identity.RoleAuthor},
	}
	f.repo.SetAuthor(f.alice.ID, "Alice", "Smith")
	f.repo.SetAuthor(f.bob.ID, "Bob", "Jones")
	f.svc = posts.NewService(f.repo, store, cfg)
	return f
}

func (f *fixture) create(t *testing.T, actor posts.Actor, title string) *posts.Post {
	t.Helper()
	p, err := f.svc.Create(context.Background(), actor, posts.CreateInput{Title: title, Description: "<p>body</p>"})
	require.NoError(t, err)
	return p
}

func TestCanModify(t *testing.T) {
	t.Parallel()
	owner := uuid.New()
	p := &posts.Post{OwnerID: owner}

	assert.True(t, posts.CanModify(posts.Actor{ID: uuid.New(), Role: identity.RoleAdmin}, p))
	assert.True(t, posts.CanModify(posts.Actor{ID: owner, Role: identity.RoleAuthor}, p))
	assert.False(t, posts.CanModify(posts.Actor{ID: uuid.New(), Role: identity.RoleAuthor}, p))
}

func TestService_Create(t *testing.T) {
	t.Parallel()

	t.Run("sets owner, slug and sanitized description", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, posts.DefaultConfig())

		p, err := f.svc.Create(context.Background(), f.alice, posts.CreateInput{
			Title:       " My First Post ",
			Description: `<p onclick="x()">Hi</p><script>alert(1)</script>`,
		})
		require.NoError(t, err)

		assert.Equal(t, f.alice.ID, p.OwnerID)
		assert.Equal(t, "My First Post", p.Title)
		assert.True(t, strings.HasPrefix(p.Slug, "My-First-Post-"))
		assert.Equal(t, "<p>Hi</p>", p.Description)
		assert.Nil(t, p.ThumbnailURL)
	})

	t.Run("same title gives distinct slugs", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, posts.DefaultConfig())

		first := f.create(t, f.alice, "Hello World")
		second := f.create(t, f.alice, "Hello World")

		assert.NotEqual(t, first.Slug, second.Slug)
		for _, p := range []*posts.Post{first, second} {
			require.True(t, strings.HasPrefix(p.Slug, "Hello-World-"), p.Slug)
			_, err := uuid.Parse(strings.TrimPrefix(p.Slug, "Hello-World-"))
			assert.NoError(t, err, p.Slug)
		}

		items, err := f.svc.List(context.Background(), f.alice)
		require.NoError(t, err)
		ids := make([]int64, 0, len(items))
		for _, it := range items {
			ids = append(ids, it.ID)
		}
		assert.ElementsMatch(t, []int64{first.ID, second.ID}, ids)
	})

	t.Run("stores thumbnail under a generated name", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, posts.DefaultConfig())

		p, err := f.svc.Create(context.Background(), f.alice, posts.CreateInput{
			Title:       "With image",
			Description: "body",
			Thumbnail:   pngUpload(`C:\Users\me\cover.png`),
		})
		require.NoError(t, err)
		require.NotNil(t, p.ThumbnailURL)

		name := *p.ThumbnailURL
		require.True(t, strings.HasSuffix(name, "_cover.png"), name)
		_, err = uuid.Parse(strings.TrimSuffix(name, "_cover.png"))
		assert.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(f.root, name))
		require.NoError(t, err)
		assert.Equal(t, pngHeader, data)
	})

	t.Run("rejects non-image thumbnail", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, posts.DefaultConfig())

		_, err := f.svc.Create(context.Background(), f.alice, posts.CreateInput{
			Title:       "Bad file",
			Description: "body",
			Thumbnail:   &posts.Upload{Filename: "notes.txt", Size: 5, Content: strings.NewReader("hello")},
		})
		ve := validator.ExtractValidationErrors(err)
		require.NotNil(t, ve)
		assert.True(t, ve.Has("thumbnail"))
	})

	t.Run("requires title and description", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, posts.DefaultConfig())

		_, err := f.svc.Create(context.Background(), f.alice, posts.CreateInput{Title: "  "})
		ve := validator.ExtractValidationErrors(err)
		require.NotNil(t, ve)
		assert.True(t, ve.Has("title"))
		assert.True(t, ve.Has("description"))

		items, err := f.svc.List(context.Background(), f.admin)
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

func TestService_List(t *testing.T) {
	t.Parallel()
	f := newFixture(t, posts.DefaultConfig())
	ctx := context.Background()

	a1 := f.create(t, f.alice, "Alice one")
	b1 := f.create(t, f.bob, "Bob one")
	a2 := f.create(t, f.alice, "Alice two")
	orphan := f.create(t, f.mallet, "Orphan")

	all, err := f.svc.List(ctx, f.admin)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, []int64{orphan.ID, a2.ID, b1.ID, a1.ID},
		[]int64{all[0].ID, all[1].ID, all[2].ID, all[3].ID})
	assert.Equal(t, posts.UnknownAuthor, all[0].AuthorName)
	assert.Equal(t, "Alice Smith", all[1].AuthorName)

	mine, err := f.svc.List(ctx, f.alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, a2.ID, mine[0].ID)
	assert.Equal(t, a1.ID, mine[1].ID)
}

func TestService_ListResolvesThumbnailURL(t *testing.T) {
	t.Parallel()
	f := newFixture(t, posts.DefaultConfig())
	ctx := context.Background()

	p, err := f.svc.Create(ctx, f.alice, posts.CreateInput{Title: "Pic", Description: "d", Thumbnail: pngUpload("a.png")})
	require.NoError(t, err)

	items, err := f.svc.List(ctx, f.alice)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].ThumbnailURL)
	assert.Equal(t, "/thumbnails/"+*p.ThumbnailURL, *items[0].ThumbnailURL)
}

func TestService_Get(t *testing.T) {
	t.Parallel()
	f := newFixture(t, posts.DefaultConfig())
	ctx := context.Background()
	p := f.create(t, f.alice, "Alice post")

	got, err := f.svc.Get(ctx, f.alice, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Slug, got.Slug)

	_, err = f.svc.Get(ctx, f.admin, p.ID)
	assert.NoError(t, err)

	_, err = f.svc.Get(ctx, f.bob, p.ID)
	assert.ErrorIs(t, err, posts.ErrForbidden)

	_, err = f.svc.Get(ctx, f.alice, 999)
	assert.ErrorIs(t, err, posts.ErrNotFound)
}

func TestService_Edit(t *testing.T) {
	t.Parallel()

	t.Run("owner edits and slug stays", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, posts.DefaultConfig())
		ctx := context.Background()
		p := f.create(t, f.alice, "Original")

		edited, err := f.svc.Edit(ctx, f.alice, p.ID, posts.EditInput{Title: "Renamed", Description: "new"})
		require.NoError(t, err)
		assert.Equal(t, p.Slug, edited.Slug)

		stored, err := f.repo.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", stored.Title)
		assert.Equal(t, "new", stored.Description)
		assert.Equal(t, p.Slug, stored.Slug)
		assert.Equal(t, f.alice.ID, stored.OwnerID)
	})

	t.Run("new thumbnail replaces reference and keeps old file", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, posts.DefaultConfig())
		ctx := context.Background()

		p, err := f.svc.Create(ctx, f.alice, posts.CreateInput{Title: "Pic", Description: "d", Thumbnail: pngUpload("old.png")})
		require.NoError(t, err)
		old := *p.ThumbnailURL

		edited, err := f.svc.Edit(ctx, f.alice, p.ID, posts.EditInput{Title: "Pic", Description: "d", Thumbnail: pngUpload("new.png")})
		require.NoError(t, err)
		require.NotNil(t, edited.ThumbnailURL)
		assert.NotEqual(t, old, *edited.ThumbnailURL)

		_, err = os.Stat(filepath.Join(f.root, old))
		assert.NoError(t, err)
	})

	t.Run("non-owner is forbidden when ownership is enforced", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, posts.DefaultConfig())
		ctx := context.Background()
		p := f.create(t, f.alice, "Original")

		_, err := f.svc.Edit(ctx, f.bob, p.ID, posts.EditInput{Title: "Hijacked", Description: "x"})
		assert.ErrorIs(t, err, posts.ErrForbidden)

		stored, err := f.repo.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Original", stored.Title)

		_, err = f.svc.Edit(ctx, f.admin, p.ID, posts.EditInput{Title: "By admin", Description: "x"})
		assert.NoError(t, err)
	})

	t.Run("non-owner edit goes through without enforcement", func(t *testing.T) {
		t.Parallel()
		cfg := posts.DefaultConfig()
		cfg.EnforceEditOwnership = false
		f := newFixture(t, cfg)
		ctx := context.Background()
		p := f.create(t, f.alice, "Original")

		_, err := f.svc.Edit(ctx, f.bob, p.ID, posts.EditInput{Title: "Hijacked", Description: "x"})
		require.NoError(t, err)

		stored, err := f.repo.Get(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Hijacked", stored.Title)
		assert.Equal(t, f.alice.ID, stored.OwnerID)

		// The read path is still guarded.
		_, err = f.svc.Get(ctx, f.bob, p.ID)
		assert.ErrorIs(t, err, posts.ErrForbidden)
	})

	t.Run("missing post and invalid input", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, posts.DefaultConfig())
		ctx := context.Background()

		_, err := f.svc.Edit(ctx, f.admin, 42, posts.EditInput{Title: "t", Description: "d"})
		assert.ErrorIs(t, err, posts.ErrNotFound)

		_, err = f.svc.Edit(ctx, f.admin, 42, posts.EditInput{})
		assert.True(t, validator.IsValidationError(err))
	})
}

func TestService_Delete(t *testing.T) {
	t.Parallel()
	f := newFixture(t, posts.DefaultConfig())
	ctx := context.Background()

	p := f.create(t, f.alice, "Doomed")
	q := f.create(t, f.bob, "Also doomed")

	assert.ErrorIs(t, f.svc.Delete(ctx, f.bob, p.ID), posts.ErrForbidden)
	_, err := f.repo.Get(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, f.alice, p.ID))
	require.NoError(t, f.svc.Delete(ctx, f.admin, q.ID))

	assert.ErrorIs(t, f.svc.Delete(ctx, f.alice, p.ID), posts.ErrNotFound)
	assert.ErrorIs(t, f.svc.Delete(ctx, f.admin, 999), posts.ErrNotFound)
}

func TestService_Published(t *testing.T) {
	t.Parallel()
	f := newFixture(t, posts.DefaultConfig())
	ctx := context.Background()
	p := f.create(t, f.bob, "Public post")

	got, err := f.svc.Published(ctx, p.Slug)
	require.NoError(t, err)
	assert.Equal(t, "Public post", got.Title)
	assert.Equal(t, "Bob Jones", got.AuthorName)

	_, err = f.svc.Published(ctx, "missing")
	assert.ErrorIs(t, err, posts.ErrNotFound)
}

