package mailer_test

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/blogcms/pkg/mailer"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, email *mailer.Email) error {
	return m.Called(ctx, email).Error(0)
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"layouts/base.html": {Data: []byte(`<html><title>{{.Metadata.Subject}}</title><body>{{.Content}}</body></html>`)},
		"reset.md": {Data: []byte("---\nSubject: Reset for {{.Name}}\n---\nHi **{{.Name}}**,\n\n[!button|Reset password]({{.URL}})\n")},
		"plain.md":  {Data: []byte("No frontmatter here.\n")},
		"broken.md": {Data: []byte("---\nSubject: x\n")},
	}
}

func TestRenderer(t *testing.T) {
	t.Parallel()

	r := mailer.NewRenderer(testFS(), "")

	t.Run("markdown with button", func(t *testing.T) {
		t.Parallel()

		res, err := r.Render("base.html", "reset.md", map[string]string{
			"Name": "Ann",
			"URL":  "https://blog.test/reset-password?token=abc&email=ann%40x.io",
		})
		require.NoError(t, err)

		assert.Contains(t, res.HTML, "<strong>Ann</strong>")
		assert.Contains(t, res.HTML, `<a href="https://blog.test/reset-password?token=abc&amp;email=ann%40x.io" class="button">Reset password</a>`)
		assert.Contains(t, res.HTML, "<title>Reset for {{.Name}}</title>")
		assert.Contains(t, res.Text, "Hi **Ann**")
		assert.Equal(t, "Reset for {{.Name}}", res.Metadata["Subject"])
	})

	t.Run("no frontmatter", func(t *testing.T) {
		t.Parallel()

		res, err := r.Render("base.html", "plain.md", nil)
		require.NoError(t, err)
		assert.Contains(t, res.HTML, "<p>No frontmatter here.</p>")
		assert.Empty(t, res.Metadata)
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()

		_, err := r.Render("base.html", "missing.md", nil)
		require.ErrorIs(t, err, mailer.ErrTemplateNotFound)

		_, err = r.Render("missing.html", "plain.md", nil)
		require.ErrorIs(t, err, mailer.ErrLayoutNotFound)

		_, err = r.Render("base.html", "broken.md", nil)
		require.ErrorIs(t, err, mailer.ErrInvalidFrontmatter)
	})
}

func TestMailerSend(t *testing.T) {
	t.Parallel()

	cfg := mailer.Config{FallbackSubject: "Notification", DefaultLayout: "base.html"}

	t.Run("subject from frontmatter", func(t *testing.T) {
		t.Parallel()

		sender := &mockSender{}
		sender.On("Send", mock.Anything, mock.MatchedBy(func(e *mailer.Email) bool {
			return e.Subject == "Reset for Ann" && e.To[0] == "ann@x.io" && e.Tags["category"] == "reset"
		})).Return(nil).Once()

		m := mailer.New(sender, mailer.NewRenderer(testFS(), ""), cfg)
		err := m.Send(context.Background(), mailer.SendParams{
			To:       "ann@x.io",
			Template: "reset.md",
			Data:     map[string]string{"Name": "Ann", "URL": "https://x"},
			Tags:     map[string]string{"category": "reset"},
		})
		require.NoError(t, err)
		sender.AssertExpectations(t)
	})

	t.Run("explicit and fallback subjects", func(t *testing.T) {
		t.Parallel()

		var got []string
		sender := mailer.SenderFunc(func(_ context.Context, e *mailer.Email) error {
			got = append(got, e.Subject)
			return nil
		})
		m := mailer.New(sender, mailer.NewRenderer(testFS(), ""), cfg)

		require.NoError(t, m.Send(context.Background(), mailer.SendParams{To: "a@b.c", Template: "reset.md", Subject: "Reset password link"}))
		require.NoError(t, m.Send(context.Background(), mailer.SendParams{To: "a@b.c", Template: "plain.md"}))
		assert.Equal(t, []string{"Reset password link", "Notification"}, got)
	})

	t.Run("failures", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		m := mailer.New(mailer.SenderFunc(func(context.Context, *mailer.Email) error { return boom }),
			mailer.NewRenderer(testFS(), ""), cfg)

		err := m.Send(context.Background(), mailer.SendParams{To: "a@b.c", Template: "plain.md"})
		require.ErrorIs(t, err, mailer.ErrSendFailed)
		require.ErrorIs(t, err, boom)

		require.ErrorIs(t, m.Send(context.Background(), mailer.SendParams{Template: "plain.md"}), mailer.ErrNoRecipient)
	})
}

func TestAddress(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Blog <no-reply@x.io>", mailer.Address("Blog", "no-reply@x.io"))
	assert.Equal(t, "no-reply@x.io", mailer.Address("", "no-reply@x.io"))
}
