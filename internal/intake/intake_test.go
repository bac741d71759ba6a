package intake

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jakelee-bot/google-form-automation/internal/extraction"
)

func write(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestFromText(t *testing.T) {
	l := New(zaptest.NewLogger(t), Options{})

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "crlf",
			in:   "Your name: Jane Lee\r\nYour email: jane@x.edu\r\n",
			want: []string{"Your name: Jane Lee", "Your email: jane@x.edu"},
		},
		{
			name: "full width colon and no-break space",
			in:   "Your name\uff1aJane\u00a0Lee",
			want: []string{"Your name:Jane Lee"},
		},
		{
			name: "html body",
			in:   "<html><body><p><strong>Your name:</strong> Jane Lee</p><p>Organization name: X Lab</p></body></html>",
			want: []string{"Your name: Jane Lee", "Organization name: X Lab"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := l.FromText(tt.in)
			lines := strings.Split(got, "\n")
			for _, w := range tt.want {
				assert.Contains(t, lines, w)
			}
			assert.NotContains(t, got, "\r")
			assert.NotContains(t, got, "**")
		})
	}
}

func TestFromFileFeedsExtractor(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "request.txt", "Your name: Jane Lee\r\nYour email: jane@x.edu\r\nOrganization name: X Lab\r\n")

	l := New(zaptest.NewLogger(t), Options{InputDir: dir})
	text, err := l.FromFile(context.Background(), "request.txt")
	require.NoError(t, err)

	d := extraction.New(nil).Extract(text)
	assert.Equal(t, "Jane Lee", d.Name)
	assert.Equal(t, "jane@x.edu", d.Email)
	assert.Equal(t, "X Lab", d.InstitutionName)
}

func TestFromFileSources(t *testing.T) {
	dir := t.TempDir()
	l := New(zaptest.NewLogger(t), Options{InputDir: dir})

	html := write(t, dir, "request.html", "<div>Your name: Jane Lee</div><div>Length of license: 2</div>")
	plainMail := write(t, dir, "plain.eml", "From: jane@x.edu\r\nSubject: quote\r\nContent-Type: text/plain\r\n\r\nYour name: Jane Lee\r\n")
	htmlMail := write(t, dir, "html.eml", "From: jane@x.edu\r\nContent-Type: text/html; charset=utf-8\r\n\r\n<p>Your name: Jane Lee</p>\r\n")
	bare := write(t, dir, "REQUEST", "Your name: Jane Lee")

	for _, p := range []string{html, plainMail, htmlMail, bare} {
		t.Run(filepath.Base(p), func(t *testing.T) {
			got, err := l.FromFile(context.Background(), p)
			require.NoError(t, err)
			assert.Contains(t, strings.Split(got, "\n"), "Your name: Jane Lee")
			assert.NotContains(t, got, "Subject:")
			assert.NotContains(t, got, "<")
		})
	}
}

func TestFromFileErrors(t *testing.T) {
	dir := t.TempDir()
	outside := t.TempDir()
	write(t, dir, "big.txt", strings.Repeat("x", 64))
	write(t, dir, "sheet.xlsx", "PK")
	write(t, dir, "broken.pdf", "not a pdf at all")
	write(t, outside, "secret.txt", "Your name: Mallory")

	l := New(zaptest.NewLogger(t), Options{InputDir: dir, MaxFileSize: 32})

	tests := []struct {
		name string
		path string
		want error
	}{
		{"too large", "big.txt", ErrFileTooLarge},
		{"unsupported extension", "sheet.xlsx", ErrUnsupportedSource},
		{"directory", ".", ErrUnsupportedSource},
		{"parent escape", "../" + filepath.Base(outside) + "/secret.txt", ErrOutsideDirectory},
		{"absolute outside", filepath.Join(outside, "secret.txt"), ErrOutsideDirectory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.FromFile(context.Background(), tt.path)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	t.Run("unreadable pdf", func(t *testing.T) {
		_, err := l.FromFile(context.Background(), "broken.pdf")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read pdf")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := l.FromFile(context.Background(), "nope.txt")
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := l.FromFile(context.Background(), " ")
		assert.Error(t, err)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := l.FromFile(ctx, "big.txt")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestGuardWithoutDirectory(t *testing.T) {
	p := write(t, t.TempDir(), "note.txt", "Your name: Jane Lee")

	got, err := New(nil, Options{}).FromFile(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "Your name: Jane Lee", got)
}

func TestGuardSymlinkEscape(t *testing.T) {
	dir := t.TempDir()
	outside := write(t, t.TempDir(), "secret.txt", "Your name: Mallory")
	link := filepath.Join(dir, "link.txt")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	_, err := newGuard(dir).resolve("link.txt")
	assert.ErrorIs(t, err, ErrOutsideDirectory)
}
