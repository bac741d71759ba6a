// Package intake turns the raw material a quote request arrives in (pasted
// text, HTML mail bodies, saved .eml files, PDF letters and filled PDF
// forms) into the line-structured text the extractor reads.
package intake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/mail"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxFileSize bounds FromFile reads when Options leaves it unset.
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

var (
	ErrUnsupportedSource = errors.New("unsupported source type")
	ErrFileTooLarge      = errors.New("file exceeds size limit")
	ErrOutsideDirectory  = errors.New("path is outside the input directory")
)

// Options configures a Loader.
type Options struct {
	// InputDir confines FromFile. Relative paths are resolved against it.
	InputDir    string
	MaxFileSize int64
}

// Loader reads quote requests from text and files.
type Loader struct {
	opts   Options
	guard  *guard
	logger *zap.Logger
}

func New(logger *zap.Logger, opts Options) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	return &Loader{
		opts:   opts,
		guard:  newGuard(opts.InputDir),
		logger: logger.Named("intake"),
	}
}

var (
	htmlSniff  = regexp.MustCompile(`(?i)<\s*(html|body|div|p|br|table|span|ul|li)\b`)
	emphasis   = regexp.MustCompile(`\*\*|__`)
	mdLink     = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	mdEscape   = regexp.MustCompile("\\\\([\\\\`*_{}\\[\\]()#+\\-.!|<>~])")
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// FromText repairs line endings, folds compatibility characters (full-width
// colons, no-break spaces) and flattens HTML bodies to one line per block.
func (l *Loader) FromText(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if htmlSniff.MatchString(text) {
		text = l.fromHTML(text)
	}
	text = norm.NFKC.String(text)
	return strings.TrimSpace(blankLines.ReplaceAllString(text, "\n\n"))
}

func (l *Loader) fromHTML(html string) string {
	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		l.logger.Warn("html conversion failed, using raw body", zap.Error(err))
		return html
	}
	md = emphasis.ReplaceAllString(md, "")
	md = mdLink.ReplaceAllString(md, "$1")
	return mdEscape.ReplaceAllString(md, "$1")
}

// FromFile reads a request stored under the input directory.
func (l *Loader) FromFile(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	resolved, err := l.guard.resolve(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory: %w", path, ErrUnsupportedSource)
	}
	if info.Size() > l.opts.MaxFileSize {
		return "", fmt.Errorf("%s is %d bytes (limit %d): %w", path, info.Size(), l.opts.MaxFileSize, ErrFileTooLarge)
	}

	ext := strings.ToLower(filepath.Ext(resolved))
	logger := l.logger.With(zap.String("path", resolved), zap.String("ext", ext))
	logger.Debug("reading request file", zap.Int64("bytes", info.Size()))

	switch ext {
	case ".pdf":
		text, err := readPDF(resolved, logger)
		if err != nil {
			return "", err
		}
		return l.FromText(text), nil
	case ".html", ".htm":
		body, err := os.ReadFile(resolved)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return l.FromText(l.fromHTML(string(body))), nil
	case ".eml":
		body, err := os.ReadFile(resolved)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return l.FromText(l.mailBody(body)), nil
	case ".txt", ".md", "":
		body, err := os.ReadFile(resolved)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return l.FromText(string(body)), nil
	}
	return "", fmt.Errorf("%s: %w", ext, ErrUnsupportedSource)
}

// mailBody returns the body of a single-part message, converted from HTML
// when the message says so. Unparseable input is returned whole.
func (l *Loader) mailBody(raw []byte) string {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		l.logger.Debug("not an rfc 5322 message, reading as text", zap.Error(err))
		return string(raw)
	}
	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return string(raw)
	}
	if mediaType, _, err := mime.ParseMediaType(msg.Header.Get("Content-Type")); err == nil && mediaType == "text/html" {
		return l.fromHTML(string(body))
	}
	return string(body)
}
