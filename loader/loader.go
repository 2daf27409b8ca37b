package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"agenthub/types"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	MaxFileSize     = 10 << 20
	defaultTextName = "Custom Text"
)

var (
	ErrEmptySource   = errors.New("data source is empty")
	ErrUnsupported   = errors.New("unsupported file type")
	ErrNoConverter   = errors.New("no PDF converter configured")
	ErrFileTooLarge  = errors.New("file is too large")
	ErrInvalidSource = errors.New("invalid URL")
)

// Loader turns user input into data sources for the PRD agent. Plain text is
// taken as is; PDFs are validated, cropped and converted to markdown by a
// docling server.
type Loader struct {
	doclingURL string
	client     *http.Client
	workDir    string
	log        *zap.Logger

	cropTop    float64
	cropBottom float64

	// preparePDF checks the PDF at in and writes the file to convert to out.
	preparePDF func(in, out string) error
}

type Option func(*Loader)

func WithDocling(baseURL string, client *http.Client) Option {
	return func(l *Loader) {
		l.doclingURL = strings.TrimRight(baseURL, "/")
		if client != nil {
			l.client = client
		}
	}
}

func WithWorkDir(dir string) Option {
	return func(l *Loader) { l.workDir = dir }
}

func WithLogger(log *zap.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// WithCrop sets the header and footer heights, in points, removed from every
// page before conversion. Zero on both sides disables cropping.
func WithCrop(top, bottom float64) Option {
	return func(l *Loader) {
		l.cropTop = top
		l.cropBottom = bottom
	}
}

func New(opts ...Option) *Loader {
	l := &Loader{
		client: http.DefaultClient,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.preparePDF == nil {
		l.preparePDF = l.validateAndCrop
	}
	return l
}

func newSource(typ types.SourceType, name, content string) types.DataSource {
	return types.DataSource{
		ID:      uuid.New(),
		Type:    typ,
		Name:    name,
		Content: content,
		Status:  types.SourceReady,
	}
}

func (l *Loader) Text(name, content string) (types.DataSource, error) {
	if strings.TrimSpace(content) == "" {
		return types.DataSource{}, ErrEmptySource
	}
	if strings.TrimSpace(name) == "" {
		name = defaultTextName
	}
	return newSource(types.SourceText, name, content), nil
}

// URL keeps the address itself as the content; fetching is up to the backend.
func (l *Loader) URL(raw string) (types.DataSource, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return types.DataSource{}, ErrEmptySource
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return types.DataSource{}, fmt.Errorf("%w: %q", ErrInvalidSource, raw)
	}
	return newSource(types.SourceURL, raw, raw), nil
}

// File reads an uploaded file. Text files become a file source directly, PDFs
// go through conversion. On a failed conversion the returned source carries
// the error status along with the error.
func (l *Loader) File(ctx context.Context, name string, r io.Reader) (types.DataSource, error) {
	name = filepath.Base(name)
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return types.DataSource{}, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if len(data) > MaxFileSize {
		return types.DataSource{}, fmt.Errorf("%w: %s", ErrFileTooLarge, name)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return types.DataSource{}, fmt.Errorf("%w: %s", ErrEmptySource, name)
	}

	if isPDF(name, data) {
		return l.pdf(ctx, name, data)
	}
	if !utf8.Valid(data) {
		return types.DataSource{}, fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
	text := strings.TrimPrefix(string(data), "\ufeff")
	return newSource(types.SourceFile, name, text), nil
}

func isPDF(name string, data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-")) || strings.EqualFold(filepath.Ext(name), ".pdf")
}

func (l *Loader) pdf(ctx context.Context, name string, data []byte) (types.DataSource, error) {
	failed := types.DataSource{ID: uuid.New(), Type: types.SourceFile, Name: name, Status: types.SourceError}
	if l.doclingURL == "" {
		return failed, fmt.Errorf("%w: %s", ErrNoConverter, name)
	}

	dir, err := os.MkdirTemp(l.workDir, "pdf-*")
	if err != nil {
		return failed, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.pdf")
	out := filepath.Join(dir, "out.pdf")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return failed, fmt.Errorf("failed to store %s: %w", name, err)
	}
	if err := l.preparePDF(in, out); err != nil {
		return failed, fmt.Errorf("%s: %w", name, err)
	}

	md, err := l.convertPDFToMD(ctx, out, name)
	if err != nil {
		return failed, fmt.Errorf("%s: %w", name, err)
	}
	if strings.TrimSpace(md) == "" {
		return failed, fmt.Errorf("%w: %s converted to nothing", ErrEmptySource, name)
	}

	l.log.Info("pdf converted", zap.String("name", name), zap.Int("bytes", len(data)), zap.Int("md_len", len(md)))
	return newSource(types.SourceFile, name, md), nil
}
