package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultServerAddr        = ":3000"
	DefaultBackendURL        = "http://localhost:5000"
	DefaultTotalSections     = 15
	DefaultPRDContext        = "AKS PRD creation"
	DefaultPRDReviewContext  = "AKS PRD review"
	DefaultContextTokenLimit = 8000
)

type Postgres struct {
	Host   string
	Port   int
	User   string
	Pass   string
	DBName string
}

type Config struct {
	ServerAddr string
	BackendURL string
	StaticDir  string
	DoclingURL string
	UploadDir  string
	LogLevel   string

	Postgres Postgres

	PRDTotalSections  int
	PRDContext        string
	PRDReviewContext  string
	ContextTokenLimit int
	// StreamTimeout bounds one stream; zero leaves streams unbounded.
	StreamTimeout time.Duration

	PDFCropTop    float64
	PDFCropBottom float64
}

// Load reads the given env files (".env" when none is given) into the process
// environment and builds the configuration from it. Missing files are not an
// error, variables already set in the environment win.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("error loading %s: %w", f, err)
		}
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	p := &parser{}
	cfg := Config{
		ServerAddr: str("SERVER_ADDR", DefaultServerAddr),
		BackendURL: strings.TrimRight(str("BACKEND_URL", DefaultBackendURL), "/"),
		StaticDir:  str("STATIC_DIR", ""),
		DoclingURL: str("DOCLING_URL", ""),
		UploadDir:  str("UPLOAD_DIR", ""),
		LogLevel:   str("LOG_LEVEL", "info"),
		Postgres: Postgres{
			Host:   str("PG_HOST", ""),
			Port:   p.int("PG_PORT", 5432),
			User:   str("PG_USER", ""),
			Pass:   str("PG_PASS", ""),
			DBName: str("PG_DB_NAME", ""),
		},
		PRDTotalSections:  p.int("PRD_TOTAL_SECTIONS", DefaultTotalSections),
		PRDContext:        str("PRD_CONTEXT", DefaultPRDContext),
		PRDReviewContext:  str("PRD_REVIEW_CONTEXT", DefaultPRDReviewContext),
		ContextTokenLimit: p.int("CONTEXT_TOKEN_LIMIT", DefaultContextTokenLimit),
		StreamTimeout:     p.duration("STREAM_TIMEOUT"),
		PDFCropTop:        p.float("PDF_CROP_TOP"),
		PDFCropBottom:     p.float("PDF_CROP_BOTTOM"),
	}
	if p.err != nil {
		return Config{}, p.err
	}
	if cfg.PRDTotalSections <= 0 {
		return Config{}, fmt.Errorf("PRD_TOTAL_SECTIONS must be positive, got %d", cfg.PRDTotalSections)
	}
	return cfg, nil
}

// UsePostgres reports whether sessions are kept in Postgres. Without PG_HOST
// they stay in memory.
func (c Config) UsePostgres() bool {
	return c.Postgres.Host != ""
}

func (c Config) PostgresConnString() string {
	pg := c.Postgres
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable", pg.Host, pg.Port, pg.User, pg.Pass, pg.DBName)
}

func str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// parser keeps the first conversion error so FromEnv can report it once.
type parser struct {
	err error
}

func (p *parser) fail(key, v string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
}

func (p *parser) int(key string, def int) int {
	v := str(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return def
	}
	return n
}

func (p *parser) float(key string) float64 {
	v := str(key, "")
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return 0
	}
	return f
}

// duration accepts Go durations ("90s") and plain seconds ("90").
func (p *parser) duration(key string) time.Duration {
	v := str(key, "")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return 0
	}
	return d
}
