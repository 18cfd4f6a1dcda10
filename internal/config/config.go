package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"wikisearch/internal/contact"
)

// KnownKeys defines environment variable keys that wikisearch recognizes.
var KnownKeys = []string{
	"WIKISEARCH_INDEX_PATH",
	"WIKISEARCH_ARCHIVE_PATH",
	"WIKISEARCH_DUMP_URL",
	"WIKISEARCH_BATCH_SIZE",
	"WIKISEARCH_CANDIDATE_LIMIT",
	"WIKISEARCH_CONTACT_EMAIL",
	"WIKISEARCH_DOWNLOAD_RETRIES",
	"WIKISEARCH_METRICS_ADDR",
	"WIKISEARCH_LOG_LEVEL",
}

const (
	DefaultDumpURL        = "https://dumps.wikimedia.org/ruwiki/latest/ruwiki-latest-all-titles-in-ns0.gz"
	DefaultBatchSize      = 50000
	DefaultCandidateLimit = 500
	DefaultRetries        = 3

	userAgentBase = "RuWikiSearch/1.0.0"
)

// ErrInvalidContact is returned when WIKISEARCH_CONTACT_EMAIL is set but is
// not a deliverable-looking address.
var ErrInvalidContact = errors.New("invalid contact email")

// Config is the resolved runtime configuration.
type Config struct {
	IndexPath       string
	ArchivePath     string
	DumpURL         string
	BatchSize       int
	CandidateLimit  int
	ContactEmail    string
	DownloadRetries int
	MetricsAddr     string
	LogLevel        string
}

// UserAgent identifies the tool to dumps.wikimedia.org, with the operator's
// contact address when one is configured.
func (c Config) UserAgent() string {
	if c.ContactEmail == "" {
		return userAgentBase
	}
	return fmt.Sprintf("%s (%s)", userAgentBase, c.ContactEmail)
}

// Load reads configuration from the environment, falling back to defaults
// rooted at ~/.wikisearch.
func Load() (Config, error) {
	base := baseDir()
	c := Config{
		IndexPath:       envOr("WIKISEARCH_INDEX_PATH", filepath.Join(base, "wiki-titles.db")),
		ArchivePath:     envOr("WIKISEARCH_ARCHIVE_PATH", filepath.Join(base, "ru-wiki-latest-all-titles.gz")),
		DumpURL:         envOr("WIKISEARCH_DUMP_URL", DefaultDumpURL),
		BatchSize:       DefaultBatchSize,
		CandidateLimit:  DefaultCandidateLimit,
		DownloadRetries: DefaultRetries,
		MetricsAddr:     os.Getenv("WIKISEARCH_METRICS_ADDR"),
		LogLevel:        envOr("WIKISEARCH_LOG_LEVEL", "info"),
	}
	var err error
	if c.BatchSize, err = intEnv("WIKISEARCH_BATCH_SIZE", c.BatchSize); err != nil {
		return Config{}, err
	}
	if c.CandidateLimit, err = intEnv("WIKISEARCH_CANDIDATE_LIMIT", c.CandidateLimit); err != nil {
		return Config{}, err
	}
	if c.DownloadRetries, err = intEnv("WIKISEARCH_DOWNLOAD_RETRIES", c.DownloadRetries); err != nil {
		return Config{}, err
	}
	if v := strings.TrimSpace(os.Getenv("WIKISEARCH_CONTACT_EMAIL")); v != "" {
		if !contact.ValidEmail(v) {
			return Config{}, fmt.Errorf("%w: %q", ErrInvalidContact, v)
		}
		c.ContactEmail = v
	}
	return c, nil
}

func baseDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".wikisearch"
	}
	return filepath.Join(home, ".wikisearch")
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: expected positive integer, got %q", key, v)
	}
	return n, nil
}

// LoadAndApply loads configuration from ~/.wikisearch/config.yaml (or .yml/.json)
// and applies values into the process environment for known keys if they are
// not already set. Environment variables take precedence over file values.
func LoadAndApply() error {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return nil // non-fatal
	}
	return ApplyFrom(filepath.Join(home, ".wikisearch"))
}

// ApplyFrom is LoadAndApply for an explicit config directory.
func ApplyFrom(dir string) error {
	paths := []string{
		filepath.Join(dir, "config.yaml"),
		filepath.Join(dir, "config.yml"),
		filepath.Join(dir, "config.json"),
	}
	var data map[string]any
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var m map[string]any
		if strings.HasSuffix(p, ".json") {
			err = json.Unmarshal(b, &m)
		} else {
			err = yaml.Unmarshal(b, &m)
		}
		if err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		data = m
		break
	}
	if len(data) == 0 {
		return nil
	}
	// Apply to env if not set already
	for _, key := range KnownKeys {
		if os.Getenv(key) != "" {
			continue
		}
		if v, ok := lookupInsensitive(data, key); ok {
			os.Setenv(key, toString(v))
		}
	}
	return nil
}

func lookupInsensitive(m map[string]any, key string) (any, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	// allow lower/upper keys
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		// avoid trailing .0 for integer-like values
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
