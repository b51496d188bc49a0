package corpus

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"runtime"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultSuffix selects which files under the root are documents.
	DefaultSuffix = ".torrent"
	// DefaultMultiFileThreshold is the file count from which a document
	// feeds the multi-file average.
	DefaultMultiFileThreshold = 100
	// DefaultMaxDocumentSize caps a loaded (decompressed) document.
	DefaultMaxDocumentSize = 1 << 30
)

// Config describes one corpus scan. It can be loaded from YAML; command
// line flags override individual fields.
type Config struct {
	// Root is the directory walked for documents.
	Root string `yaml:"root"`

	// Suffixes lists accepted file name endings. A trailing ".zst" or
	// ".lz4" on an accepted name selects decompression when loading.
	// Default: [".torrent"]
	Suffixes []string `yaml:"suffixes"`

	// Exclude lists path.Match patterns tested against the slash-separated
	// path relative to Root and against the base name. Matching
	// directories are not descended into.
	Exclude []string `yaml:"exclude"`

	// MultiFileThreshold is the minimum file count for a document to feed
	// the multi-file average. Default: 100
	MultiFileThreshold int64 `yaml:"multi_file_threshold"`

	// Workers is the number of concurrent scanners. Default: GOMAXPROCS.
	Workers int `yaml:"workers"`

	// MaxDepth bounds container nesting inside a document. Default: 64
	MaxDepth int `yaml:"max_depth"`

	// Strict requires every document to be structurally complete.
	Strict bool `yaml:"strict"`

	// Mmap maps uncompressed documents instead of reading them. A file
	// truncated by another process while it is mapped kills the scan with
	// SIGBUS rather than counting as one failed document, so only enable it
	// on corpora that are not being written to.
	Mmap bool `yaml:"mmap"`

	// Dedupe folds each distinct infohash once.
	Dedupe bool `yaml:"dedupe"`

	// MaxDocumentSize caps the bytes of one loaded document.
	// Default: 1 GiB
	MaxDocumentSize int64 `yaml:"max_document_size"`
}

// LoadConfig reads a YAML config file. Unknown keys are rejected so that a
// misspelled option does not silently fall back to its default.
func LoadConfig(filename string) (Config, error) {
	var cfg Config
	f, err := os.Open(filename)
	if err != nil {
		return cfg, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parsing config %s: %w", filename, err)
	}
	cfg.SetDefaults()
	return cfg, nil
}

// SetDefaults fills zero-valued fields.
func (c *Config) SetDefaults() {
	if len(c.Suffixes) == 0 {
		c.Suffixes = []string{DefaultSuffix}
	}
	if c.MultiFileThreshold == 0 {
		c.MultiFileThreshold = DefaultMultiFileThreshold
	}
	if c.Workers == 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.MaxDocumentSize == 0 {
		c.MaxDocumentSize = DefaultMaxDocumentSize
	}
}

// Validate checks the config after defaults are applied.
func (c *Config) Validate() error {
	if c.Root == "" {
		return errors.New("root directory is required")
	}
	for _, s := range c.Suffixes {
		if s == "" {
			return errors.New("empty suffix")
		}
	}
	for _, p := range c.Exclude {
		if _, err := path.Match(p, ""); err != nil {
			return fmt.Errorf("exclude pattern %q: %w", p, err)
		}
	}
	if c.MultiFileThreshold < 1 {
		return fmt.Errorf("multi_file_threshold must be positive, got %d", c.MultiFileThreshold)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative, got %d", c.MaxDepth)
	}
	if c.MaxDocumentSize < 1 {
		return fmt.Errorf("max_document_size must be positive, got %d", c.MaxDocumentSize)
	}
	return nil
}
