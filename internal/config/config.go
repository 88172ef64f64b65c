package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values use Go duration strings
// ("500ms", "2s").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config carries the file-level settings the CLI reads before applying flag
// overrides.
type Config struct {
	// DB is the SQLite database path; relative paths resolve against the
	// repository root.
	DB string `yaml:"db"`

	// Languages restricts parsing to the listed languages. Empty means every
	// supported language.
	Languages []string `yaml:"languages"`

	// Ignore lists extra directory names to skip during discovery, on top of
	// the built-in prune set.
	Ignore []string `yaml:"ignore"`

	// Workers bounds the parse worker pool. Zero means one worker per CPU.
	Workers int `yaml:"workers"`

	// Debounce is the watch-mode quiet period before a rebuild.
	Debounce Duration `yaml:"debounce"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		DB:       "trellis.db",
		Debounce: Duration(500 * time.Millisecond),
	}
}

// Load reads a YAML file over the defaults: keys absent from the file keep
// their default values. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values no component can run with.
func (c Config) Validate() error {
	if c.DB == "" {
		return errors.New("db path is empty")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	if c.Debounce <= 0 {
		return fmt.Errorf("debounce must be positive, got %s", c.Debounce.Std())
	}
	return nil
}
