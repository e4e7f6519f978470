package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wbrown/img2aa"
)

// Config holds the aaify configuration.
type Config struct {
	Engine  img2aa.Params `yaml:"engine"`
	Font    FontConfig    `yaml:"font"`
	Input   InputConfig   `yaml:"input"`
	Output  OutputConfig  `yaml:"output"`
	Cache   CacheConfig   `yaml:"cache"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// FontConfig selects the output font and character set.
type FontConfig struct {
	Path    string  `yaml:"path"` // TrueType file; empty uses the built-in reference font
	Size    float64 `yaml:"size"`
	Charset string  `yaml:"charset"`
	GlyphDB string  `yaml:"glyph_db"` // prebuilt glyph database from compute_glyphs
}

// InputConfig controls feature extraction from the source drawing.
type InputConfig struct {
	Width int  `yaml:"width"` // resize drawing to this many pixels, 0 keeps size
	Edges bool `yaml:"edges"` // use Canny edges as ink
}

// OutputConfig holds line behaviour and encoding settings.
type OutputConfig struct {
	Encoding    string `yaml:"encoding"` // utf8, sjis (default: utf8)
	BBS         bool   `yaml:"bbs"`
	ThinSpace   bool   `yaml:"thin_space"`
	BluePattern string `yaml:"blue_pattern"`
	RedPattern  string `yaml:"red_pattern"`
	Preview     string `yaml:"preview"` // optional PNG of the rendered text
}

// CacheConfig holds embedding cache settings. Empty addrs keeps the
// cache in memory.
type CacheConfig struct {
	Addrs     []string `yaml:"addrs"`
	Password  string   `yaml:"password"`
	KeyPrefix string   `yaml:"key_prefix"`
}

// MetricsConfig holds the prometheus listener. Empty disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Env   string `yaml:"env"`   // prod, local, dev, cli (default: cli)
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// DefaultCharset is the character set used when none is configured.
const DefaultCharset = ` !"#$%&'()*+,-./0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\]^_` +
	"`abcdefghijklmnopqrstuvwxyz{|}~"

// Default returns a configuration with every default applied.
func Default() Config {
	cfg := Config{Engine: img2aa.DefaultParams()}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads configuration from a YAML file. Fields missing from the
// file keep their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration data.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	cfg := Config{Engine: img2aa.DefaultParams()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Font.Size <= 0 {
		c.Font.Size = 16
	}
	if c.Font.Charset == "" {
		c.Font.Charset = DefaultCharset
	}
	if c.Output.Encoding == "" {
		c.Output.Encoding = img2aa.EncodingUTF8
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "img2aa:emb:"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "cli"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Output.Encoding) {
	case img2aa.EncodingUTF8, img2aa.EncodingShiftJIS:
	default:
		return fmt.Errorf("output.encoding must be %q or %q, got %q",
			img2aa.EncodingUTF8, img2aa.EncodingShiftJIS, c.Output.Encoding)
	}
	if c.Engine.BeamWidth <= 0 {
		return fmt.Errorf("engine.beam_width must be positive, got %d", c.Engine.BeamWidth)
	}
	if c.Engine.TopK <= 0 {
		return fmt.Errorf("engine.top_k must be positive, got %d", c.Engine.TopK)
	}
	if c.Input.Width < 0 {
		return fmt.Errorf("input.width must not be negative, got %d", c.Input.Width)
	}
	for name, v := range map[string]float64{
		"blank_density":       c.Engine.BlankDensity,
		"draft_blank_density": c.Engine.DraftBlankDensity,
		"ink_threshold":       c.Engine.InkThreshold,
		"min_confidence":      c.Engine.MinConfidence,
		"dot_confidence":      c.Engine.DotConfidence,
		"bar_confidence":      c.Engine.BarConfidence,
		"draft_confidence":    c.Engine.DraftConfidence,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("engine.%s must be between 0 and 1, got %g", name, v)
		}
	}
	return nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
