package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Platforms map[string]Platform `yaml:"platforms"`
	Replies   Replies             `yaml:"replies"`
	Browser   Browser             `yaml:"browser"`
	Output    Output              `yaml:"output"`
	Server    Server              `yaml:"server"`
	Logging   Logging             `yaml:"logging"`
}

// Platform describes one delivery platform's merchant review page: where the
// listing lives, how to find reviews in it, and the constants the star
// extractor needs. Selectors are defaults, expected to need updating when a
// platform redesigns.
type Platform struct {
	ReviewURL     string    `yaml:"review_url"` // template, {store} placeholder
	SortOption    string    `yaml:"sort_option"`
	FilterOption  string    `yaml:"filter_option"`
	Selectors     Selectors `yaml:"selectors"`
	ActiveColor   string    `yaml:"active_star_color"`
	StarWidthPx   float64   `yaml:"star_width_px"`
	IconSelector  string    `yaml:"star_icon_selector"`
	HasSubRatings bool      `yaml:"has_sub_ratings"`
}

type Selectors struct {
	List         string `yaml:"list"`
	Item         string `yaml:"item"`
	Reviewer     string `yaml:"reviewer"`
	Date         string `yaml:"date"`
	Text         string `yaml:"text"`
	Menu         string `yaml:"menu"`
	Images       string `yaml:"images"`
	RatingWidget string `yaml:"rating_widget"`
	SubRatingRow string `yaml:"sub_rating_row"`
	SubName      string `yaml:"sub_rating_name"`
	ReplyBox     string `yaml:"reply_box"`
	ReplySubmit  string `yaml:"reply_submit"`
}

// Replies configures reply generation.
type Replies struct {
	Provider  string `yaml:"provider"` // "template", "ollama", or "openai"
	Model     string `yaml:"model"`
	OllamaURL string `yaml:"ollama_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	MaxTokens int    `yaml:"max_tokens"`
	Template  string `yaml:"template"` // fallback body, {reviewer} placeholder
}

type Browser struct {
	Headless  bool `yaml:"headless"`
	TimeoutMS int  `yaml:"timeout_ms"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for reviewsync.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "reviewsync")
}

// DataDir returns the XDG data directory for reviewsync.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "reviewsync")
}

/// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/reviewsync/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'reviewsync init' to create a default config",
		xdgConfig,
	)
}

// Default parses the embedded default configuration.
func Default() (*Config, error) {
	return parse(DefaultConfigYAML)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config. Platform blocks come entirely from
// the YAML (the embedded default carries all three platforms); scalar
// defaults are applied before unmarshal.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Replies: Replies{
			Provider:  "template",
			Model:     "qwen2.5:7b",
			OllamaURL: "http://localhost:11434",
			APIKeyEnv: "OPENAI_API_KEY",
			MaxTokens: 256,
			Template:  "{reviewer}님, 소중한 리뷰 감사합니다. 더 좋은 모습으로 보답하겠습니다!",
		},
		Browser: Browser{Headless: true, TimeoutMS: 30000},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetPlatform returns the named platform block.
func (c *Config) GetPlatform(name string) (Platform, error) {
	p, ok := c.Platforms[strings.ToLower(name)]
	if !ok {
		return Platform{}, fmt.Errorf("unknown platform %q", name)
	}
	return p, nil
}

// ReviewPageURL expands the platform's review URL template for a store.
func (p Platform) ReviewPageURL(storeCode string) string {
	return strings.ReplaceAll(p.ReviewURL, "{store}", storeCode)
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
