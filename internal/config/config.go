package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Cookie modes understood by the fetcher.
const (
	CookieModeNone   = "none"
	CookieModeFile   = "file"
	CookieModeInline = "inline"
)

// Cookie is one inline cookie entry written to a Netscape cookie jar.
type Cookie struct {
	Domain string `yaml:"domain"`
	Path   string `yaml:"path"`
	Name   string `yaml:"name"`
	Value  string `yaml:"value"`
	Secure bool   `yaml:"secure"`
	// Expires is a unix timestamp, 0 for a session cookie.
	Expires int64 `yaml:"expires"`
}

type Cookies struct {
	Mode    string   `yaml:"mode"`
	File    string   `yaml:"file"`
	Entries []Cookie `yaml:"entries"`
}

type RateLimit struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type Config struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	ScratchDir string `yaml:"scratchDir"`

	FFmpegBin string  `yaml:"ffmpegBin"`
	YtdlpBin  string  `yaml:"ytdlpBin"`
	Format    string  `yaml:"format"`
	UserAgent string  `yaml:"userAgent"`
	Cookies   Cookies `yaml:"cookies"`

	MinDuration int `yaml:"minDuration"`
	MaxDuration int `yaml:"maxDuration"`
	TitleMaxLen int `yaml:"titleMaxLen"`

	DefaultSegmentLength int `yaml:"defaultSegmentLength"`
	DefaultMaxSegments   int `yaml:"defaultMaxSegments"`
	MaxSegmentsLimit     int `yaml:"maxSegmentsLimit"`

	FetchTimeout time.Duration `yaml:"fetchTimeout"`
	CutTimeout   time.Duration `yaml:"cutTimeout"`

	PublicBaseURL string    `yaml:"publicBaseURL"`
	RateLimit     RateLimit `yaml:"rateLimit"`

	LogFile  string `yaml:"logFile"`
	LogLevel string `yaml:"logLevel"`

	InboxDir       string   `yaml:"inboxDir"`
	Keywords       []string `yaml:"keywords"`
	IgnoreKeywords []string `yaml:"ignoreKeywords"`
}

func NewDefault() *Config {
	return &Config{
		Port:                 8080,
		ScratchDir:           filepath.Join(os.TempDir(), "segcut"),
		FFmpegBin:            "ffmpeg",
		YtdlpBin:             "yt-dlp",
		Format:               "mp4[height<=720][filesize<50M]",
		UserAgent:            "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
		Cookies:              Cookies{Mode: CookieModeNone},
		MinDuration:          5,
		MaxDuration:          600,
		TitleMaxLen:          50,
		DefaultSegmentLength: 60,
		DefaultMaxSegments:   5,
		MaxSegmentsLimit:     50,
		FetchTimeout:         10 * time.Minute,
		CutTimeout:           2 * time.Minute,
		RateLimit:            RateLimit{Requests: 60, Window: time.Minute},
		LogLevel:             "info",
	}
}

// Path returns the location of the user config file.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "segcut", "config.yaml"), nil
}

func Load() (*Config, error) {
	cfg := NewDefault()

	configPath, err := Path()
	if err != nil {
		applyEnv(cfg)
		return cfg, nil // ホームディレクトリが取れなくてもデフォルトで進む
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		applyEnv(cfg)
		return cfg, nil
	}

	f, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v, ok := os.LookupEnv("PORT"); ok {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v, ok := os.LookupEnv("SEGCUT_SCRATCH_DIR"); ok && v != "" {
		cfg.ScratchDir = v
	}
}

// Addr is the listen address; an empty host binds all interfaces.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	if c.ScratchDir == "" {
		return fmt.Errorf("scratchDir must be set")
	}
	if c.MinDuration < 0 || c.MaxDuration <= 0 {
		return fmt.Errorf("duration bounds must be positive (min=%d max=%d)", c.MinDuration, c.MaxDuration)
	}
	if c.MinDuration > c.MaxDuration {
		return fmt.Errorf("minDuration %d exceeds maxDuration %d", c.MinDuration, c.MaxDuration)
	}
	if c.DefaultSegmentLength <= 0 || c.DefaultMaxSegments <= 0 {
		return fmt.Errorf("default segment length and count must be positive")
	}
	if c.MaxSegmentsLimit < c.DefaultMaxSegments {
		return fmt.Errorf("maxSegmentsLimit %d is below defaultMaxSegments %d", c.MaxSegmentsLimit, c.DefaultMaxSegments)
	}
	if c.FetchTimeout <= 0 || c.CutTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	switch c.Cookies.Mode {
	case "", CookieModeNone:
	case CookieModeFile:
		if c.Cookies.File == "" {
			return fmt.Errorf("cookies.file is required when cookies.mode is %q", CookieModeFile)
		}
	case CookieModeInline:
		if len(c.Cookies.Entries) == 0 {
			return fmt.Errorf("cookies.entries is empty for mode %q", CookieModeInline)
		}
	default:
		return fmt.Errorf("unknown cookies.mode %q", c.Cookies.Mode)
	}
	return nil
}

// Encode renders the config as YAML.
func (c *Config) Encode() ([]byte, error) {
	return yaml.Marshal(c)
}
