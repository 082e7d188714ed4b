package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Storage backends.
const (
	BackendLocal  = "local"
	BackendDrive  = "drive"
	BackendMirror = "mirror"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8090"`

	// Auth
	APIKey string `env:"ZHREADER_API_KEY"`

	// Claude analysis
	AnthropicAPIKey  string `env:"ANTHROPIC_API_KEY"`
	AnthropicModel   string `env:"ANTHROPIC_MODEL" envDefault:"claude-sonnet-4-5-20250929"`
	AnthropicBaseURL string `env:"ANTHROPIC_BASE_URL" envDefault:"https://api.anthropic.com"`
	ReadingsFile     string `env:"READINGS_FILE"`

	// Storage
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"local"`
	DataDir        string `env:"DATA_DIR"` // Empty selects the XDG data dir
	DriveURL       string `env:"DRIVE_URL" envDefault:"http://localhost:8080"`
	DriveAPIKey    string `env:"DRIVE_API_KEY"`

	// Worker pool
	WorkerCount        int `env:"WORKER_COUNT" envDefault:"2"`
	MaxQueueSize       int `env:"MAX_QUEUE_SIZE" envDefault:"100"`
	MaxConcurrentStore int `env:"MAX_CONCURRENT_STORE" envDefault:"8"`
	AnalysisBatchSize  int `env:"ANALYSIS_BATCH_SIZE" envDefault:"10"`

	// Upload limits
	MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"20971520"` // 20MB

	// Segmentation
	MaxChapterLength    int    `env:"MAX_CHAPTER_LENGTH" envDefault:"5000"`
	DefaultChapterTitle string `env:"DEFAULT_CHAPTER_TITLE" envDefault:"Nội dung"`
	PreambleTitle       string `env:"PREAMBLE_TITLE" envDefault:"Lời mở đầu"`

	// Job state
	JobTTL time.Duration `env:"JOB_TTL" envDefault:"1h"`

	// PDF
	PDFFallbackPdftotext bool `env:"PDF_FALLBACK_PDFTOTEXT" envDefault:"true"`
}

// Load reads the configuration from the environment. Non-positive numbers
// fall back to their defaults.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.WorkerCount <= 0 {
		c.WorkerCount = 2
	}
	if c.MaxQueueSize <= 0 {
		c.MaxQueueSize = 100
	}
	if c.MaxConcurrentStore <= 0 {
		c.MaxConcurrentStore = 8
	}
	if c.AnalysisBatchSize <= 0 {
		c.AnalysisBatchSize = 10
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = 20971520
	}
	if c.MaxChapterLength <= 0 {
		c.MaxChapterLength = 5000
	}
	if c.JobTTL <= 0 {
		c.JobTTL = 1 * time.Hour
	}
	if c.StorageBackend == "" {
		c.StorageBackend = BackendLocal
	}
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("ZHREADER_API_KEY is required")
	}
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	switch c.StorageBackend {
	case BackendLocal:
	case BackendDrive, BackendMirror:
		if c.DriveAPIKey == "" {
			return fmt.Errorf("DRIVE_API_KEY is required for STORAGE_BACKEND=%s", c.StorageBackend)
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (want local, drive or mirror)", c.StorageBackend)
	}
	return nil
}
