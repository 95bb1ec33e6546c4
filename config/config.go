package config

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the explicit configuration passed into every stage constructor.
// Non-secret options come from config.yaml; secrets only from the environment.
type Config struct {
	Environment string `yaml:"environment"`
	Debug       bool   `yaml:"debug"`

	Paths    PathsConfig    `yaml:"paths"`
	LLM      LLMConfig      `yaml:"llm"`
	Audio    AudioConfig    `yaml:"audio"`
	Video    VideoConfig    `yaml:"video"`
	Image    ImageConfig    `yaml:"image"`
	Text     TextConfig     `yaml:"text"`
	Logging  LoggingConfig  `yaml:"logging"`
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Environment-only credentials, never read from the YAML file
	API APIConfig `yaml:"-"`
}

type PathsConfig struct {
	Data   string `yaml:"data"`
	Output string `yaml:"output"`
	Logs   string `yaml:"logs"`
}

type APIConfig struct {
	OpenAIKey           string
	ElevenLabsKey       string
	YouTubeClientID     string
	YouTubeClientSecret string
	YouTubeRefreshToken string
}

type LLMConfig struct {
	Model string `yaml:"model"`
}

type AudioConfig struct {
	SampleRate int    `yaml:"sample_rate"`
	Format     string `yaml:"format"`
	Quality    string `yaml:"quality"`
	VoiceID    string `yaml:"voice_id"`
}

type VideoConfig struct {
	Resolution string `yaml:"resolution"`
	FPS        int    `yaml:"fps"`
	Format     string `yaml:"format"`
}

type ImageConfig struct {
	Width    int    `yaml:"width"`
	Height   int    `yaml:"height"`
	Format   string `yaml:"format"`
	FontPath string `yaml:"font_path"`
}

type TextConfig struct {
	MinLength int `yaml:"min_length"`
	MaxLength int `yaml:"max_length"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type PipelineConfig struct {
	TimeoutSec            int  `yaml:"timeout_sec"`
	RetryAttempts         int  `yaml:"retry_attempts"`
	TextProcessingEnabled bool `yaml:"text_processing_enabled"`
	AudioEnabled          bool `yaml:"audio_generation_enabled"`
	ImageEnabled          bool `yaml:"image_generation_enabled"`
	VideoEnabled          bool `yaml:"video_creation_enabled"`
	YouTubeUploadEnabled  bool `yaml:"youtube_upload_enabled"`
	MaxWorkers            int  `yaml:"max_workers"`
	KeepIntermediateFiles bool `yaml:"keep_intermediate_files"`
}

// Timeout returns the pipeline timeout as a duration
func (p PipelineConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSec) * time.Second
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Environment: "development",
		Debug:       true,
		Paths: PathsConfig{
			Data:   "data",
			Output: "output",
			Logs:   "logs",
		},
		LLM: LLMConfig{
			Model: "gpt-4o-mini",
		},
		Audio: AudioConfig{
			SampleRate: 22050,
			Format:     "mp3",
			Quality:    "high",
			VoiceID:    "21m00Tcm4TlvDq8ikWAM", // Rachel
		},
		Video: VideoConfig{
			Resolution: "1920x1080",
			FPS:        30,
			Format:     "mp4",
		},
		Image: ImageConfig{
			Width:  1920,
			Height: 1080,
			Format: "png",
		},
		Text: TextConfig{
			MinLength: 100,
			MaxLength: 10000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Pipeline: PipelineConfig{
			TimeoutSec:            3600,
			RetryAttempts:         3,
			TextProcessingEnabled: true,
			AudioEnabled:          true,
			ImageEnabled:          true,
			VideoEnabled:          true,
			YouTubeUploadEnabled:  false,
			MaxWorkers:            4,
		},
	}
}

// Load reads the YAML config at path (missing file means defaults) and
// applies environment overrides on top.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// run on defaults
	case err != nil:
		return nil, errors.Wrapf(err, "read config %s", path)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.API.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	c.API.ElevenLabsKey = os.Getenv("ELEVENLABS_API_KEY")
	c.API.YouTubeClientID = os.Getenv("YOUTUBE_CLIENT_ID")
	c.API.YouTubeClientSecret = os.Getenv("YOUTUBE_CLIENT_SECRET")
	c.API.YouTubeRefreshToken = os.Getenv("YOUTUBE_REFRESH_TOKEN")

	if v := os.Getenv("OPENAI_API_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Debug = b
		}
	}
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
