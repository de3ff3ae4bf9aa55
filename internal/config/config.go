package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	FrontendOrigin string `yaml:"frontend_origin"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type UploadsConfig struct {
	Directory string `yaml:"directory"`
	MaxBytes  int64  `yaml:"max_bytes"`
}

type RoboflowConfig struct {
	APIKey  string `yaml:"api_key"`
	ModelID string `yaml:"model_id"`
	URL     string `yaml:"url"`
}

type PlateRecognizerConfig struct {
	Token string `yaml:"token"`
	URL   string `yaml:"url"`
}

type VisionConfig struct {
	Timeout         time.Duration         `yaml:"timeout"`
	Roboflow        RoboflowConfig        `yaml:"roboflow"`
	PlateRecognizer PlateRecognizerConfig `yaml:"plate_recognizer"`
}

type ExportConfig struct {
	FontPath string `yaml:"font_path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Uploads  UploadsConfig  `yaml:"uploads"`
	Vision   VisionConfig   `yaml:"vision"`
	Export   ExportConfig   `yaml:"export"`
	Log      LogConfig      `yaml:"log"`
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           5000,
			FrontendOrigin: "*",
		},
		Database: DatabaseConfig{
			Path: "alerta_vecinal.db",
		},
		Uploads: UploadsConfig{
			Directory: "./uploads",
			MaxBytes:  10 << 20,
		},
		Vision: VisionConfig{
			Timeout: 20 * time.Second,
			Roboflow: RoboflowConfig{
				ModelID: "gun-trmre-usutd/3",
				URL:     "https://detect.roboflow.com",
			},
			PlateRecognizer: PlateRecognizerConfig{
				URL: "https://api.platerecognizer.com/v1/plate-reader/",
			},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, the optional yaml file at path
// and finally the process environment. A .env file in the working directory is
// loaded into the environment first when present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("ALERTA_HOST", &c.Server.Host)
	str("FRONTEND_ORIGIN", &c.Server.FrontendOrigin)
	str("DATABASE_PATH", &c.Database.Path)
	str("UPLOAD_DIR", &c.Uploads.Directory)
	str("ROBOFLOW_API_KEY", &c.Vision.Roboflow.APIKey)
	str("ROBOFLOW_MODEL_ID", &c.Vision.Roboflow.ModelID)
	str("ROBOFLOW_API_URL", &c.Vision.Roboflow.URL)
	str("PLATERECOGNIZER_API_TOKEN", &c.Vision.PlateRecognizer.Token)
	str("PLATERECOGNIZER_API_URL", &c.Vision.PlateRecognizer.URL)
	str("PDF_FONT_PATH", &c.Export.FontPath)
	str("LOG_LEVEL", &c.Log.Level)

	if v, ok := lookup("ALERTA_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing ALERTA_PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("VISION_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parsing VISION_TIMEOUT: %w", err)
		}
		c.Vision.Timeout = d
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}
	if strings.TrimSpace(c.Uploads.Directory) == "" {
		return errors.New("upload directory is required")
	}
	if c.Uploads.MaxBytes <= 0 {
		return errors.New("upload size limit must be positive")
	}
	if c.Vision.Timeout <= 0 {
		return errors.New("vision timeout must be positive")
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
