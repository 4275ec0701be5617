package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig      `yaml:"server"`
	Database DatabaseConfig    `yaml:"database"`
	Qdrant   QdrantConfig      `yaml:"qdrant"`
	NATS     NATSConfig        `yaml:"nats"`
	MinIO    MinIOConfig       `yaml:"minio"`
	Watch    WatchConfig       `yaml:"watch"`
	Pipeline PipelineConfig    `yaml:"pipeline"`
	Vision   VisionConfig      `yaml:"vision"`
	Rooms    map[string]string `yaml:"rooms"`
	Logging  LoggingConfig     `yaml:"logging"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	MaxConns int    `yaml:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

type QdrantConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	Collection         string        `yaml:"collection"`
	Timeout            time.Duration `yaml:"timeout"`
	RecreateOnMismatch bool          `yaml:"recreate_on_mismatch"`
}

func (q QdrantConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", q.Host, q.Port)
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// WatchConfig describes the snapshot drop directory the tracker polls.
type WatchConfig struct {
	Dir             string   `yaml:"dir"`
	Patterns        []string `yaml:"patterns"`
	Recursive       bool     `yaml:"recursive"`
	MaxFileSize     int64    `yaml:"max_file_size"`
	BatchSize       int      `yaml:"batch_size"`
	DefaultCamera   string   `yaml:"default_camera"`
	DefaultLocation string   `yaml:"default_location"`
}

type PipelineConfig struct {
	PollInterval      time.Duration `yaml:"poll_interval"`
	Workers           int           `yaml:"workers"`
	QueueSize         int           `yaml:"queue_size"`
	MinFaces          int           `yaml:"min_faces"`
	TopK              int           `yaml:"top_k"`
	PrimaryThreshold  float64       `yaml:"primary_threshold"`
	FallbackThreshold float64       `yaml:"fallback_threshold"`
	VectorSize        int           `yaml:"vector_size"`
	CacheRefresh      time.Duration `yaml:"cache_refresh"`
	DeleteProcessed   bool          `yaml:"delete_processed"`
}

type VisionConfig struct {
	ModelsDir            string  `yaml:"models_dir"`
	DetectionThreshold   float64 `yaml:"detection_threshold"`
	SharpnessBase        float64 `yaml:"sharpness_base"`
	SharpnessCoefficient float64 `yaml:"sharpness_coefficient"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads config from YAML file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6333
	}
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = "identities"
	}
	if cfg.Qdrant.Timeout == 0 {
		cfg.Qdrant.Timeout = 5 * time.Second
	}
	if len(cfg.Watch.Patterns) == 0 {
		cfg.Watch.Patterns = []string{"*.jpg", "*.jpeg", "*.png"}
	}
	if cfg.Watch.MaxFileSize == 0 {
		cfg.Watch.MaxFileSize = 10 << 20
	}
	if cfg.Watch.BatchSize == 0 {
		cfg.Watch.BatchSize = 20
	}
	if cfg.Pipeline.PollInterval == 0 {
		cfg.Pipeline.PollInterval = 2 * time.Second
	}
	if cfg.Pipeline.Workers < 1 {
		cfg.Pipeline.Workers = 2
	}
	if cfg.Pipeline.QueueSize < 10 {
		cfg.Pipeline.QueueSize = 10
	}
	if cfg.Pipeline.MinFaces == 0 {
		cfg.Pipeline.MinFaces = 1
	}
	if cfg.Pipeline.TopK == 0 {
		cfg.Pipeline.TopK = 5
	}
	if cfg.Pipeline.PrimaryThreshold == 0 {
		cfg.Pipeline.PrimaryThreshold = 0.87
	}
	if cfg.Pipeline.FallbackThreshold == 0 {
		cfg.Pipeline.FallbackThreshold = 0.78
	}
	if cfg.Pipeline.VectorSize == 0 {
		cfg.Pipeline.VectorSize = 512
	}
	if cfg.Pipeline.CacheRefresh == 0 {
		cfg.Pipeline.CacheRefresh = time.Minute
	}
	if cfg.Vision.DetectionThreshold == 0 {
		cfg.Vision.DetectionThreshold = 0.5
	}
	if cfg.Vision.SharpnessBase == 0 {
		cfg.Vision.SharpnessBase = 100
	}
	if cfg.Vision.SharpnessCoefficient == 0 {
		cfg.Vision.SharpnessCoefficient = 0.001
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FACETRACK_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FACETRACK_API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("FACETRACK_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("FACETRACK_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("FACETRACK_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("FACETRACK_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("FACETRACK_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("FACETRACK_QDRANT_HOST"); v != "" {
		cfg.Qdrant.Host = v
	}
	if v := os.Getenv("FACETRACK_QDRANT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Qdrant.Port = port
		}
	}
	if v := os.Getenv("FACETRACK_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("FACETRACK_MINIO_ENDPOINT"); v != "" {
		cfg.MinIO.Endpoint = v
	}
	if v := os.Getenv("FACETRACK_MINIO_ACCESS_KEY"); v != "" {
		cfg.MinIO.AccessKey = v
	}
	if v := os.Getenv("FACETRACK_MINIO_SECRET_KEY"); v != "" {
		cfg.MinIO.SecretKey = v
	}
	if v := os.Getenv("FACETRACK_MINIO_BUCKET"); v != "" {
		cfg.MinIO.Bucket = v
	}
	if v := os.Getenv("FACETRACK_WATCH_DIR"); v != "" {
		cfg.Watch.Dir = v
	}
	if v := os.Getenv("FACETRACK_MODELS_DIR"); v != "" {
		cfg.Vision.ModelsDir = v
	}
	if v := os.Getenv("FACETRACK_PIPELINE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Pipeline.Workers = n
		}
	}
}
