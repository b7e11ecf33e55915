package structures

import "time"

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type UpstreamConfig struct {
	BaseURL   string        `yaml:"baseURL" validate:"required|fullUrl"`
	Timeout   time.Duration `yaml:"timeout" validate:"required|min:1"`
	RateLimit float64       `yaml:"rateLimit"`
	Burst     int           `yaml:"burst"`
}

type LeaderboardConfig struct {
	PageSize int `yaml:"pageSize" validate:"required|min:1|max:100"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type WarmupConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	WebServer   Server            `yaml:"webServer"`
	Logger      LoggerConfig      `yaml:"logger"`
	Upstream    UpstreamConfig    `yaml:"upstream"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
	Cache       CacheConfig       `yaml:"cache"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Warmup      WarmupConfig      `yaml:"warmup"`
}
