package models

import "fmt"

// Config holds every runtime setting of the service and its command line client.
type Config struct {
	Server ServerConfig `json:"server" yaml:"server"`
	Store  StoreConfig  `json:"store" yaml:"store"`
	Client ClientConfig `json:"client" yaml:"client"`
	Log    LogConfig    `json:"log" yaml:"log"`
}

// ServerConfig configures the HTTP resource layer.
type ServerConfig struct {
	Host            string   `json:"host" yaml:"host"`
	Port            int      `json:"port" yaml:"port"`
	Mode            string   `json:"mode" yaml:"mode"`                       // gin mode: debug, release, test
	AllowedOrigins  []string `json:"allowed_origins" yaml:"allowed_origins"` // CORS origins, "*" allows any
	ReadTimeoutSec  int      `json:"read_timeout_sec" yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `json:"write_timeout_sec" yaml:"write_timeout_sec"`
}

// Address returns host:port for http.Server.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StoreConfig selects and configures the persistent record store.
type StoreConfig struct {
	Driver string      `json:"driver" yaml:"driver"` // badger, sqlite, redis, memory
	Path   string      `json:"path" yaml:"path"`     // directory for badger, file for sqlite
	Redis  RedisConfig `json:"redis" yaml:"redis"`
}

// RedisConfig holds the redis backend connection settings.
type RedisConfig struct {
	Addr      string `json:"addr" yaml:"addr"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`
}

// ClientConfig configures the fetch client used by the command line tools.
type ClientConfig struct {
	BaseURL    string `json:"base_url" yaml:"base_url"`
	TimeoutSec int    `json:"timeout_sec" yaml:"timeout_sec"`
}

// LogConfig 定义了日志相关的配置
type LogConfig struct {
	Level      string `json:"level" yaml:"level"`             // 日志级别, e.g., "debug", "info", "warn", "error"
	Output     string `json:"output" yaml:"output"`           // 输出模式: "console", "file", "both"
	File       string `json:"file" yaml:"file"`               // 日志文件路径
	MaxSize    int    `json:"max_size" yaml:"max_size"`       // 单个日志文件的最大大小 (MB)
	MaxBackups int    `json:"max_backups" yaml:"max_backups"` // 保留的旧日志文件最大数量
	MaxAge     int    `json:"max_age" yaml:"max_age"`         // 旧日志文件的最大保留天数
	Compress   bool   `json:"compress" yaml:"compress"`       // 是否压缩旧日志文件
}
