package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// Config 保存进程级配置（仅使用配置文件或内置默认值）。
// 字段提供开发友好的默认值；生产环境请在 config.yaml 中覆盖。
type Config struct {
	Env        string
	HTTPAddr   string
	Log        LogConfig
	MySQL      MySQLConfig
	Redis      RedisConfig
	Pagination PaginationConfig
	Media      MediaConfig
	S3         S3Config
	NATS       NATSConfig
	Limits     LimitConfig
	Security   SecurityConfig
}

type LogConfig struct {
	// 取值：debug、info、warn、error
	Level string
}

type MySQLConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	Params   string
}

func (m MySQLConfig) DSN() string {
	port := m.Port
	if port == 0 {
		port = 3306
	}
	host := m.Host
	if host == "" {
		host = "127.0.0.1"
	}
	db := m.DBName
	if db == "" {
		db = "adboard"
	}
	params := m.Params
	if params == "" {
		params = "parseTime=true&loc=Local&charset=utf8mb4,utf8"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s", m.User, m.Password, host, port, db, params)
}

func (m MySQLConfig) DSNMasked() string {
	masked := m
	if masked.Password != "" {
		masked.Password = "******"
	}
	return masked.DSN()
}

// RedisConfig 仅用于写接口限流；Addr 为空表示不启用。
type RedisConfig struct {
	Addr     string
	DB       int
	Password string
}

type PaginationConfig struct {
	// 列表接口每页条数
	PageSize int
}

// MediaConfig 描述广告图片的存储方式。
type MediaConfig struct {
	// local 或 s3
	Backend string
	// 本地存储根目录（Backend=local）
	Root string
	// 图片对外访问前缀，如 /media/
	URL string
	// 单次上传的请求体上限（字节）
	MaxUploadBytes int64
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// 若设置则图片 URL 使用该前缀（例如 CDN 地址）
	PublicURL string
}

// NATSConfig 为空 URL 时不发布领域事件。
type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

type LimitConfig struct {
	WritesPerMinute int
	// 时间窗口（默认 1m）
	Window time.Duration
}

type SecurityConfig struct {
	HSTS struct {
		Enabled           bool
		MaxAgeSeconds     int
		IncludeSubdomains bool
	}
}

// Load 生成配置：先使用内置默认值，再用工作目录下的配置文件（config.yaml/yml/json）覆盖。
func Load() Config {
	cfg := Defaults()
	if path := FirstExisting("config.yaml", "config.yml", "config.json"); path != "" {
		_ = loadFromFile(path, &cfg)
	}
	return cfg
}

// LoadFile 与 Load 相同，但显式指定配置文件；文件不存在或格式错误时返回错误。
func LoadFile(path string) (Config, error) {
	cfg := Defaults()
	if err := loadFromFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Defaults 返回本地开发可直接运行的默认配置。
// 默认：MySQL 127.0.0.1:3306 用户 root/123456；Redis 127.0.0.1:6379 无密码。
func Defaults() Config {
	return Config{
		Env:        "dev",
		HTTPAddr:   ":8000",
		Log:        LogConfig{Level: "info"},
		MySQL:      MySQLConfig{Host: "127.0.0.1", Port: 3306, User: "root", Password: "123456", DBName: "adboard", Params: "parseTime=true&loc=Local&charset=utf8mb4,utf8"},
		Redis:      RedisConfig{Addr: "127.0.0.1:6379", DB: 0, Password: ""},
		Pagination: PaginationConfig{PageSize: 10},
		Media:      MediaConfig{Backend: "local", Root: "media", URL: "/media/", MaxUploadBytes: 5 << 20},
		S3:         S3Config{Endpoint: "localhost:9000", AccessKey: "minioadmin", SecretKey: "minioadmin", Bucket: "ad-images"},
		NATS:       NATSConfig{SubjectPrefix: "ads"},
		Limits:     LimitConfig{WritesPerMinute: 60, Window: time.Minute},
		Security: func() SecurityConfig {
			var s SecurityConfig
			s.HSTS.Enabled = true
			s.HSTS.MaxAgeSeconds = 31536000
			s.HSTS.IncludeSubdomains = true
			return s
		}(),
	}
}

// 配置文件格式：YAML 或 JSON。仅非零值会覆盖现有字段。
func loadFromFile(path string, cfg *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	ext := strings.ToLower(filepath.Ext(path))
	var fm fileModel
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(b, &fm); err != nil {
			return err
		}
	} else if ext == ".json" || ext == "" {
		if err := json.Unmarshal(b, &fm); err != nil {
			return err
		}
	} else {
		return errors.New("unsupported config file format")
	}
	fm.apply(cfg)
	return nil
}

// --- 配置文件模型与合并逻辑 ---

type fileModel struct {
	Env        string          `yaml:"env" json:"env"`
	HTTPAddr   string          `yaml:"http_addr" json:"http_addr"`
	Log        *fileLog        `yaml:"log" json:"log"`
	MySQL      *fileMySQL      `yaml:"mysql" json:"mysql"`
	Redis      *fileRedis      `yaml:"redis" json:"redis"`
	Pagination *filePagination `yaml:"pagination" json:"pagination"`
	Media      *fileMedia      `yaml:"media" json:"media"`
	S3         *fileS3         `yaml:"s3" json:"s3"`
	NATS       *fileNATS       `yaml:"nats" json:"nats"`
	Limits     *fileLimits     `yaml:"limits" json:"limits"`
	Security   *fileSecurity   `yaml:"security" json:"security"`
}

type fileLog struct {
	Level string `yaml:"level" json:"level"`
}
type fileMySQL struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	User     string `yaml:"user" json:"user"`
	Password string `yaml:"password" json:"password"`
	DBName   string `yaml:"db" json:"db"`
	Params   string `yaml:"params" json:"params"`
}
type fileRedis struct {
	// 指针以便显式写 addr: "" 关闭限流
	Addr     *string `yaml:"addr" json:"addr"`
	DB       int     `yaml:"db" json:"db"`
	Password string  `yaml:"password" json:"password"`
}
type filePagination struct {
	PageSize int `yaml:"page_size" json:"page_size"`
}
type fileMedia struct {
	Backend        string `yaml:"backend" json:"backend"`
	Root           string `yaml:"root" json:"root"`
	URL            string `yaml:"url" json:"url"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes" json:"max_upload_bytes"`
}
type fileS3 struct {
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	AccessKey string `yaml:"access_key" json:"access_key"`
	SecretKey string `yaml:"secret_key" json:"secret_key"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	UseSSL    *bool  `yaml:"use_ssl" json:"use_ssl"`
	PublicURL string `yaml:"public_url" json:"public_url"`
}
type fileNATS struct {
	URL           string `yaml:"url" json:"url"`
	SubjectPrefix string `yaml:"subject_prefix" json:"subject_prefix"`
}
type fileLimits struct {
	WritesPerMinute int    `yaml:"writes_per_minute" json:"writes_per_minute"`
	Window          string `yaml:"window" json:"window"`
}
type fileSecurity struct {
	HSTS struct {
		Enabled           *bool `yaml:"enabled" json:"enabled"`
		MaxAge            int   `yaml:"max_age" json:"max_age"`
		IncludeSubdomains *bool `yaml:"include_subdomains" json:"include_subdomains"`
	} `yaml:"hsts" json:"hsts"`
}

func (fm *fileModel) apply(cfg *Config) {
	if fm.Env != "" {
		cfg.Env = fm.Env
	}
	if fm.HTTPAddr != "" {
		cfg.HTTPAddr = fm.HTTPAddr
	}
	if fm.Log != nil && fm.Log.Level != "" {
		cfg.Log.Level = fm.Log.Level
	}
	if fm.MySQL != nil {
		if fm.MySQL.Host != "" {
			cfg.MySQL.Host = fm.MySQL.Host
		}
		if fm.MySQL.Port != 0 {
			cfg.MySQL.Port = fm.MySQL.Port
		}
		if fm.MySQL.User != "" {
			cfg.MySQL.User = fm.MySQL.User
		}
		if fm.MySQL.Password != "" {
			cfg.MySQL.Password = fm.MySQL.Password
		}
		if fm.MySQL.DBName != "" {
			cfg.MySQL.DBName = fm.MySQL.DBName
		}
		if fm.MySQL.Params != "" {
			cfg.MySQL.Params = fm.MySQL.Params
		}
	}
	if fm.Redis != nil {
		if fm.Redis.Addr != nil {
			cfg.Redis.Addr = *fm.Redis.Addr
		}
		if fm.Redis.DB != 0 {
			cfg.Redis.DB = fm.Redis.DB
		}
		if fm.Redis.Password != "" {
			cfg.Redis.Password = fm.Redis.Password
		}
	}
	if fm.Pagination != nil && fm.Pagination.PageSize > 0 {
		cfg.Pagination.PageSize = fm.Pagination.PageSize
	}
	if fm.Media != nil {
		if fm.Media.Backend != "" {
			cfg.Media.Backend = strings.ToLower(fm.Media.Backend)
		}
		if fm.Media.Root != "" {
			cfg.Media.Root = fm.Media.Root
		}
		if fm.Media.URL != "" {
			cfg.Media.URL = fm.Media.URL
		}
		if fm.Media.MaxUploadBytes > 0 {
			cfg.Media.MaxUploadBytes = fm.Media.MaxUploadBytes
		}
	}
	if fm.S3 != nil {
		if fm.S3.Endpoint != "" {
			cfg.S3.Endpoint = fm.S3.Endpoint
		}
		if fm.S3.AccessKey != "" {
			cfg.S3.AccessKey = fm.S3.AccessKey
		}
		if fm.S3.SecretKey != "" {
			cfg.S3.SecretKey = fm.S3.SecretKey
		}
		if fm.S3.Bucket != "" {
			cfg.S3.Bucket = fm.S3.Bucket
		}
		if fm.S3.UseSSL != nil {
			cfg.S3.UseSSL = *fm.S3.UseSSL
		}
		if fm.S3.PublicURL != "" {
			cfg.S3.PublicURL = fm.S3.PublicURL
		}
	}
	if fm.NATS != nil {
		if fm.NATS.URL != "" {
			cfg.NATS.URL = fm.NATS.URL
		}
		if fm.NATS.SubjectPrefix != "" {
			cfg.NATS.SubjectPrefix = fm.NATS.SubjectPrefix
		}
	}
	if fm.Limits != nil {
		if fm.Limits.WritesPerMinute != 0 {
			cfg.Limits.WritesPerMinute = fm.Limits.WritesPerMinute
		}
		if fm.Limits.Window != "" {
			if d, err := time.ParseDuration(fm.Limits.Window); err == nil {
				cfg.Limits.Window = d
			}
		}
	}
	if fm.Security != nil {
		if fm.Security.HSTS.Enabled != nil {
			cfg.Security.HSTS.Enabled = *fm.Security.HSTS.Enabled
		}
		if fm.Security.HSTS.MaxAge != 0 {
			cfg.Security.HSTS.MaxAgeSeconds = fm.Security.HSTS.MaxAge
		}
		if fm.Security.HSTS.IncludeSubdomains != nil {
			cfg.Security.HSTS.IncludeSubdomains = *fm.Security.HSTS.IncludeSubdomains
		}
	}
}

// FirstExisting 按顺序返回第一个存在的文件路径；若都不存在则返回空字符串。
func FirstExisting(paths ...string) string {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
