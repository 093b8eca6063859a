package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"PriceSync/internal/utils/textnorm"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`     // 服务器配置
	Database   DatabaseConfig   `mapstructure:"database"`   // 数据库配置
	Redis      RedisConfig      `mapstructure:"redis"`      // Redis 匹配队列配置
	Matching   MatchingConfig   `mapstructure:"matching"`   // 商品匹配配置
	Ingest     IngestConfig     `mapstructure:"ingest"`     // 入库配置
	Pagination PaginationConfig `mapstructure:"pagination"` // 分页配置
	Retailers  []RetailerConfig `mapstructure:"retailers"`  // 超市列表及数据源
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port           int      `mapstructure:"port"`            // 服务端口
	Mode           string   `mapstructure:"mode"`            // Gin运行模式：debug/release/test
	LogLevel       string   `mapstructure:"log_level"`       // 日志级别：debug/info/warn/error
	AllowedOrigins []string `mapstructure:"allowed_origins"` // CORS 允许的来源
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`            // postgres / sqlite
	DSN             string        `mapstructure:"dsn"`               // 连接DSN
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
	LogLevel        string        `mapstructure:"log_level"`         // GORM日志级别：silent/error/warn/info
}

// RedisConfig Redis Streams 配置，enabled=false 时使用进程内队列
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Stream   string `mapstructure:"stream"`    // 匹配任务 stream 名
	Group    string `mapstructure:"group"`     // 消费组
	MaxRetry int    `mapstructure:"max_retry"` // 超过后进入死信队列
}

// MatchingConfig 商品匹配配置
type MatchingConfig struct {
	Threshold     float64 `mapstructure:"threshold"`      // 相似度阈值
	MaxCandidates int     `mapstructure:"max_candidates"` // 候选数量上限
	Async         bool    `mapstructure:"async"`          // false 时入库后同步执行匹配
	Workers       int     `mapstructure:"workers"`        // 进程内 worker 数
	RetryCount    int     `mapstructure:"retry_count"`    // 单个任务重试次数
}

// IngestConfig 入库配置
type IngestConfig struct {
	ConflictRetries int           `mapstructure:"conflict_retries"` // 并发冲突重试次数
	BackoffBase     time.Duration `mapstructure:"backoff_base"`     // 退避初始间隔
	DefaultCurrency string        `mapstructure:"default_currency"` // 默认币种
}

// PaginationConfig 分页配置
type PaginationConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
	HistoryLimit int `mapstructure:"history_limit"` // 价格历史默认条数
}

// RetailerConfig 单个超市配置
type RetailerConfig struct {
	Name       string     `mapstructure:"name"`
	Slug       string     `mapstructure:"slug"` // 为空时由名称生成
	WebsiteURL string     `mapstructure:"website_url"`
	LogoURL    string     `mapstructure:"logo_url"`
	ChainGroup string     `mapstructure:"chain_group"` // 所属集团
	Location   string     `mapstructure:"location"`    // 为空时默认 Temuco
	Feed       FeedConfig `mapstructure:"feed"`
}

// FeedConfig 数据源配置
type FeedConfig struct {
	Type      string  `mapstructure:"type"`       // file / http，为空表示无数据源
	Path      string  `mapstructure:"path"`       // file 类型：JSON文件路径
	URL       string  `mapstructure:"url"`        // http 类型：接口地址
	Timeout   int     `mapstructure:"timeout"`    // 请求超时（秒）
	AuthToken string  `mapstructure:"auth_token"` // 通用认证Token
	Proxy     string  `mapstructure:"proxy"`      // 代理地址
	RateLimit float64 `mapstructure:"rate_limit"` // 每秒请求数，<=0 不限速
}

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")
	setDefaults(v)
	v.SetEnvPrefix("PRICESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile 从指定路径加载配置
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	overrideFromEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("redis.stream", "pricesync:match")
	v.SetDefault("redis.group", "matcher")
	v.SetDefault("redis.max_retry", 5)
	v.SetDefault("matching.threshold", 0.65)
	v.SetDefault("matching.max_candidates", 10)
	v.SetDefault("matching.async", true)
	v.SetDefault("matching.workers", 4)
	v.SetDefault("matching.retry_count", 3)
	v.SetDefault("ingest.conflict_retries", 3)
	v.SetDefault("ingest.backoff_base", 50*time.Millisecond)
	v.SetDefault("ingest.default_currency", "CLP")
	v.SetDefault("pagination.default_limit", 20)
	v.SetDefault("pagination.max_limit", 100)
	v.SetDefault("pagination.history_limit", 30)
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
}

// Validate 校验配置合法性
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("不支持的数据库驱动: %q", c.Database.Driver)
	}
	if c.Matching.Threshold <= 0 || c.Matching.Threshold > 1 {
		return fmt.Errorf("matching.threshold 必须在 (0,1] 内: %v", c.Matching.Threshold)
	}
	if c.Matching.MaxCandidates <= 0 {
		return fmt.Errorf("matching.max_candidates 必须大于0")
	}
	if c.Pagination.MaxLimit <= 0 || c.Pagination.DefaultLimit <= 0 || c.Pagination.DefaultLimit > c.Pagination.MaxLimit {
		return fmt.Errorf("分页配置非法: default=%d max=%d", c.Pagination.DefaultLimit, c.Pagination.MaxLimit)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.enabled=true 时必须配置 redis.addr")
	}
	seen := make(map[string]bool)
	for i, r := range c.Retailers {
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("retailers[%d] 缺少 name", i)
		}
		switch r.Feed.Type {
		case "":
		case "file":
			if r.Feed.Path == "" {
				return fmt.Errorf("retailers[%d] file 数据源缺少 path", i)
			}
		case "http":
			if r.Feed.URL == "" {
				return fmt.Errorf("retailers[%d] http 数据源缺少 url", i)
			}
		default:
			return fmt.Errorf("retailers[%d] 不支持的数据源类型: %s", i, r.Feed.Type)
		}
		if r.Slug != "" && r.Slug != textnorm.Slugify(r.Slug) {
			return fmt.Errorf("retailers[%d] slug 须为小写字母数字加连字符: %q", i, r.Slug)
		}
		slug := r.ResolvedSlug()
		if slug == "" {
			return fmt.Errorf("retailers[%d] 无法由名称生成 slug: %q", i, r.Name)
		}
		if seen[slug] {
			return fmt.Errorf("retailers[%d] slug 重复: %s", i, slug)
		}
		seen[slug] = true
	}
	return nil
}

// ResolvedSlug 配置的 slug，为空时由名称生成
func (r RetailerConfig) ResolvedSlug() string {
	if r.Slug != "" {
		return r.Slug
	}
	return textnorm.Slugify(r.Name)
}

// GetGORMConfig 获取GORM配置
func (d *DatabaseConfig) GetGORMConfig() *gorm.Config {
	level := logger.Warn
	switch strings.ToLower(d.LogLevel) {
	case "silent":
		level = logger.Silent
	case "error":
		level = logger.Error
	case "info":
		level = logger.Info
	}
	return &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true, // 唯一约束冲突转换为 gorm.ErrDuplicatedKey
	}
}
