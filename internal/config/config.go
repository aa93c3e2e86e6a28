package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MaxPlayers 每个房间的玩家上限（固定为双人）
const MaxPlayers = 2

// Config 服务端配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Redis    RedisConfig    `yaml:"redis"`
	Game     GameConfig     `yaml:"game"`
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig WebSocket 服务器配置
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	MaxConnections int    `yaml:"max_connections"`
	PublicURL      string `yaml:"public_url"` // 分享链接前缀，用于生成房间二维码
	Profile        bool   `yaml:"profile"`    // 是否注册 pprof 路由
	LogFile        string `yaml:"log_file"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// GameConfig 游戏配置
type GameConfig struct {
	TotalRounds     int     `yaml:"total_rounds"`      // 每局回合数
	RevealDelayMs   int     `yaml:"reveal_delay_ms"`   // 揭晓动画时长（毫秒）
	MinTimeTaken    float64 `yaml:"min_time_taken"`    // 用时下限（秒）
	GridRows        int     `yaml:"grid_rows"`         // 摆放网格行数
	GridCols        int     `yaml:"grid_cols"`         // 摆放网格列数
	ShutdownTimeout int     `yaml:"shutdown_timeout"`  // 优雅关闭等待（秒）
	RoomSnapshotTTL int     `yaml:"room_snapshot_ttl"` // Redis 房间快照过期（分钟）
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	AllowedOrigins []string           `yaml:"allowed_origins"`
	RateLimit      RateLimitConfig    `yaml:"rate_limit"`
	MessageLimit   MessageLimitConfig `yaml:"message_limit"`
}

// RateLimitConfig 连接速率限制（按 IP）
type RateLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
	MaxPerMinute int `yaml:"max_per_minute"`
	BanDuration  int `yaml:"ban_duration"` // 秒
}

// MessageLimitConfig 消息速率限制（按连接）
type MessageLimitConfig struct {
	MaxPerSecond int `yaml:"max_per_second"`
}

// RevealDelay 返回揭晓阶段时长
func (c *GameConfig) RevealDelay() time.Duration {
	return time.Duration(c.RevealDelayMs) * time.Millisecond
}

// ShutdownTimeoutDuration 返回优雅关闭等待时长
func (c *GameConfig) ShutdownTimeoutDuration() time.Duration {
	return time.Duration(c.ShutdownTimeout) * time.Second
}

// RoomSnapshotTTLDuration 返回房间快照过期时长
func (c *GameConfig) RoomSnapshotTTLDuration() time.Duration {
	return time.Duration(c.RoomSnapshotTTL) * time.Minute
}

// BanDurationTime 返回封禁时长
func (c *RateLimitConfig) BanDurationTime() time.Duration {
	return time.Duration(c.BanDuration) * time.Second
}

// Load 加载配置文件
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default 返回默认配置
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults 为未设置的字段填充默认值
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.MaxConnections == 0 {
		c.Server.MaxConnections = 1000
	}
	if c.Server.PublicURL == "" {
		c.Server.PublicURL = "http://localhost:3000"
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Game.TotalRounds == 0 {
		c.Game.TotalRounds = 5
	}
	if c.Game.RevealDelayMs == 0 {
		c.Game.RevealDelayMs = 7000
	}
	if c.Game.MinTimeTaken == 0 {
		c.Game.MinTimeTaken = 0.1
	}
	if c.Game.GridRows == 0 {
		c.Game.GridRows = 6
	}
	if c.Game.GridCols == 0 {
		c.Game.GridCols = 5
	}
	if c.Game.ShutdownTimeout == 0 {
		c.Game.ShutdownTimeout = 60
	}
	if c.Game.RoomSnapshotTTL == 0 {
		c.Game.RoomSnapshotTTL = 120
	}
	if len(c.Security.AllowedOrigins) == 0 {
		c.Security.AllowedOrigins = []string{"*"}
	}
	if c.Security.RateLimit.MaxPerSecond == 0 {
		c.Security.RateLimit.MaxPerSecond = 10
	}
	if c.Security.RateLimit.MaxPerMinute == 0 {
		c.Security.RateLimit.MaxPerMinute = 60
	}
	if c.Security.RateLimit.BanDuration == 0 {
		c.Security.RateLimit.BanDuration = 60
	}
	if c.Security.MessageLimit.MaxPerSecond == 0 {
		// updateCount 会随每次点击发送，需要较宽松的上限
		c.Security.MessageLimit.MaxPerSecond = 30
	}
}
