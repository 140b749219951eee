package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Import   ImportConfig   `mapstructure:"import"`
	Calendar CalendarConfig `mapstructure:"calendar"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port int        `mapstructure:"port"`
	CORS CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // 分钟
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig 操作员 JWT 认证配置
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	// 首次启动时若无任何操作员，则按此账号创建管理员
	BootstrapUsername string `mapstructure:"bootstrap_username"`
	BootstrapPassword string `mapstructure:"bootstrap_password"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"` // stdout 或文件路径
}

// BackendConfig 选课系统后端 REST API 配置
type BackendConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Token         string        `mapstructure:"token"`
	CSRFToken     string        `mapstructure:"csrf_token"`
	SessionCookie string        `mapstructure:"session_cookie"`
}

// ImportConfig 批量导入配置
type ImportConfig struct {
	ScanRows          int           `mapstructure:"scan_rows"` // 表头探测窗口
	MaxRows           int           `mapstructure:"max_rows"`
	MaxUploadMB       int64         `mapstructure:"max_upload_mb"`
	DefaultDepartment string        `mapstructure:"default_department"`
	Concurrency       int           `mapstructure:"concurrency"`
	TeacherCacheTTL   time.Duration `mapstructure:"teacher_cache_ttl"`
	LockTTL           time.Duration `mapstructure:"lock_ttl"`
}

// CalendarConfig 课表日历导出配置
type CalendarConfig struct {
	Timezone    string   `mapstructure:"timezone"`
	Weeks       int      `mapstructure:"weeks"`
	PeriodTimes []string `mapstructure:"period_times"` // 第 N 节 -> "HH:MM-HH:MM"
}

// DefaultPeriodTimes 默认节次时间表（第 1~14 节）
var DefaultPeriodTimes = []string{
	"08:10-09:00", "09:10-10:00", "10:10-11:00", "11:10-12:00",
	"12:40-13:30", "13:40-14:30", "14:40-15:30", "15:40-16:30",
	"16:40-17:30", "17:40-18:30", "18:35-19:25", "19:30-20:20",
	"20:25-21:15", "21:20-22:10",
}

// Load 从 .env、配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadForCLI 加载命令行工具所需配置，只校验导入相关项
func LoadForCLI(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateImport(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(path string) (*Config, error) {
	// .env 仅用于本地开发，不存在时忽略
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("CLASSMATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "classmatch_import")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Taipei")
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", 60)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// 无默认值的键也要登记，AutomaticEnv 才能在 Unmarshal 时覆盖
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", "2h")
	v.SetDefault("auth.bootstrap_username", "admin")
	v.SetDefault("auth.bootstrap_password", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("backend.base_url", "http://localhost:8000/api")
	v.SetDefault("backend.timeout", "15s")
	v.SetDefault("backend.token", "")
	v.SetDefault("backend.csrf_token", "")
	v.SetDefault("backend.session_cookie", "")

	v.SetDefault("import.scan_rows", 10)
	v.SetDefault("import.max_rows", 2000)
	v.SetDefault("import.max_upload_mb", 10)
	v.SetDefault("import.default_department", "資管系")
	v.SetDefault("import.concurrency", 1)
	v.SetDefault("import.teacher_cache_ttl", "10m")
	v.SetDefault("import.lock_ttl", "10m")

	v.SetDefault("calendar.timezone", "Asia/Taipei")
	v.SetDefault("calendar.weeks", 18)
	v.SetDefault("calendar.period_times", DefaultPeriodTimes)
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	return c.ValidateImport()
}

// ValidateImport 校验导入相关配置（命令行工具不需要数据库与 JWT，单独复用）
func (c *Config) ValidateImport() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("配置校验失败: backend.base_url 无效: %q", c.Backend.BaseURL)
	}
	if c.Import.Concurrency < 1 {
		return fmt.Errorf("配置校验失败: import.concurrency 不能小于 1")
	}
	if c.Import.ScanRows < 1 {
		return fmt.Errorf("配置校验失败: import.scan_rows 不能小于 1")
	}
	return nil
}
