package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config представляет конфигурацию приложения
type Config struct {
	Server struct {
		Port int
		Env  string
	}
	DB struct {
		Host            string
		Port            int
		User            string
		Password        string
		DBName          string
		SSLMode         string
		MaxIdleConns    int
		MaxOpenConns    int
		ConnMaxLifetime time.Duration
		MigrationsPath  string
	}
	JWT struct {
		SecretKey string
		ExpiresIn int // в часах
	}
	SMTP struct {
		Host     string
		Port     int
		Username string
		Password string
		From     string
		Office   string // адрес отдела продаж для служебных уведомлений
	}
	SMS struct {
		Enabled bool
		BaseURL string
		Token   string
		Sender  string
		Timeout time.Duration
	}
	Log struct {
		Level    string
		Format   string
		Output   string
		GormMode string
	}
	Reminder struct {
		Enabled   bool
		Interval  time.Duration
		DaysAhead int
	}
	Media struct {
		Dir           string
		MaxImageWidth int
	}
	RateLimit struct {
		PerMinute int
		Burst     int
	}
}

// NewConfig создает новый экземпляр конфигурации.
// Значения берутся из переменных окружения с префиксом QURILISH_,
// файл .env подхватывается, если он есть.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("QURILISH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %v", err)
		}
	}

	setDefaults(v)

	cfg := &Config{}

	// Настройки сервера
	cfg.Server.Port = v.GetInt("server.port")
	cfg.Server.Env = v.GetString("server.env")
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("неверный порт сервера: %d", cfg.Server.Port)
	}

	// Настройки базы данных
	cfg.DB.Host = v.GetString("db.host")
	cfg.DB.Port = v.GetInt("db.port")
	cfg.DB.User = v.GetString("db.user")
	cfg.DB.Password = v.GetString("db.password")
	cfg.DB.DBName = v.GetString("db.name")
	cfg.DB.SSLMode = v.GetString("db.sslmode")
	cfg.DB.MaxIdleConns = v.GetInt("db.max_idle_conns")
	cfg.DB.MaxOpenConns = v.GetInt("db.max_open_conns")
	cfg.DB.ConnMaxLifetime = v.GetDuration("db.conn_max_lifetime")
	cfg.DB.MigrationsPath = v.GetString("db.migrations_path")

	// Настройки JWT
	cfg.JWT.SecretKey = v.GetString("jwt.secret_key")
	cfg.JWT.ExpiresIn = v.GetInt("jwt.expires_in")
	if cfg.JWT.ExpiresIn <= 0 {
		return nil, fmt.Errorf("неверный формат времени жизни JWT: %d", cfg.JWT.ExpiresIn)
	}

	// Настройки SMTP
	cfg.SMTP.Host = v.GetString("smtp.host")
	cfg.SMTP.Port = v.GetInt("smtp.port")
	cfg.SMTP.Username = v.GetString("smtp.username")
	cfg.SMTP.Password = v.GetString("smtp.password")
	cfg.SMTP.From = v.GetString("smtp.from")
	cfg.SMTP.Office = v.GetString("smtp.office")

	// Настройки SMS шлюза
	cfg.SMS.Enabled = v.GetBool("sms.enabled")
	cfg.SMS.BaseURL = v.GetString("sms.base_url")
	cfg.SMS.Token = v.GetString("sms.token")
	cfg.SMS.Sender = v.GetString("sms.sender")
	cfg.SMS.Timeout = v.GetDuration("sms.timeout")

	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.Format = v.GetString("log.format")
	cfg.Log.Output = v.GetString("log.output")
	cfg.Log.GormMode = v.GetString("log.gorm_mode")

	cfg.Reminder.Enabled = v.GetBool("reminder.enabled")
	cfg.Reminder.Interval = v.GetDuration("reminder.interval")
	cfg.Reminder.DaysAhead = v.GetInt("reminder.days_ahead")

	cfg.Media.Dir = v.GetString("media.dir")
	cfg.Media.MaxImageWidth = v.GetInt("media.max_image_width")

	cfg.RateLimit.PerMinute = v.GetInt("ratelimit.per_minute")
	cfg.RateLimit.Burst = v.GetInt("ratelimit.burst")

	return cfg, nil
}

// DSN возвращает строку подключения к PostgreSQL для gorm
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.DBName,
		c.DB.SSLMode,
	)
}

// MigrateURL возвращает URL базы данных для golang-migrate
func (c *Config) MigrateURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DB.User,
		c.DB.Password,
		c.DB.Host,
		c.DB.Port,
		c.DB.DBName,
		c.DB.SSLMode,
	)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.env", "development")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "qurilish")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.max_open_conns", 100)
	v.SetDefault("db.conn_max_lifetime", time.Hour)
	v.SetDefault("db.migrations_path", "file://migrations")

	v.SetDefault("jwt.secret_key", "your-secret-key-here")
	v.SetDefault("jwt.expires_in", 24)

	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from", "noreply@example.uz")
	v.SetDefault("smtp.office", "")

	v.SetDefault("sms.enabled", false)
	v.SetDefault("sms.base_url", "https://notify.eskiz.uz/api")
	v.SetDefault("sms.token", "")
	v.SetDefault("sms.sender", "4546")
	v.SetDefault("sms.timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.gorm_mode", "warn")

	v.SetDefault("reminder.enabled", false)
	v.SetDefault("reminder.interval", 24*time.Hour)
	v.SetDefault("reminder.days_ahead", 3)

	v.SetDefault("media.dir", "media")
	v.SetDefault("media.max_image_width", 1600)

	v.SetDefault("ratelimit.per_minute", 100)
	v.SetDefault("ratelimit.burst", 20)
}
