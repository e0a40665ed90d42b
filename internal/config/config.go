package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	FeedDriverAMQP   = "amqp"
	FeedDriverMemory = "memory"
)

type Config struct {
	App         App         `mapstructure:",squash"`
	Server      Server      `mapstructure:",squash"`
	Feed        Feed        `mapstructure:",squash"`
	AMQP        AMQP        `mapstructure:",squash"`
	Cache       Cache       `mapstructure:",squash"`
	Aggregation Aggregation `mapstructure:",squash"`
	DailyReport DailyReport `mapstructure:",squash"`
	Notify      Notify      `mapstructure:",squash"`
	Diagnostics Diagnostics `mapstructure:",squash"`
	SecretKey   string      `mapstructure:"secret_key"`
}

type App struct {
	LogLevel         string `mapstructure:"log_level"`
	SessionPrincipal string `mapstructure:"session_principal"`
}

type Server struct {
	Host               string   `mapstructure:"host"`
	Port               string   `mapstructure:"port"`
	CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

type Feed struct {
	Driver      string   `mapstructure:"feed_driver"`
	Collections []string `mapstructure:"feed_collections"`
}

type AMQP struct {
	Host           string        `mapstructure:"amqp_host"`
	Port           int           `mapstructure:"amqp_port"`
	User           string        `mapstructure:"amqp_user"`
	Password       string        `mapstructure:"amqp_password"`
	VHost          string        `mapstructure:"amqp_vhost"`
	UseTLS         bool          `mapstructure:"amqp_use_tls"`
	Exchange       string        `mapstructure:"amqp_changes_exchange"`
	ReconnectDelay time.Duration `mapstructure:"amqp_reconnect_delay"`
}

type Cache struct {
	Enabled    bool   `mapstructure:"cache_enabled"`
	Driver     string `mapstructure:"cache_driver"`
	URL        string `mapstructure:"database_url"`
	User       string `mapstructure:"database_user"`
	Password   string `mapstructure:"database_password"`
	SQLitePath string `mapstructure:"cache_sqlite_path"`
	DSN        string `mapstructure:"-"`
}

type Aggregation struct {
	DayWindow    int            `mapstructure:"aggregation_day_window"`
	MaxDayWindow int            `mapstructure:"aggregation_max_day_window"`
	Timezone     string         `mapstructure:"aggregation_timezone"`
	Location     *time.Location `mapstructure:"-"`
}

type DailyReport struct {
	CronSchedule string `mapstructure:"daily_report_cron"`
	Enabled      bool   `mapstructure:"daily_report_enabled"`
}

type Notify struct {
	Enabled  bool   `mapstructure:"notify_enabled"`
	Exchange string `mapstructure:"notify_exchange"`
	Topic    string `mapstructure:"notify_topic"`
}

type Diagnostics struct {
	Exchange       string `mapstructure:"diagnostics_exchange"`
	PublishEnabled bool   `mapstructure:"diagnostics_publish_enabled"`
	RecorderSize   int    `mapstructure:"diagnostics_recorder_size"`
}

func SetDefaults() {
	viper.SetDefault("HOST", "localhost")
	viper.SetDefault("PORT", 8000)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")

	viper.SetDefault("LOG_LEVEL", "debug")
	viper.SetDefault("SECRET_KEY", "your_secret_key")
	viper.SetDefault("SESSION_PRINCIPAL", "")

	viper.SetDefault("FEED_DRIVER", FeedDriverAMQP)
	viper.SetDefault("FEED_COLLECTIONS", "tables,products,orders")

	viper.SetDefault("AMQP_HOST", "localhost")
	viper.SetDefault("AMQP_PORT", 5672)
	viper.SetDefault("AMQP_USER", "guest")
	viper.SetDefault("AMQP_PASSWORD", "guest")
	viper.SetDefault("AMQP_VHOST", "/")
	viper.SetDefault("AMQP_USE_TLS", false)
	viper.SetDefault("AMQP_CHANGES_EXCHANGE", "pos.changes")
	viper.SetDefault("AMQP_RECONNECT_DELAY", "5s")

	// Cache local de snapshots; sqlite3 é o padrão para uso offline
	viper.SetDefault("CACHE_ENABLED", true)
	viper.SetDefault("CACHE_DRIVER", "sqlite3")
	viper.SetDefault("CACHE_SQLITE_PATH", "pos-cache.db")
	viper.SetDefault("DATABASE_URL", "localhost:5432/pos")
	viper.SetDefault("DATABASE_USER", "postgres")
	viper.SetDefault("DATABASE_PASSWORD", "root")

	viper.SetDefault("AGGREGATION_DAY_WINDOW", 7)
	viper.SetDefault("AGGREGATION_MAX_DAY_WINDOW", 366)
	viper.SetDefault("AGGREGATION_TIMEZONE", "UTC")

	viper.SetDefault("DAILY_REPORT_CRON", "5 0 * * *") // Todos os dias às 00h05
	viper.SetDefault("DAILY_REPORT_ENABLED", false)

	viper.SetDefault("NOTIFY_ENABLED", false)
	viper.SetDefault("NOTIFY_EXCHANGE", "pos.notifications")
	viper.SetDefault("NOTIFY_TOPIC", "orders")

	viper.SetDefault("DIAGNOSTICS_EXCHANGE", "pos.diagnostics")
	viper.SetDefault("DIAGNOSTICS_PUBLISH_ENABLED", false)
	viper.SetDefault("DIAGNOSTICS_RECORDER_SIZE", 100)
}

func NewConfig() (*Config, error) {
	// Primeiro carregar o arquivo .env usando godotenv
	loadEnvFile() // ONLY LOCAL

	// Configurar valores padrão
	SetDefaults()

	// Configurar o Viper
	viper.SetConfigType("env")
	viper.SetConfigFile(".env")
	viper.AutomaticEnv() // Isso permite que o Viper leia variáveis de ambiente

	if err := viper.ReadInConfig(); err != nil {
		logrus.Info("Usando variáveis carregadas pelo godotenv (viper não conseguiu ler .env):", err)
	} else {
		logrus.Info("Arquivo .env lido pelo Viper com sucesso")
	}

	return load(viper.GetViper())
}

func load(v *viper.Viper) (*Config, error) {
	config := &Config{}

	err := v.Unmarshal(&config, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, err
	}

	if err := config.resolve(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) resolve() error {
	switch c.Feed.Driver {
	case FeedDriverAMQP, FeedDriverMemory:
	default:
		return fmt.Errorf("FEED_DRIVER inválido: %q", c.Feed.Driver)
	}

	location, err := time.LoadLocation(c.Aggregation.Timezone)
	if err != nil {
		return fmt.Errorf("AGGREGATION_TIMEZONE inválido: %w", err)
	}
	c.Aggregation.Location = location

	if c.Aggregation.DayWindow <= 0 {
		return fmt.Errorf("AGGREGATION_DAY_WINDOW deve ser positivo: %d", c.Aggregation.DayWindow)
	}
	if c.Aggregation.MaxDayWindow < c.Aggregation.DayWindow {
		return fmt.Errorf("AGGREGATION_MAX_DAY_WINDOW (%d) menor que AGGREGATION_DAY_WINDOW (%d)",
			c.Aggregation.MaxDayWindow, c.Aggregation.DayWindow)
	}

	if c.Notify.Topic == "" {
		c.Notify.Topic = "orders"
	}

	c.Cache.DSN = c.Cache.dsn()
	return nil
}

func (c Cache) dsn() string {
	switch c.Driver {
	case "sqlite3":
		return fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", c.SQLitePath)
	case "pgx":
		return fmt.Sprintf("postgres://%s:%s@%s", c.User, c.Password, c.URL)
	default:
		return fmt.Sprintf("%s://%s:%s@%s", c.Driver, c.User, c.Password, c.URL)
	}
}

// Função auxiliar para carregar o arquivo .env usando godotenv
func loadEnvFile() {
	cwd, err := os.Getwd()
	if err != nil {
		logrus.Warn("Não foi possível obter o diretório atual:", err)
		return
	}

	// Tentar várias localizações possíveis para o arquivo .env
	locations := []string{
		filepath.Join(cwd, ".env"),               // Diretório atual
		filepath.Join(filepath.Dir(cwd), ".env"), // Diretório pai
		filepath.Join(cwd, "../../.env"),         // Dois diretórios acima
	}

	for _, location := range locations {
		logrus.Debug("Tentando carregar .env de:", location)
		err := godotenv.Load(location)
		if err == nil {
			logrus.Info("Arquivo .env carregado com sucesso de:", location)
			return
		}
	}

	logrus.Warn("Não foi possível carregar o arquivo .env de nenhuma localização conhecida")
}
