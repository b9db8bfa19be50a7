package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; nested structs group the optional subsystems.
type Config struct {
	Env         string        `env:"APP_ENV" envDefault:"dev"`                                               // application environment (dev, test, prod)
	Port        string        `env:"APP_PORT" envDefault:"8080"`                                             // HTTP port to listen on
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`                                            // zap level name
	JWTSecret   string        `env:"JWT_SECRET,required,notEmpty"`                                           // secret used to sign access tokens
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"168h"`                                            // access token lifetime
	BcryptCost  int           `env:"BCRYPT_COST" envDefault:"10"`                                            // bcrypt cost for password hashing
	RabbitMQURL string        `env:"RABBITMQ_URL"`                                                           // empty disables broker publishing
	ReportCron  string        `env:"REPORT_CRON"`                                                            // empty disables the scheduled report
	CORSOrigins []string      `env:"CORS_ALLOW_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","` // allowed browser origins

	DB        DBConfig
	Redis     RedisConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
}

// DBConfig selects the SQL driver and its connection parameters.  The mysql
// driver uses the DB_USER/DB_HOST/... fields, the sqlite driver uses DB_PATH.
type DBConfig struct {
	Driver string `env:"DB_DRIVER" envDefault:"mysql"`
	User   string `env:"DB_USER"`
	Pass   string `env:"DB_PASS"`
	Host   string `env:"DB_HOST" envDefault:"127.0.0.1"`
	Port   string `env:"DB_PORT" envDefault:"3306"`
	Name   string `env:"DB_NAME"`
	Path   string `env:"DB_PATH" envDefault:"./data/booking.db"`
}

// Load reads an optional .env file, then parses the environment into a
// Config and validates it.
func Load() (Config, error) {
	_ = godotenv.Load() // a missing .env file is not an error

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.RateLimit.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.DB.Driver {
	case "mysql":
		if c.DB.User == "" || c.DB.Name == "" {
			return errors.New("DB_USER and DB_NAME are required for the mysql driver")
		}
	case "sqlite":
		if strings.TrimSpace(c.DB.Path) == "" {
			return errors.New("DB_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs with production defaults.
func (c Config) IsProduction() bool { return isProduction(c.Env) }

func isProduction(env string) bool { return env == "prod" || env == "production" }

// ToolConfig is the subset of Config used by offline commands such as the
// seeder, which do not need a signing secret.
type ToolConfig struct {
	Env        string `env:"APP_ENV" envDefault:"dev"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	BcryptCost int    `env:"BCRYPT_COST" envDefault:"10"`
	DB         DBConfig
}

// IsProduction is Config.IsProduction for offline commands.
func (c ToolConfig) IsProduction() bool { return isProduction(c.Env) }

// LoadTool is Load for ToolConfig.
func LoadTool() (ToolConfig, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[ToolConfig]()
	if err != nil {
		return ToolConfig{}, fmt.Errorf("parse env: %w", err)
	}
	full := Config{DB: cfg.DB, BcryptCost: cfg.BcryptCost, TokenTTL: time.Hour}
	if err := full.validate(); err != nil {
		return ToolConfig{}, err
	}
	return cfg, nil
}
