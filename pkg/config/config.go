package config

import (
	"io/fs"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/iancoleman/strcase"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

// Supported database drivers.
const (
	DatabaseDriverSQLite   = "sqlite"
	DatabaseDriverPostgres = "postgres"
)

type Config struct {
	DatabaseConnectRetryCount int           `koanf:"database_connect_retry_count" default:"5"`
	DatabaseConnectRetryDelay time.Duration `koanf:"database_connect_retry_delay" default:"2s"`
	DatabaseDebug             bool          `koanf:"database_debug"`
	DatabaseDriver            string        `koanf:"database_driver" default:"sqlite"`
	DatabaseFilePath          string        `koanf:"database_file_path"`
	DatabaseURL               string        `koanf:"database_url"`
	DatabaseMaxRetries        int           `koanf:"database_max_retries" default:"5"`
	DatabaseBusyTimeout       time.Duration `koanf:"database_busy_timeout" default:"5s"`
	Environment               string        `koanf:"environment" default:"production"`
	Hostname                  string        `koanf:"-"`
	JWTSecret                 string        `koanf:"jwt_secret" required:"true"`
	ServerHost                string        `koanf:"server_host" default:"0.0.0.0"`
	ServerPort                int           `koanf:"server_port" default:"3689"`

	// TimeZone is the IANA zone used to decide which calendar day "today" is.
	TimeZone             string        `koanf:"time_zone" default:"UTC"`
	DefaultLoanDays      int           `koanf:"default_loan_days" default:"14"`
	OverdueSweepInterval time.Duration `koanf:"overdue_sweep_interval" default:"1h"`
}

const (
	configFileENV     = "CONFIG_FILE"
	defaultConfigFile = "/config/shelfkeep.yaml"
)

// New loads the configuration. Values come from struct defaults, then the YAML
// file named by CONFIG_FILE, then environment variables (an optional .env file
// in the working directory is loaded into the environment first).
func New() (*Config, error) {
	// .env is optional and never overrides variables that are already set.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.WithStack(err)
	}

	k := koanf.New(".")

	configFile := os.Getenv(configFileENV)
	if configFile == "" {
		configFile = defaultConfigFile
	}
	if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(err, "failed to load config file %s", configFile)
	}

	known := knownKeys()
	err := k.Load(env.Provider("", ".", func(s string) string {
		key := strings.ToLower(s)
		if _, ok := known[key]; !ok {
			return ""
		}
		return key
	}), nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.WithStack(err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	cfg.Hostname = hostname

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest returns a configuration suitable for tests: an in-memory SQLite
// database and a fixed JWT secret.
func NewForTest() *Config {
	cfg := &Config{}
	_ = defaults.Set(cfg)
	cfg.DatabaseFilePath = ":memory:"
	cfg.Environment = "test"
	cfg.JWTSecret = "test-secret"
	cfg.ServerHost = "127.0.0.1"
	cfg.DatabaseConnectRetryDelay = 10 * time.Millisecond
	return cfg
}

func (cfg *Config) validate() error {
	missing := []string{}

	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Tag.Get("required") != "true" {
			continue
		}
		if v.Field(i).IsZero() {
			missing = append(missing, field.Name)
		}
	}

	switch cfg.DatabaseDriver {
	case DatabaseDriverSQLite:
		if cfg.DatabaseFilePath == "" {
			missing = append(missing, "DatabaseFilePath")
		}
	case DatabaseDriverPostgres:
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DatabaseURL")
		}
	default:
		return errors.Errorf("unsupported database_driver %q (expected %q or %q)", cfg.DatabaseDriver, DatabaseDriverSQLite, DatabaseDriverPostgres)
	}

	if len(missing) == 0 {
		return nil
	}

	names := make([]string, 0, len(missing))
	for _, name := range missing {
		key := toSnakeCase(name)
		names = append(names, strings.ToUpper(key)+" (env) / "+key+" (yaml)")
	}
	return errors.Errorf("missing required config: %s", strings.Join(names, ", "))
}

func knownKeys() map[string]struct{} {
	keys := map[string]struct{}{}
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		keys[tag] = struct{}{}
	}
	return keys
}

func toSnakeCase(s string) string {
	return strcase.ToSnake(s)
}
