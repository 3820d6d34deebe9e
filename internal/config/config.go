package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends selectable with store.backend.
const (
	BackendContents = "contents"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// PlaceholderToken is the value shipped in example configs; it is rejected like an empty token.
const PlaceholderToken = "your_github_token_here"

// Config holds the configuration settings for the application.
type Config struct {
	Env        string           `yaml:"env"`        // Env is the current environment: local, development, production.
	Store      StoreConfig      `yaml:"store"`      // Store selects and tunes the document store.
	Contents   ContentsConfig   `yaml:"contents"`   // Contents configures the remote content API backend.
	Postgres   PostgresConfig   `yaml:"postgres"`   // Postgres holds the database configuration
	HTTP       HTTPConfig       `yaml:"http"`       // HTTP configures the API server.
	Monitoring MonitoringConfig `yaml:"monitoring"` // Monitoring configures the health and metrics server.
}

// StoreConfig selects the document store.
type StoreConfig struct {
	Backend         string `yaml:"backend"`          // Backend is one of contents, postgres, memory.
	ConflictRetries int    `yaml:"conflict_retries"` // ConflictRetries bounds restarts after a revision conflict.
}

// ContentsConfig points at the roster document inside a repository of the content API.
type ContentsConfig struct {
	APIURL  string        `yaml:"api_url"` // APIURL is the API root, https://api.github.com by default.
	Owner   string        `yaml:"owner"`   // Owner is the repository owner.
	Repo    string        `yaml:"repo"`    // Repo is the repository name.
	Path    string        `yaml:"path"`    // Path is the document path inside the repository.
	Branch  string        `yaml:"branch"`  // Branch is optional, the default branch is used when empty.
	Token   string        `yaml:"token"`   // Token is the pre-provisioned access credential.
	Timeout time.Duration `yaml:"timeout"` // Timeout limits every request to the API.
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `yaml:"host"`     // Host is the database server address.
	Port     string `yaml:"port"`     // Port is the database server port.
	User     string `yaml:"user"`     // User is the database user.
	Password string `yaml:"password"` // Password is the database user's password.
	Name     string `yaml:"db_name"`  // Name is the name of the database.
	SSLMode  string `yaml:"sslmode"`  // SSLMode is passed to the driver, disable by default.
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Address        string        `yaml:"address"`         // Address is the listen address of the API.
	RequestTimeout time.Duration `yaml:"request_timeout"` // RequestTimeout bounds every API request.
}

// MonitoringConfig configures the health and metrics server.
type MonitoringConfig struct {
	Port int `yaml:"port"`
}

// MustLoad loads the configuration from the YAML file at CONFIG_PATH, applies environment
// overrides and returns a Config struct. Any misconfiguration panics.
//
// Every key can be overridden with an EMS_ variable, e.g. EMS_CONTENTS_TOKEN for
// contents.token. GITHUB_TOKEN is accepted for the token as well. A .env file in the
// working directory is loaded first when present.
func MustLoad() *Config {
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		panic("config path is empty")
	}

	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	vpr := viper.New()
	vpr.SetConfigFile(configPath)
	if err := vpr.ReadInConfig(); err != nil {
		panic("config error: " + err.Error())
	}

	vpr.SetEnvPrefix("EMS")
	vpr.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vpr.AutomaticEnv()
	_ = vpr.BindEnv("contents.token", "EMS_CONTENTS_TOKEN", "GITHUB_TOKEN")

	setDefaults(vpr)

	cfg := &Config{
		Env: vpr.GetString("env"),
		Store: StoreConfig{
			Backend:         strings.ToLower(vpr.GetString("store.backend")),
			ConflictRetries: vpr.GetInt("store.conflict_retries"),
		},
		Contents: ContentsConfig{
			APIURL:  vpr.GetString("contents.api_url"),
			Owner:   vpr.GetString("contents.owner"),
			Repo:    vpr.GetString("contents.repo"),
			Path:    vpr.GetString("contents.path"),
			Branch:  vpr.GetString("contents.branch"),
			Token:   vpr.GetString("contents.token"),
			Timeout: vpr.GetDuration("contents.timeout"),
		},
		Postgres: PostgresConfig{
			Host:     vpr.GetString("postgres.host"),
			Port:     vpr.GetString("postgres.port"),
			User:     vpr.GetString("postgres.user"),
			Password: vpr.GetString("postgres.password"),
			Name:     vpr.GetString("postgres.db_name"),
			SSLMode:  vpr.GetString("postgres.sslmode"),
		},
		HTTP: HTTPConfig{
			Address:        vpr.GetString("http.address"),
			RequestTimeout: vpr.GetDuration("http.request_timeout"),
		},
		Monitoring: MonitoringConfig{
			Port: vpr.GetInt("monitoring.port"),
		},
	}

	mustValidate(cfg)

	return cfg
}

func setDefaults(vpr *viper.Viper) {
	vpr.SetDefault("env", "local")
	vpr.SetDefault("store.backend", BackendContents)
	vpr.SetDefault("store.conflict_retries", 2) //nolint:mnd // two restarts cover ordinary contention
	vpr.SetDefault("contents.api_url", "https://api.github.com")
	vpr.SetDefault("contents.path", "Employee.json")
	vpr.SetDefault("contents.timeout", 15*time.Second)
	vpr.SetDefault("postgres.port", "5432")
	vpr.SetDefault("postgres.sslmode", "disable")
	vpr.SetDefault("http.address", ":8080")
	vpr.SetDefault("http.request_timeout", 10*time.Second)
	vpr.SetDefault("monitoring.port", 8081) //nolint:mnd // default monitoring port
}

func mustValidate(cfg *Config) {
	if cfg.Store.ConflictRetries < 0 {
		panic("store.conflict_retries must not be negative")
	}

	switch cfg.Store.Backend {
	case BackendContents:
		token := strings.TrimSpace(cfg.Contents.Token)
		if token == "" || token == PlaceholderToken {
			panic("github token is not configured")
		}
		if cfg.Contents.Owner == "" || cfg.Contents.Repo == "" {
			panic("contents.owner and contents.repo are required")
		}
	case BackendPostgres:
		if cfg.Postgres.Host == "" || cfg.Postgres.Name == "" {
			panic("postgres.host and postgres.db_name are required")
		}
	case BackendMemory:
	default:
		panic("unknown store backend: " + cfg.Store.Backend)
	}
}
