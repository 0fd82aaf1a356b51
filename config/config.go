package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

const EnvPrefix = "DOCQL"

const (
	BackendMemory = "memory"
	BackendGit    = "git"
	BackendMongo  = "mongo"
)

type Config struct {
	Store    StoreConfig    `mapstructure:"store"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	S3       S3Config       `mapstructure:"s3"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Identity IdentityConfig `mapstructure:"identity"`
}

type StoreConfig struct {
	Backend        string      `mapstructure:"backend"`
	Dir            string      `mapstructure:"dir"`
	GitURL         string      `mapstructure:"git_url"`
	BuiltinSchemas bool        `mapstructure:"builtin_schemas"`
	Mongo          MongoConfig `mapstructure:"mongo"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
	Cluster  string `mapstructure:"cluster"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ServerConfig struct {
	Addr      string  `mapstructure:"addr"`
	HTTPAddr  string  `mapstructure:"http_addr"`
	JWTSecret string  `mapstructure:"jwt_secret"`
	Issuer    string  `mapstructure:"issuer"`
	Audience  string  `mapstructure:"audience"`
	TLSCert   string  `mapstructure:"tls_cert"`
	TLSKey    string  `mapstructure:"tls_key"`
	RateLimit float64 `mapstructure:"rate_limit"` // statements per second, 0 disables
	Burst     int     `mapstructure:"burst"`
}

type LogConfig struct {
	Level     string `mapstructure:"level"`
	Format    string `mapstructure:"format"`
	AddSource bool   `mapstructure:"add_source"`
}

type S3Config struct {
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

type IdentityConfig struct {
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
}

var defaults = map[string]any{
	"store.backend":         BackendMemory,
	"store.dir":             "./data",
	"store.git_url":         "",
	"store.builtin_schemas": false,
	"store.mongo.uri":       "",
	"store.mongo.database":  "food-critic-reviews",
	"store.mongo.cluster":   "",
	"store.mongo.username":  "",
	"store.mongo.password":  "",
	"server.addr":           ":3306",
	"server.http_addr":      "",
	"server.jwt_secret":     "",
	"server.issuer":         "",
	"server.audience":       "",
	"server.tls_cert":       "",
	"server.tls_key":        "",
	"server.rate_limit":     0.0,
	"server.burst":          20,
	"log.level":             "INFO",
	"log.format":            "text",
	"log.add_source":        false,
	"s3.region":             "",
	"s3.endpoint":           "",
	"s3.access_key":         "",
	"s3.secret_key":         "",
	"batch.concurrency":     4,
	"identity.name":         "docql",
	"identity.email":        "docql@localhost",
}

// Load reads defaults, then the optional config file at path, then
// environment variables named <prefix>_<SECTION>_<KEY>
// (DOCQL_STORE_BACKEND sets store.backend).
func Load(prefix, path string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) Validate() error {
	var errs []error

	switch cfg.Store.Backend {
	case BackendMemory:
	case BackendGit:
		if cfg.Store.Dir == "" {
			errs = append(errs, errors.New("store.dir is required for the git backend"))
		}
	case BackendMongo:
		if cfg.Store.Mongo.ConnectionURI() == "" {
			errs = append(errs, errors.New("store.mongo.uri or store.mongo.cluster is required for the mongo backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", cfg.Store.Backend))
	}

	if cfg.Batch.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("batch.concurrency must be positive, got %d", cfg.Batch.Concurrency))
	}
	if cfg.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit must not be negative, got %g", cfg.Server.RateLimit))
	}

	if (cfg.Server.TLSCert == "") != (cfg.Server.TLSKey == "") {
		errs = append(errs, errors.New("server.tls_cert and server.tls_key must be set together"))
	}

	return errors.Join(errs...)
}

// ConnectionURI returns URI, or the Atlas SRV URI built from the cluster
// name and credentials when URI is empty.
func (cfg MongoConfig) ConnectionURI() string {
	if cfg.URI != "" {
		return cfg.URI
	}
	if cfg.Cluster == "" {
		return ""
	}

	return fmt.Sprintf("mongodb+srv://%s:%s@%s.z1l4e.mongodb.net/?retryWrites=true&w=majority&appName=%s",
		url.QueryEscape(cfg.Username), url.QueryEscape(cfg.Password), cfg.Cluster, cfg.Cluster)
}
