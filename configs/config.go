package configs

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"plp-bookstore/internal/constants"
)

type Config struct {
	MongoURI        string   `toml:"mongo_uri"`
	DBName          string   `toml:"db_name"`
	Collection      string   `toml:"collection"`
	AuditCollection string   `toml:"audit_collection"`
	LogLevel        string   `toml:"log_level"`
	Port            string   `toml:"port"`
	JWTSecret       string   `toml:"jwt_secret"`
	UserId          string   `toml:"user_id"`
	UserName        string   `toml:"user_name"`
	UserPassword    string   `toml:"user_password"`
	ExportInterval  Duration `toml:"export_interval"`
}

// Duration decodes TOML strings such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrap(err, "parse duration")
	}
	d.Duration = v
	return nil
}

func Default() Config {
	return Config{
		MongoURI:       constants.DefaultMongoURI,
		DBName:         constants.DefaultDBName,
		Collection:     constants.DefaultCollection,
		LogLevel:       "info",
		Port:           "8080",
		ExportInterval: Duration{30 * time.Second},
	}
}

// LoadConfig layers defaults, the optional TOML file at path and the
// environment, in that order.
func LoadConfig(path string) (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := Default()
	if strings.TrimSpace(path) != "" {
		if err := cfg.decodeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	if filepath.Ext(path) != ".toml" {
		return errors.Errorf("config must be a .toml file: %s", path)
	}
	meta, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.Wrapf(err, "decode config %s failed", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return errors.Errorf("unknown keys in config: %v", undecoded)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.MongoURI, "MONGO_URI")
	setString(&c.DBName, "DB_NAME")
	setString(&c.Collection, "COLLECTION")
	setString(&c.AuditCollection, "AUDIT_COLLECTION")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Port, "PORT")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.UserId, "HARD_CODED_USER_ID")
	setString(&c.UserName, "HARD_CODED_USER_NAME")
	setString(&c.UserPassword, "HARD_CODED_USER_PASSWORD")

	if val := os.Getenv("EXPORT_INTERVAL"); val != "" {
		if err := c.ExportInterval.UnmarshalText([]byte(val)); err != nil {
			return errors.Wrap(err, "invalid EXPORT_INTERVAL")
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func (c *Config) normalize() {
	c.MongoURI = strings.TrimSpace(c.MongoURI)
	c.DBName = strings.TrimSpace(c.DBName)
	c.Collection = strings.TrimSpace(c.Collection)
	c.AuditCollection = strings.TrimSpace(c.AuditCollection)
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
}

func (c *Config) validate() error {
	if c.MongoURI == "" {
		return errors.New("mongo uri is empty")
	}
	if !strings.HasPrefix(c.MongoURI, "mongodb://") && !strings.HasPrefix(c.MongoURI, "mongodb+srv://") {
		return errors.Errorf("unsupported mongo uri scheme: %s", c.MongoURI)
	}
	if c.DBName == "" {
		return errors.New("database name is empty")
	}
	if c.Collection == "" {
		return errors.New("collection name is empty")
	}
	if c.AuditCollection != "" && c.AuditCollection == c.Collection {
		return errors.Errorf("audit collection must differ from %s", c.Collection)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("unsupported log level: %s", c.LogLevel)
	}
	if c.ExportInterval.Duration <= 0 {
		return errors.Errorf("export interval must be positive: %s", c.ExportInterval)
	}
	return nil
}
