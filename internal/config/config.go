// Package config loads server settings from flags, the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/kadod/mama-odekake-liff/internal/proximity"
	"github.com/kadod/mama-odekake-liff/internal/reviews"
)

// Logger holds the logging options shared by every command.
type Logger struct {
	Level  string `long:"log-level"  env:"LOG_LEVEL"  description:"Log level (trace, debug, info, warn, error)" default:"info"`
	Format string `long:"log-format" env:"LOG_FORMAT" description:"Log output format" choice:"text" choice:"json" default:"text"`
}

// Setup configures the global logrus logger.
func (l Logger) Setup() error {
	level, err := log.ParseLevel(l.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)

	switch l.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339})
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("log format %q: want text or json", l.Format)
	}
	log.SetOutput(os.Stdout)
	return nil
}

// Config is the API server configuration.
type Config struct {
	Logger Logger `group:"Logger options"`

	Port     string `short:"p" long:"port" env:"PORT"      description:"Port to listen on" default:"8080"`
	MongoURI string `long:"mongo-uri"      env:"MONGO_URI" description:"MongoDB connection string"`
	MongoDB  string `long:"mongo-db"       env:"MONGO_DB"  description:"MongoDB database name" default:"mama_odekake"`

	JWTSecret string        `long:"jwt-secret" env:"JWT_SECRET" description:"HMAC secret for session tokens"`
	JWTExpiry time.Duration `long:"jwt-expiry" env:"JWT_EXPIRY" description:"Session token lifetime" default:"24h"`

	LineChannelID  string `long:"line-channel-id"   env:"LINE_CHANNEL_ID"   description:"LINE Login channel ID"`
	LineAPIBaseURL string `long:"line-api-base-url" env:"LINE_API_BASE_URL" description:"LINE API base URL" default:"https://api.line.me"`

	MQTTBroker      string `long:"mqtt-broker"       env:"MQTT_BROKER"       description:"MQTT broker URL; events are dropped when empty"`
	MQTTClientID    string `long:"mqtt-client-id"    env:"MQTT_CLIENT_ID"    description:"MQTT client ID" default:"mama-odekake-api"`
	MQTTTopicPrefix string `long:"mqtt-topic-prefix" env:"MQTT_TOPIC_PREFIX" description:"MQTT topic prefix" default:"mama-odekake"`

	RateLimitRequests int           `long:"rate-limit-requests" env:"RATE_LIMIT_REQUESTS" description:"Write requests allowed per client per window" default:"30"`
	RateLimitWindow   time.Duration `long:"rate-limit-window"   env:"RATE_LIMIT_WINDOW"   description:"Rate limit window" default:"1m"`

	DefaultSearchRadius string `long:"default-search-radius-km" env:"DEFAULT_SEARCH_RADIUS_KM" description:"Search radius in km when a request names none; empty searches everywhere"`
	CrowdTiePolicy      string `long:"crowd-tie-policy"         env:"CROWD_TIE_POLICY"         description:"Crowd level tie policy" choice:"severe" choice:"mild" choice:"unresolved" default:"severe"`
}

// ErrHelp is returned by Load when --help was requested.
var ErrHelp = errors.New("help requested")

// Load reads .env (when present) into the environment, then parses args.
// Real environment variables win over .env entries.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse(args)
}

// Parse reads configuration from args and the environment only.
func Parse(args []string) (*Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, flagsErr.Message)
			return nil, ErrHelp
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.MongoURI) == "" {
		missing = append(missing, "MONGO_URI")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if strings.TrimSpace(c.LineChannelID) == "" {
		missing = append(missing, "LINE_CHANNEL_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	if c.RateLimitRequests < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.RateLimitRequests)
	}
	if c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive, got %s", c.RateLimitWindow)
	}
	if _, err := c.SearchRadius(); err != nil {
		return err
	}
	_, err := c.TiePolicy()
	return err
}

// SearchRadius is the radius applied when a search names none.
func (c *Config) SearchRadius() (proximity.Radius, error) {
	r, err := proximity.ParseRadius(strings.TrimSpace(c.DefaultSearchRadius))
	if err != nil {
		return proximity.Radius{}, fmt.Errorf("DEFAULT_SEARCH_RADIUS_KM: %w", err)
	}
	return r, nil
}

// TiePolicy is the crowd-level tie policy for review summaries.
func (c *Config) TiePolicy() (reviews.TiePolicy, error) {
	return reviews.ParseTiePolicy(c.CrowdTiePolicy)
}
