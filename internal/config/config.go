package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// DB stores PostgreSQL connection settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

// DSN returns the pgx connection string.
func (d DB) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Pass),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Simulation stores the lifecycle timings.
type Simulation struct {
	Warmup           time.Duration
	TickInterval     time.Duration
	AssignDelay      time.Duration
	CompleteDelay    time.Duration
	OrderProbability float64
	// Seed of the random source; 0 picks a time based seed.
	Seed             int64
	OperationTimeout time.Duration
}

// HTTP stores status server settings. Port 0 disables the server.
type HTTP struct{ Port int }

// Log stores logger settings.
type Log struct {
	Level  string
	Format string
}

// Kafka stores lifecycle event publishing settings. No brokers disables publishing.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Config is the simulator configuration.
type Config struct {
	DB         DB
	Simulation Simulation
	HTTP       HTTP
	Log        Log
	Kafka      Kafka
}

// Load reads configuration from the .env file at path (if present) and the
// environment. Flags are bound on top with BindFlags and checked with Validate
// once they are parsed.
func Load(path string) (Config, error) {
	if err := LoadDotEnv(path); err != nil {
		return Config{}, err
	}
	return FromEnv(os.Getenv)
}

// LoadDotEnv loads variables from path without overriding the environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// FromEnv builds a Config from defaults overridden by environment variables.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Default()
	p := envParser{getenv: getenv}

	p.strVar("DB_HOST", &cfg.DB.Host)
	p.strVar("DB_PORT", &cfg.DB.Port)
	p.strVar("DB_NAME", &cfg.DB.Name)
	p.strVar("DB_USER", &cfg.DB.User)
	p.strVar("DB_PASSWORD", &cfg.DB.Pass)

	p.durationVar("SIM_WARMUP", &cfg.Simulation.Warmup)
	p.durationVar("SIM_TICK_INTERVAL", &cfg.Simulation.TickInterval)
	p.durationVar("SIM_ASSIGN_DELAY", &cfg.Simulation.AssignDelay)
	p.durationVar("SIM_COMPLETE_DELAY", &cfg.Simulation.CompleteDelay)
	p.durationVar("SIM_OPERATION_TIMEOUT", &cfg.Simulation.OperationTimeout)
	p.floatVar("SIM_ORDER_PROBABILITY", &cfg.Simulation.OrderProbability)
	p.int64Var("SIM_SEED", &cfg.Simulation.Seed)

	p.intVar("HTTP_PORT", &cfg.HTTP.Port)

	p.strVar("LOG_LEVEL", &cfg.Log.Level)
	p.strVar("LOG_FORMAT", &cfg.Log.Format)

	if v := strings.TrimSpace(getenv("KAFKA_BROKERS")); v != "" {
		cfg.Kafka.Brokers = splitList(v)
	}
	p.strVar("KAFKA_TOPIC", &cfg.Kafka.Topic)

	if p.err != nil {
		return Config{}, p.err
	}
	return cfg, nil
}

// BindFlags registers command-line flags whose defaults are the current values of cfg.
func BindFlags(flags *pflag.FlagSet, cfg *Config) {
	flags.StringVar(&cfg.DB.Host, "db-host", cfg.DB.Host, "database host")
	flags.StringVar(&cfg.DB.Port, "db-port", cfg.DB.Port, "database port")
	flags.StringVar(&cfg.DB.Name, "db-name", cfg.DB.Name, "database name")
	flags.StringVar(&cfg.DB.User, "db-user", cfg.DB.User, "database user")
	flags.StringVar(&cfg.DB.Pass, "db-password", cfg.DB.Pass, "database password")

	flags.DurationVar(&cfg.Simulation.Warmup, "warmup", cfg.Simulation.Warmup, "delay before the first database access")
	flags.DurationVar(&cfg.Simulation.TickInterval, "tick-interval", cfg.Simulation.TickInterval, "pause between simulation cycles")
	flags.DurationVar(&cfg.Simulation.AssignDelay, "assign-delay", cfg.Simulation.AssignDelay, "minimum order age before courier assignment")
	flags.DurationVar(&cfg.Simulation.CompleteDelay, "complete-delay", cfg.Simulation.CompleteDelay, "minimum delivery age before completion")
	flags.DurationVar(&cfg.Simulation.OperationTimeout, "operation-timeout", cfg.Simulation.OperationTimeout, "timeout of a single store operation")
	flags.Float64Var(&cfg.Simulation.OrderProbability, "order-probability", cfg.Simulation.OrderProbability, "probability of creating an order per cycle")
	flags.Int64Var(&cfg.Simulation.Seed, "seed", cfg.Simulation.Seed, "random seed, 0 for time based")

	flags.IntVar(&cfg.HTTP.Port, "http-port", cfg.HTTP.Port, "status server port, 0 disables it")

	flags.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level: debug, info, warn, error")
	flags.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "log format: json, text")

	flags.StringSliceVar(&cfg.Kafka.Brokers, "kafka-brokers", cfg.Kafka.Brokers, "kafka brokers, empty disables event publishing")
	flags.StringVar(&cfg.Kafka.Topic, "kafka-topic", cfg.Kafka.Topic, "kafka topic for lifecycle events")
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error

	if p, err := strconv.Atoi(c.DB.Port); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("invalid db port: %q", c.DB.Port))
	}
	if strings.TrimSpace(c.DB.Host) == "" {
		errs = append(errs, errors.New("db host is empty"))
	}
	if strings.TrimSpace(c.DB.Name) == "" {
		errs = append(errs, errors.New("db name is empty"))
	}

	s := c.Simulation
	if s.Warmup < 0 {
		errs = append(errs, fmt.Errorf("invalid warmup: %s", s.Warmup))
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"tick interval", s.TickInterval},
		{"assign delay", s.AssignDelay},
		{"complete delay", s.CompleteDelay},
		{"operation timeout", s.OperationTimeout},
	} {
		if d.value <= 0 {
			errs = append(errs, fmt.Errorf("invalid %s: %s", d.name, d.value))
		}
	}
	if s.OrderProbability < 0 || s.OrderProbability > 1 {
		errs = append(errs, fmt.Errorf("invalid order probability: %v", s.OrderProbability))
	}

	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid http port: %d", c.HTTP.Port))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level: %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("invalid log format: %q", c.Log.Format))
	}

	if len(c.Kafka.Brokers) > 0 && strings.TrimSpace(c.Kafka.Topic) == "" {
		errs = append(errs, errors.New("kafka topic is empty"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

type envParser struct {
	getenv func(string) string
	err    error
}

func (p *envParser) lookup(key string) (string, bool) {
	v := strings.TrimSpace(p.getenv(key))
	return v, v != ""
}

func (p *envParser) fail(key, v string, err error) {
	p.err = errors.Join(p.err, fmt.Errorf("env %s=%q: %w", key, v, err))
}

func (p *envParser) strVar(key string, dst *string) {
	if v, ok := p.lookup(key); ok {
		*dst = v
	}
}

func (p *envParser) durationVar(key string, dst *time.Duration) {
	if v, ok := p.lookup(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = d
	}
}

func (p *envParser) floatVar(key string, dst *float64) {
	if v, ok := p.lookup(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (p *envParser) intVar(key string, dst *int) {
	if v, ok := p.lookup(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (p *envParser) int64Var(key string, dst *int64) {
	if v, ok := p.lookup(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			p.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
