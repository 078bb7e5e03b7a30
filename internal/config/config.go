package config

import (
	"log"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Postgres struct {
	Host     string
	Port     string
	DB       string
	User     string
	Password string
	SSLMode  string
}

type Kafka struct {
	Brokers []string
	Topic   string
}

type Backend struct {
	BaseURL        string
	RequestTimeout time.Duration
}

// Confirm holds the client-side deadlines for the payment-return flow.
// ReturnTimeout applies to the two payment-return routes, CancelTimeout to
// the best-effort reconciliation call on the cancel route.
type Confirm struct {
	ReturnTimeout time.Duration
	CancelTimeout time.Duration
}

type Breaker struct {
	MaxRequests uint32
	Interval    time.Duration
	OpenTimeout time.Duration
	Threshold   uint32
}

type Config struct {
	HTTPAddr string
	CacheCap int

	Pg      Postgres
	Kafka   Kafka
	Backend Backend
	Confirm Confirm
	Breaker Breaker
}

// Load keeps the original API and fatals on error for simplicity in main().
func Load() Config {
	cfg, err := load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	return cfg
}

func load() (Config, error) {
	_ = godotenv.Load("env/.env")

	cfg := Config{
		HTTPAddr: envDefault("HTTP_ADDR", ":8081"),
		CacheCap: envInt("CACHE_CAP", 1000),

		Pg: Postgres{
			Host:     strings.TrimSpace(os.Getenv("PG_HOST")),
			Port:     strings.TrimSpace(envDefault("PG_PORT", "5432")),
			DB:       strings.TrimSpace(os.Getenv("PG_DB")),
			User:     strings.TrimSpace(os.Getenv("PG_USER")),
			Password: strings.TrimSpace(os.Getenv("PG_PASSWORD")),
			SSLMode:  strings.TrimSpace(envDefault("PG_SSLMODE", "disable")),
		},

		Kafka: Kafka{
			Brokers: splitCSV(strings.TrimSpace(os.Getenv("KAFKA_BROKERS"))),
			Topic:   strings.TrimSpace(envDefault("KAFKA_TOPIC", "storefront.telemetry")),
		},

		Backend: Backend{
			BaseURL:        strings.TrimRight(strings.TrimSpace(os.Getenv("BACKEND_BASE_URL")), "/"),
			RequestTimeout: envDurationMS("BACKEND_REQUEST_TIMEOUT", 10*time.Second),
		},

		Confirm: Confirm{
			ReturnTimeout: envDurationMS("CONFIRM_RETURN_TIMEOUT", 30*time.Second),
			CancelTimeout: envDurationMS("CONFIRM_CANCEL_TIMEOUT", 15*time.Second),
		},

		Breaker: Breaker{
			MaxRequests: envUint32("BREAKER_MAXREQUESTS", 3),
			Interval:    envDurationMS("BREAKER_INTERVAL", 60*time.Second),
			OpenTimeout: envDurationMS("BREAKER_OPENTIMEOUT", 10*time.Second),
			Threshold:   envUint32("BREAKER_THRESHOLD", 5),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	cfg.clamp()
	return cfg, nil
}

// clamp rewrites degenerate values instead of rejecting them. A zero confirm
// ceiling would time out every confirm instantly.
func (c *Config) clamp() {
	if c.CacheCap <= 0 {
		log.Printf("CACHE_CAP is %d, adjusting to 1", c.CacheCap)
		c.CacheCap = 1
	}
	if c.Confirm.ReturnTimeout <= 0 {
		log.Printf("CONFIRM_RETURN_TIMEOUT is %v, adjusting to 30s", c.Confirm.ReturnTimeout)
		c.Confirm.ReturnTimeout = 30 * time.Second
	}
	if c.Confirm.CancelTimeout <= 0 {
		log.Printf("CONFIRM_CANCEL_TIMEOUT is %v, adjusting to 15s", c.Confirm.CancelTimeout)
		c.Confirm.CancelTimeout = 15 * time.Second
	}
}

func (c Config) validate() error {
	var missing []string
	req := map[string]string{
		"PG_HOST":          c.Pg.Host,
		"PG_DB":            c.Pg.DB,
		"PG_USER":          c.Pg.User,
		"PG_PASSWORD":      c.Pg.Password,
		"BACKEND_BASE_URL": c.Backend.BaseURL,
	}
	for k, v := range req {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return &missingEnvError{Keys: missing}
	}

	// Telemetry is optional: without brokers the service runs with a noop sink.
	if len(c.Kafka.Brokers) == 0 {
		log.Printf("KAFKA_BROKERS is empty, timeout telemetry disabled")
	}
	return nil
}

type missingEnvError struct{ Keys []string }

func (e *missingEnvError) Error() string {
	return "missing required envs: " + strings.Join(e.Keys, ", ")
}

// DSN builds a proper Postgres URL, safely escaping user/pass and query.
func (c Config) DSN() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Pg.User, c.Pg.Password),
		Host:   net.JoinHostPort(c.Pg.Host, c.Pg.Port),
		Path:   "/" + c.Pg.DB,
	}
	q := url.Values{}
	if c.Pg.SSLMode != "" {
		q.Set("sslmode", c.Pg.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func envDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d: %v", k, v, def, err)
		return def
	}
	return n
}

func envUint32(k string, def uint32) uint32 {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	u, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		log.Printf("invalid %s=%q, using default %d: %v", k, v, def, err)
		return def
	}
	return uint32(u)
}

// envDurationMS supports either plain integer milliseconds ("1500") or
// Go duration strings ("1.5s", "250ms", "2m").
func envDurationMS(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	// If it looks like a duration with units, try ParseDuration first.
	if strings.IndexFunc(v, func(r rune) bool { return r < '0' || r > '9' }) != -1 {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("invalid %s=%q, using default %v: %v", k, v, def, err)
			return def
		}
		return d
	}
	// Otherwise treat as milliseconds.
	ms, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid %s=%q, using default %v: %v", k, v, def, err)
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
