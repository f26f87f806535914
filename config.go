package transmission

import (
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joeshaw/envdecode"
	"github.com/pkg/errors"
)

// envConfig mirrors Config for envdecode. Defaults are provided via struct tags.
type envConfig struct {
	Host           string        `env:"TRANSMISSION_HOST,default=127.0.0.1"`
	Port           int           `env:"TRANSMISSION_PORT,default=9091"`
	Endpoint       string        `env:"TRANSMISSION_ENDPOINT,default=/transmission/rpc"`
	Username       string        `env:"TRANSMISSION_USERNAME"`
	Password       string        `env:"TRANSMISSION_PASSWORD"`
	Debug          bool          `env:"TRANSMISSION_DEBUG"`
	Fields         []string      `env:"TRANSMISSION_FIELDS"`
	SessionHeader  string        `env:"TRANSMISSION_SESSION_HEADER,default=X-Transmission-Session-Id"`
	RequestTimeout time.Duration `env:"TRANSMISSION_REQUEST_TIMEOUT,default=30s"`
	RateLimit      float64       `env:"TRANSMISSION_RATE_LIMIT"`
	RateBurst      int           `env:"TRANSMISSION_RATE_BURST"`
}

// fileConfig is the TOML layout read by LoadConfigFile.
type fileConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	Endpoint       string   `toml:"endpoint"`
	Username       string   `toml:"username"`
	Password       string   `toml:"password"`
	Debug          bool     `toml:"debug"`
	Fields         []string `toml:"fields"`
	SessionHeader  string   `toml:"session_header"`
	RequestTimeout string   `toml:"request_timeout"`
	RateLimit      float64  `toml:"rate_limit"`
	RateBurst      int      `toml:"rate_burst"`
}

// ConfigFromEnv builds a Config from TRANSMISSION_* environment variables.
// List values (TRANSMISSION_FIELDS) are separated by semicolons.
func ConfigFromEnv() (Config, error) {
	var ec envConfig
	if err := envdecode.Decode(&ec); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, errors.Wrap(err, "decoding environment")
	}

	return Config{
		Host:           ec.Host,
		Port:           ec.Port,
		Endpoint:       ec.Endpoint,
		Username:       ec.Username,
		Password:       ec.Password,
		Debug:          ec.Debug,
		Fields:         ec.Fields,
		SessionHeader:  ec.SessionHeader,
		RequestTimeout: ec.RequestTimeout,
		RateLimit:      ec.RateLimit,
		RateBurst:      ec.RateBurst,
	}, nil
}

// LoadConfigFile reads a TOML config file. Missing keys keep their defaults.
func LoadConfigFile(path string) (Config, error) {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return Config{}, errors.Wrapf(err, "reading config %s", path)
	}

	cfg := Config{
		Host:          fc.Host,
		Port:          fc.Port,
		Endpoint:      fc.Endpoint,
		Username:      fc.Username,
		Password:      fc.Password,
		Debug:         fc.Debug,
		Fields:        fc.Fields,
		SessionHeader: fc.SessionHeader,
		RateLimit:     fc.RateLimit,
		RateBurst:     fc.RateBurst,
	}

	if fc.RequestTimeout != "" {
		d, err := time.ParseDuration(fc.RequestTimeout)
		if err != nil {
			return Config{}, errors.Wrapf(err, "invalid request_timeout %q", fc.RequestTimeout)
		}
		cfg.RequestTimeout = d
	}

	return cfg, nil
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	c.Host = normalizeHost(c.Host)

	if c.Port <= 0 {
		c.Port = DefaultPort
	}

	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if !strings.HasPrefix(c.Endpoint, "/") {
		c.Endpoint = "/" + c.Endpoint
	}

	if c.SessionHeader == "" {
		c.SessionHeader = DefaultSessionHeader
	}

	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}

	if len(c.Fields) == 0 {
		c.Fields = DefaultFields()
	} else {
		c.Fields = append([]string(nil), c.Fields...)
	}

	if c.RateLimit > 0 && c.RateBurst <= 0 {
		c.RateBurst = 1
	}

	return c
}

// normalizeHost prefixes http:// when the host carries no scheme. Bare IPv6
// literals are bracketed.
func normalizeHost(host string) string {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if !strings.Contains(host, "://") {
		if strings.Contains(host, ":") && net.ParseIP(host) != nil {
			host = "[" + host + "]"
		}
		host = "http://" + host
	}
	return host
}

// rpcURL joins host, port and endpoint. A port already present in Host wins.
func (c Config) rpcURL() (string, error) {
	u, err := url.Parse(c.Host)
	if err != nil {
		return "", errors.Wrapf(err, "invalid host %q", c.Host)
	}
	if u.Host == "" {
		return "", errors.Errorf("invalid host %q", c.Host)
	}

	if u.Port() == "" {
		u.Host = u.Host + ":" + strconv.Itoa(c.Port)
	}
	u.Path = c.Endpoint

	return u.String(), nil
}
