package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Env struct {
	AppAddr  string `mapstructure:"APP_ADDR"`
	GinMode  string `mapstructure:"GIN_MODE"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DBDSN        string `mapstructure:"DB_DSN"`
	RedisAddr    string `mapstructure:"REDIS_ADDR"`
	AMQPURL      string `mapstructure:"AMQP_URL"`
	AMQPExchange string `mapstructure:"AMQP_EXCHANGE"`

	BackendURL  string `mapstructure:"BACKEND_URL"`
	GeocoderURL string `mapstructure:"GEOCODER_URL"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`

	SearchDebounceMS int `mapstructure:"SEARCH_DEBOUNCE_MS"`
	SearchMinChars   int `mapstructure:"SEARCH_MIN_CHARS"`
	GeocodeCacheTTLS int `mapstructure:"GEOCODE_CACHE_TTL_S"`
	PassengersMin    int `mapstructure:"PASSENGERS_MIN"`
	PassengersMax    int `mapstructure:"PASSENGERS_MAX"`
	LuggageMin       int `mapstructure:"LUGGAGE_MIN"`
	LuggageMax       int `mapstructure:"LUGGAGE_MAX"`
	HTTPTimeoutMS    int `mapstructure:"HTTP_TIMEOUT_MS"`

	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
}

var defaults = map[string]any{
	"APP_ADDR":             ":8080",
	"GIN_MODE":             "",
	"LOG_LEVEL":            "info",
	"DB_DSN":               "root:@tcp(127.0.0.1:3306)/transferbook?parseTime=true&loc=Local&charset=utf8mb4&timeout=5s&readTimeout=30s&writeTimeout=30s",
	"REDIS_ADDR":           "",
	"AMQP_URL":             "",
	"AMQP_EXCHANGE":        "transferbook.events",
	"BACKEND_URL":          "http://127.0.0.1:9000",
	"GEOCODER_URL":         "",
	"JWT_SECRET":           "",
	"SEARCH_DEBOUNCE_MS":   300,
	"SEARCH_MIN_CHARS":     3,
	"GEOCODE_CACHE_TTL_S":  600,
	"PASSENGERS_MIN":       1,
	"PASSENGERS_MAX":       8,
	"LUGGAGE_MIN":          0,
	"LUGGAGE_MAX":          8,
	"HTTP_TIMEOUT_MS":      10000,
	"CORS_ALLOWED_ORIGINS": "http://localhost:5173,http://localhost:3000",
}

// Load reads an optional env file and then the process environment, which
// wins. An empty path means ".env" in the working directory.
func Load(path string) (Env, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	if path == "" {
		path = ".env"
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	var env Env
	if err := v.Unmarshal(&env); err != nil {
		return Env{}, fmt.Errorf("unmarshal config: %w", err)
	}
	env.normalize()
	return env, nil
}

func (e *Env) normalize() {
	e.AppAddr = strings.TrimSpace(e.AppAddr)
	if e.AppAddr == "" {
		e.AppAddr = ":8080"
	}
	e.GinMode = strings.TrimSpace(e.GinMode)
	if e.PassengersMax < e.PassengersMin {
		e.PassengersMax = e.PassengersMin
	}
	if e.LuggageMax < e.LuggageMin {
		e.LuggageMax = e.LuggageMin
	}
	if e.SearchMinChars <= 0 {
		e.SearchMinChars = 3
	}
}

func (e Env) HTTPTimeout() time.Duration {
	if e.HTTPTimeoutMS <= 0 {
		return 10 * time.Second
	}
	return time.Duration(e.HTTPTimeoutMS) * time.Millisecond
}

func (e Env) SearchDebounce() time.Duration {
	return time.Duration(e.SearchDebounceMS) * time.Millisecond
}

func (e Env) GeocodeCacheTTL() time.Duration {
	return time.Duration(e.GeocodeCacheTTLS) * time.Second
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (e Env) AllowedOrigins() []string {
	out := []string{}
	for _, o := range strings.Split(e.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
