package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config gateway service configuration
type Config struct {
	HTTP struct {
		Addr string
	}

	MQTT struct {
		Broker   string
		ClientID string
		Username string
		Password string
		Topic    string
		QoS      byte
	}

	Directory struct {
		BaseURL  string
		CacheTTL time.Duration
	}

	DataStore struct {
		BaseURL string
	}

	WS struct {
		// Token is the shared secret required on connect.
		// Empty disables the token check.
		Token string
	}

	Sweep struct {
		Interval time.Duration
	}

	Notify struct {
		// Distribution pushes dose-delivery confirmations to the
		// caregiver in addition to recording them. Off by default.
		Distribution bool
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "medibox-gateway")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "alert/#")
	cfg.MQTT.QoS = 1

	cfg.Directory.BaseURL = getEnv("DIRECTORY_URL", "http://localhost:3000")
	cfg.Directory.CacheTTL = time.Duration(getEnvInt("CACHE_TTL", 300)) * time.Second

	cfg.DataStore.BaseURL = getEnv("DATASTORE_URL", "http://localhost:3000")

	cfg.WS.Token = getEnv("WS_TOKEN", "")

	cfg.Sweep.Interval = time.Duration(getEnvInt("SWEEP_INTERVAL", 10)) * time.Second

	cfg.Notify.Distribution = getEnvBool("NOTIFY_DISTRIBUTION", false)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
