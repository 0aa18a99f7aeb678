// Package config loads process configuration from the environment (with an
// optional .env file) and the navigation thresholds from an optional YAML file.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type LatLng struct {
	Lat float64 `yaml:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `yaml:"lng" validate:"gte=-180,lte=180"`
}

// Policy holds the navigation thresholds. Zero-valued keys in the YAML
// file leave the defaults in place.
type Policy struct {
	MetricsInterval          time.Duration `yaml:"metrics_interval" validate:"gt=0"`
	RerouteMinDistanceMeters float64       `yaml:"reroute_min_distance_meters" validate:"gte=0"`
	RerouteCooldown          time.Duration `yaml:"reroute_cooldown" validate:"gte=0"`
	LocationTimeout          time.Duration `yaml:"location_timeout" validate:"gt=0"`
	FixMaximumAge            time.Duration `yaml:"fix_maximum_age" validate:"gt=0"`
	DemoOrigin               LatLng        `yaml:"demo_origin"`
}

type Config struct {
	Port string `validate:"required,numeric"`

	Backend        string `validate:"oneof=ors mock"`
	ORSAPIKey      string `validate:"required_if=Backend ors"`
	ORSBaseURL     string `validate:"required,url"`
	ORSProfile     string `validate:"required"`
	GeocodeCountry string `validate:"omitempty,min=2,max=3"`

	DatabaseURL     string
	RedisURL        string        `validate:"omitempty,url"`
	GeocodeCacheTTL time.Duration `validate:"gt=0"`

	LocationDevice string   `validate:"oneof=websocket kafka"`
	KafkaBrokers   []string `validate:"required_if=LocationDevice kafka,dive,hostname_port"`
	KafkaFixTopic  string   `validate:"required_if=LocationDevice kafka"`
	KafkaGroupID   string

	DefaultSpeedMps float64       `validate:"gt=0"`
	RequestTimeout  time.Duration `validate:"gt=0"`

	PolicyPath string
	Policy     Policy
}

func DefaultPolicy() Policy {
	return Policy{
		MetricsInterval:          2 * time.Second,
		RerouteMinDistanceMeters: 30,
		RerouteCooldown:          10 * time.Second,
		LocationTimeout:          10 * time.Second,
		FixMaximumAge:            time.Second,
		DemoOrigin:               LatLng{Lat: 47.5615, Lng: -52.7126},
	}
}

// Get returns the environment value for key, or fallback when unset or blank.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Load reads .env (if present), the environment and the policy file, and
// validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	cfg := &Config{
		Port:           Get("PORT", "8080"),
		Backend:        strings.ToLower(Get("NAV_BACKEND", "ors")),
		ORSAPIKey:      Get("ORS_API_KEY", ""),
		ORSBaseURL:     Get("ORS_BASE_URL", "https://api.openrouteservice.org"),
		ORSProfile:     Get("ORS_PROFILE", "driving-car"),
		GeocodeCountry: Get("GEOCODE_COUNTRY", ""),
		DatabaseURL:    Get("DATABASE_URL", ""),
		RedisURL:       Get("REDIS_URL", ""),
		LocationDevice: strings.ToLower(Get("LOCATION_DEVICE", "websocket")),
		KafkaFixTopic:  Get("KAFKA_FIX_TOPIC", "navigation.fixes"),
		KafkaGroupID:   Get("KAFKA_GROUP_ID", "live-navigation"),
		PolicyPath:     Get("NAV_POLICY_PATH", ""),
		Policy:         DefaultPolicy(),
	}

	if brokers := Get("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.GeocodeCacheTTL, err = getDuration("GEOCODE_CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.DefaultSpeedMps, err = getFloat("DEFAULT_SPEED_MPS", 4); err != nil {
		return nil, err
	}

	if cfg.PolicyPath != "" {
		if cfg.Policy, err = LoadPolicy(cfg.PolicyPath, cfg.Policy); err != nil {
			return nil, err
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return cfg, nil
}

// LoadPolicy overlays the YAML file at path onto base.
func LoadPolicy(path string, base Policy) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("config: read policy %q: %w", path, err)
	}

	p := base
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("config: parse policy %q: %w", path, err)
	}

	if err := validator.New().Struct(p); err != nil {
		return Policy{}, fmt.Errorf("config: validate policy %q: %w", path, err)
	}

	return p, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := Get(key, "")
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return f, nil
}
