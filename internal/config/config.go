package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Log      LogConfig
	Worker   WorkerConfig
	Mapbox   MapboxConfig
	Cluster  ClusterConfig
}

type ServerConfig struct {
	Host string
	Port int
	Env  string
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CacheConfig struct {
	GeocodeCacheTTL time.Duration
}

type LogConfig struct {
	Level string
}

type MapboxConfig struct {
	AccessToken    string
	BaseURL        string
	RequestTimeout int
}

// WorkerConfig governs the scheduled/triggered background runner that
// re-executes the clustering pipeline (internal/worker/cluster).
type WorkerConfig struct {
	Enabled       bool
	RunInterval   time.Duration
	MaxRetries    int
}

// ClusterConfig holds every tunable the pipeline's phase drivers read.
type ClusterConfig struct {
	PolygonBufferKM  float64
	MergeBufferKM    float64
	SiteRemovalRatio float64
	TraversalTTL     time.Duration
	EnumerationTTL   time.Duration
	BatchSize        int
	GeocoderEnabled  bool
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("API_HOST"),
			Port: viper.GetInt("API_PORT"),
			Env:  viper.GetString("API_ENV"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			DBName:          viper.GetString("DB_NAME"),
			SSLMode:         viper.GetString("DB_SSLMODE"),
			MaxConns:        viper.GetInt("DB_MAX_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: time.Duration(viper.GetInt("DB_CONN_MAX_LIFETIME")) * time.Second,
			ConnMaxIdleTime: time.Duration(viper.GetInt("DB_CONN_MAX_IDLE_TIME")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetInt("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Cache: CacheConfig{
			GeocodeCacheTTL: time.Duration(viper.GetInt("GEOCODE_CACHE_TTL")) * time.Second,
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
		Mapbox: MapboxConfig{
			AccessToken:    viper.GetString("MAPBOX_ACCESS_TOKEN"),
			BaseURL:        viper.GetString("MAPBOX_BASE_URL"),
			RequestTimeout: viper.GetInt("MAPBOX_REQUEST_TIMEOUT"),
		},
		Worker: WorkerConfig{
			Enabled:     viper.GetBool("WORKER_ENABLED"),
			RunInterval: time.Duration(viper.GetInt("WORKER_RUN_INTERVAL_SECONDS")) * time.Second,
			MaxRetries:  viper.GetInt("WORKER_MAX_RETRIES"),
		},
		Cluster: ClusterConfig{
			PolygonBufferKM:  viper.GetFloat64("CLUSTER_POLYGON_BUFFER_KM"),
			MergeBufferKM:    viper.GetFloat64("CLUSTER_MERGE_BUFFER_KM"),
			SiteRemovalRatio: viper.GetFloat64("CLUSTER_SITE_REMOVAL_RATIO"),
			TraversalTTL:     time.Duration(viper.GetInt("CLUSTER_TRAVERSAL_TTL_SECONDS")) * time.Second,
			EnumerationTTL:   time.Duration(viper.GetInt("CLUSTER_ENUMERATION_TTL_SECONDS")) * time.Second,
			BatchSize:        viper.GetInt("CLUSTER_BATCH_SIZE"),
			GeocoderEnabled:  viper.GetBool("CLUSTER_GEOCODER_ENABLED"),
		},
	}

	applyDefaults(cfg)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Worker.RunInterval == 0 {
		cfg.Worker.RunInterval = 1 * time.Hour
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}
	if cfg.Mapbox.BaseURL == "" {
		cfg.Mapbox.BaseURL = "https://api.mapbox.com"
	}
	if cfg.Mapbox.RequestTimeout == 0 {
		cfg.Mapbox.RequestTimeout = 30
	}
	if cfg.Cache.GeocodeCacheTTL == 0 {
		cfg.Cache.GeocodeCacheTTL = 7 * 24 * time.Hour
	}

	if cfg.Cluster.PolygonBufferKM == 0 {
		cfg.Cluster.PolygonBufferKM = 0.5
	}
	if cfg.Cluster.MergeBufferKM == 0 {
		cfg.Cluster.MergeBufferKM = 0.25
	}
	if cfg.Cluster.SiteRemovalRatio == 0 {
		cfg.Cluster.SiteRemovalRatio = 0.5
	}
	if cfg.Cluster.TraversalTTL == 0 {
		cfg.Cluster.TraversalTTL = 120 * time.Second
	}
	if cfg.Cluster.EnumerationTTL == 0 {
		cfg.Cluster.EnumerationTTL = 3600 * time.Second
	}
	if cfg.Cluster.BatchSize == 0 {
		cfg.Cluster.BatchSize = 50
	}
	cfg.Cluster.GeocoderEnabled = cfg.Cluster.GeocoderEnabled && cfg.Mapbox.AccessToken != ""
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
