package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 应用配置
type Config struct {
	Port string

	// Cluster store
	ClusterDriver     string // sqlite | pgx
	ClusterAddr       string
	ClusterPartitions int

	MapboxToken     string
	MapboxTokenFile string

	MarkerLimit    int           // 低于该数量时逐点绘制
	RateLimit      int           // 每分钟请求数
	DatasetTimeout time.Duration // 数据集等待上限
	LogLevel       string
}

// Load 加载配置
func Load() *Config {
	cfg := &Config{
		Port:              getEnv("PORT", ":8050"),
		ClusterDriver:     getEnv("CLUSTER_DRIVER", "sqlite"),
		ClusterAddr:       getEnv("CLUSTER_ADDR", "./data/cell_towers.db"),
		ClusterPartitions: getEnvInt("CLUSTER_PARTITIONS", 8),
		MapboxTokenFile:   getEnv("MAPBOX_TOKEN_FILE", ".mapbox_token"),
		MarkerLimit:       getEnvInt("MARKER_LIMIT", 5000),
		RateLimit:         getEnvInt("RATE_LIMIT", 120),
		DatasetTimeout:    getEnvDuration("DATASET_TIMEOUT", 6*time.Second),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
	cfg.MapboxToken = os.Getenv("MAPBOX_TOKEN")
	return cfg
}

// ResolveMapboxToken returns the configured token, reading the token file
// when the environment variable is unset.
func (c *Config) ResolveMapboxToken() (string, error) {
	if c.MapboxToken != "" {
		return c.MapboxToken, nil
	}
	content, err := os.ReadFile(c.MapboxTokenFile)
	if err != nil {
		return "", fmt.Errorf("mapbox token not set and token file unreadable: %w", err)
	}
	token := strings.TrimSpace(string(content))
	if token == "" {
		return "", fmt.Errorf("mapbox token file %s is empty", c.MapboxTokenFile)
	}
	c.MapboxToken = token
	return token, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
