// Package config loads coordinator settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	mandel "github.com/marben/mandelgray"
)

type Config struct {
	TCPAddr      string
	HTTPPort     int
	Out          string
	LocalWorkers int
	TileSize     int
	View         mandel.Config
}

func Load() (*Config, error) {
	httpPort, err := getEnvInt("MANDEL_HTTP_PORT", 8080)
	if err != nil {
		return nil, err
	}
	local, err := getEnvInt("MANDEL_LOCAL_WORKERS", 1)
	if err != nil {
		return nil, err
	}
	tileSize, err := getEnvInt("MANDEL_TILE_SIZE", 64)
	if err != nil {
		return nil, err
	}
	if tileSize <= 0 {
		return nil, fmt.Errorf("MANDEL_TILE_SIZE=%d must be positive", tileSize)
	}
	if local < 0 {
		return nil, fmt.Errorf("MANDEL_LOCAL_WORKERS=%d must not be negative", local)
	}

	w, err := getEnvInt("MANDEL_WIDTH", mandel.DefaultWidth)
	if err != nil {
		return nil, err
	}
	h, err := getEnvInt("MANDEL_HEIGHT", mandel.DefaultHeight)
	if err != nil {
		return nil, err
	}
	iter, err := getEnvInt("MANDEL_ITERATIONS", mandel.DefaultIterations)
	if err != nil {
		return nil, err
	}
	view, err := mandel.NewConfig(w, h, iter)
	if err != nil {
		return nil, err
	}

	return &Config{
		TCPAddr:      getEnv("MANDEL_TCP_ADDR", ":8081"),
		HTTPPort:     httpPort,
		Out:          getEnv("MANDEL_OUT", "mandelbrot.png"),
		LocalWorkers: local,
		TileSize:     tileSize,
		View:         view,
	}, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s=%q: %w", key, val, err)
	}
	return n, nil
}
