package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/midbel/toml"

	"github.com/slr/slrgo/internal/auth"
	"github.com/slr/slrgo/internal/transform"
)

// StationEntry is one named station in a stations TOML file.
type StationEntry struct {
	Name        string
	Type        string
	Coordinates [3]float64
}

// Setting is the root of a stations TOML file:
//
//	[[station]]
//	name = "zimmerwald"
//	type = "geodetic"
//	coordinates = [7.465222, 46.877230, 951.33]
type Setting struct {
	Stations []StationEntry `toml:"station"`
}

func loadSetting(file string) (Setting, error) {
	var s Setting
	return s, toml.DecodeFile(file, &s)
}

func (s Setting) find(name string) (transform.StationPosition, error) {
	for _, e := range s.Stations {
		if strings.EqualFold(e.Name, name) {
			t := e.Type
			if t == "" {
				t = string(transform.Geodetic)
			}
			return transform.StationPosition{
				Type: transform.CoordType(t),
				C1:   e.Coordinates[0],
				C2:   e.Coordinates[1],
				C3:   e.Coordinates[2],
			}, nil
		}
	}
	return transform.StationPosition{}, fmt.Errorf("station %q not found", name)
}

// stationFlags are the common flags that select a ground station, either
// by name from a stations file or directly from coordinates.
type stationFlags struct {
	configFile string
	station    string
	coords     string
	coordType  string
}

func (f *stationFlags) resolve() (transform.StationPosition, error) {
	if f.station != "" {
		if f.configFile == "" {
			return transform.StationPosition{}, errors.New("--station requires --config")
		}
		setting, err := loadSetting(f.configFile)
		if err != nil {
			return transform.StationPosition{}, fmt.Errorf("loading %s: %w", f.configFile, err)
		}
		return setting.find(f.station)
	}

	if f.coords == "" {
		return transform.StationPosition{}, errors.New("either --station or --coords is required")
	}
	parts := strings.Split(f.coords, ",")
	if len(parts) != 3 {
		return transform.StationPosition{}, fmt.Errorf("--coords wants three comma-separated values, got %q", f.coords)
	}
	var c [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return transform.StationPosition{}, fmt.Errorf("--coords component %d: %w", i+1, err)
		}
		c[i] = v
	}
	return transform.StationPosition{
		Type: transform.CoordType(f.coordType),
		C1:   c[0], C2: c[1], C3: c[2],
	}, nil
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("SLRGO_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("SLRGO_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("SLRGO_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("SLRGO_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

type serveConfig struct {
	Addr        string
	ArchiveURL  string
	CacheDir    string
	MaxFiles    int
	EnableFetch bool
	Workers     int
	TrustProxy  bool
}

func loadServeConfig(logger *slog.Logger) serveConfig {
	cfg := serveConfig{
		Addr:        ":8080",
		CacheDir:    "./cpf-cache",
		MaxFiles:    5,
		EnableFetch: true,
		Workers:     runtime.NumCPU(),
	}

	if v := os.Getenv("SLRGO_HTTP_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("SLRGO_CPF_URL"); v != "" {
		cfg.ArchiveURL = v
	}
	if v := os.Getenv("SLRGO_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}

	if v := os.Getenv("SLRGO_CACHE_MAX_FILES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SLRGO_CACHE_MAX_FILES value, using default", "value", v, "default", cfg.MaxFiles)
		} else {
			cfg.MaxFiles = n
		}
	}

	if v := os.Getenv("SLRGO_FETCH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid SLRGO_FETCH_ENABLED value, using default", "value", v, "default", cfg.EnableFetch)
		} else {
			cfg.EnableFetch = enabled
		}
	}

	if v := os.Getenv("SLRGO_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid SLRGO_WORKERS value, using default", "value", v, "default", cfg.Workers)
		} else {
			cfg.Workers = n
		}
	}

	if v := os.Getenv("SLRGO_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid SLRGO_TRUST_PROXY value, using default", "value", v, "default", cfg.TrustProxy)
		} else {
			cfg.TrustProxy = trust
		}
	}

	logger.Info("serve config",
		"addr", cfg.Addr,
		"cache_dir", cfg.CacheDir,
		"cache_max_files", cfg.MaxFiles,
		"fetch_enabled", cfg.EnableFetch,
		"workers", cfg.Workers,
	)

	return cfg
}
