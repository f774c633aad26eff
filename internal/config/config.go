// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

// Package config loads the application configuration from file and
// environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kkyr/fig"

	"github.com/fieldsync/fieldsync/internal/posbus/provider/gpsd"
)

const configEnv = "FIELDSYNC"

// Config represents the application's configuration structure.
type Config struct {
	Locale   string     `fig:"locale"`
	LogLevel slog.Level `fig:"loglevel" default:"0"`

	// Output format for the status view. Allowed values: text, json
	Output string `fig:"output" default:"text"`

	Storage struct {
		// Directory holding the persisted locations and report history.
		Dir string `fig:"dir"`
	} `fig:"storage"`

	Intervals struct {
		Status time.Duration `fig:"status" default:"30s"`
	} `fig:"intervals"`

	Templates struct {
		Status string `fig:"status"`
	} `fig:"templates"`

	Positioning struct {
		CoordinateFile  string `fig:"coordinate_file"`
		DisableGPSD     bool   `fig:"disable_gpsd"`
		DisableGeoClue  bool   `fig:"disable_geoclue"`
		DisableBeaconDB bool   `fig:"disable_beacondb"`

		GPSD struct {
			Host string `fig:"host"`
			Port string `fig:"port"`
		} `fig:"gpsd"`
	} `fig:"positioning"`

	Geocoder struct {
		// Allowed values: osm-nominatim, kakao
		Provider string `fig:"provider" default:"osm-nominatim"`
		APIKey   string `fig:"apikey"`
		// Restricts forward address searches, comma-separated ISO 3166-1
		// alpha-2 codes.
		CountryCodes string `fig:"country_codes" default:"kr"`
	} `fig:"geocoder"`

	Report struct {
		// Command the composed report is piped to. Empty means copy to
		// clipboard instead.
		ShareCommand []string `fig:"share_command"`
	} `fig:"report"`
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	if c.Output != "text" && c.Output != "json" {
		return fmt.Errorf("invalid output format: %s", c.Output)
	}
	if c.Locale == "" {
		c.Locale = getLocale()
	}
	if c.Geocoder.Provider != "osm-nominatim" && c.Geocoder.Provider != "kakao" {
		return fmt.Errorf("invalid geocoder provider: %s", c.Geocoder.Provider)
	}
	if c.Geocoder.Provider == "kakao" && c.Geocoder.APIKey == "" {
		return fmt.Errorf("geocoder provider kakao requires an API key")
	}
	if c.Intervals.Status < time.Second {
		return fmt.Errorf("status interval too short: %s", c.Intervals.Status)
	}
	if c.Storage.Dir == "" {
		home, _ := os.UserHomeDir()
		c.Storage.Dir = filepath.Join(home, ".local", "share", "fieldsync")
	}
	if c.Positioning.GPSD.Host == "" {
		c.Positioning.GPSD.Host = gpsd.DefaultHost
	}
	if c.Positioning.GPSD.Port == "" {
		c.Positioning.GPSD.Port = gpsd.DefaultPort
	}

	return nil
}

func getLocale() string {
	locale := os.Getenv("LC_MESSAGES")
	if idx := strings.Index(locale, "."); idx != -1 {
		lang := locale[:idx]
		return strings.ReplaceAll(lang, "_", "-")
	}
	return locale
}
