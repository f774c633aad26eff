// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	const (
		expectLogLevel       = slog.LevelInfo
		expectOutput         = "text"
		expectIntervalStatus = time.Second * 30
		expectGeocoder       = "osm-nominatim"
		expectCountryCodes   = "kr"
		expectGPSDHost       = "localhost"
		expectGPSDPort       = "2947"
	)
	t.Run("new config with all defaults set", func(t *testing.T) {
		conf, err := New()
		if err != nil {
			t.Errorf("failed to load config: %s", err)
		}
		if conf.LogLevel != expectLogLevel {
			t.Errorf("expected log level to be: %s, got %s", expectLogLevel, conf.LogLevel)
		}
		if conf.Output != expectOutput {
			t.Errorf("expected output format to be: %s, got %s", expectOutput, conf.Output)
		}
		if conf.Intervals.Status != expectIntervalStatus {
			t.Errorf("expected status interval to be: %s, got %s", expectIntervalStatus, conf.Intervals.Status)
		}
		if conf.Geocoder.Provider != expectGeocoder {
			t.Errorf("expected geocoder provider to be: %s, got %s", expectGeocoder, conf.Geocoder.Provider)
		}
		if conf.Geocoder.CountryCodes != expectCountryCodes {
			t.Errorf("expected geocoder country codes to be: %s, got %s", expectCountryCodes,
				conf.Geocoder.CountryCodes)
		}
		if conf.Positioning.GPSD.Host != expectGPSDHost {
			t.Errorf("expected gpsd host to be: %s, got %s", expectGPSDHost, conf.Positioning.GPSD.Host)
		}
		if conf.Positioning.GPSD.Port != expectGPSDPort {
			t.Errorf("expected gpsd port to be: %s, got %s", expectGPSDPort, conf.Positioning.GPSD.Port)
		}
		if conf.Storage.Dir == "" {
			t.Error("expected storage directory to be set")
		}
	})
	t.Run("locale falls back to LC_MESSAGES", func(t *testing.T) {
		t.Setenv("FIELDSYNC_LOCALE", "")
		t.Setenv("LC_MESSAGES", "ko_KR.UTF-8")
		conf, err := New()
		if err != nil {
			t.Fatalf("failed to load config: %s", err)
		}
		if conf.Locale != "ko-KR" {
			t.Errorf("expected locale to be: %s, got %s", "ko-KR", conf.Locale)
		}
	})
	t.Run("new config with invalid values from env", func(t *testing.T) {
		t.Setenv("FIELDSYNC_LOGLEVEL", "invalid")
		_, err := New()
		if err == nil {
			t.Error("expected config to fail, but didn't")
		}
	})
	t.Run("config validate output format", func(t *testing.T) {
		t.Setenv("FIELDSYNC_OUTPUT", "yaml")
		_, err := New()
		if err == nil {
			t.Error("expected config to fail, but didn't")
		}
	})
	t.Run("config validate geocoder provider", func(t *testing.T) {
		t.Setenv("FIELDSYNC_GEOCODER_PROVIDER", "invalid")
		_, err := New()
		if err == nil {
			t.Error("expected config to fail, but didn't")
		}
	})
	t.Run("config validate kakao requires API key", func(t *testing.T) {
		t.Setenv("FIELDSYNC_GEOCODER_PROVIDER", "kakao")
		t.Setenv("FIELDSYNC_GEOCODER_APIKEY", "")
		_, err := New()
		if err == nil {
			t.Error("expected config to fail, but didn't")
		}
		t.Setenv("FIELDSYNC_GEOCODER_APIKEY", "test-key")
		conf, err := New()
		if err != nil {
			t.Fatalf("failed to load config: %s", err)
		}
		if conf.Geocoder.Provider != "kakao" {
			t.Errorf("expected geocoder provider to be: %s, got %s", "kakao", conf.Geocoder.Provider)
		}
	})
	t.Run("config validate status interval", func(t *testing.T) {
		t.Setenv("FIELDSYNC_INTERVALS_STATUS", "100ms")
		_, err := New()
		if err == nil {
			t.Error("expected config to fail, but didn't")
		}
	})
}

func TestNewFromFile(t *testing.T) {
	t.Run("reading config from valid file succeeds", func(t *testing.T) {
		conf, err := NewFromFile("../../etc", "config.toml")
		if err != nil {
			t.Fatalf("failed to load config: %s", err)
		}
		if conf.Output != "text" {
			t.Errorf("expected output format to be: %s, got %s", "text", conf.Output)
		}
		if conf.Intervals.Status != time.Second*30 {
			t.Errorf("expected status interval to be: %s, got %s", time.Second*30, conf.Intervals.Status)
		}
		if conf.Geocoder.Provider != "osm-nominatim" {
			t.Errorf("expected geocoder provider to be: %s, got %s", "osm-nominatim", conf.Geocoder.Provider)
		}
		if conf.Positioning.GPSD.Host != "localhost" {
			t.Errorf("expected gpsd host to be: %s, got %s", "localhost", conf.Positioning.GPSD.Host)
		}
	})
	t.Run("reading config from non-existent file fails", func(t *testing.T) {
		_, err := NewFromFile("../../etc", "non-existent.toml")
		if err == nil {
			t.Error("expected config to fail, but didn't")
		}
	})
	t.Run("reading invalid config file fails", func(t *testing.T) {
		_, err := NewFromFile("../../testdata", "invalid.toml")
		if err == nil {
			t.Error("expected config to fail, but didn't")
		}
	})
}
