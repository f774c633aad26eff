// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

package service

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/fieldsync/fieldsync/internal/geocode"
	"github.com/fieldsync/fieldsync/internal/geocode/provider/kakao"
	nominatim "github.com/fieldsync/fieldsync/internal/geocode/provider/osm-nominatim"
	"github.com/fieldsync/fieldsync/internal/http"
	"github.com/fieldsync/fieldsync/internal/logger"
	"github.com/fieldsync/fieldsync/internal/posbus"
	"github.com/fieldsync/fieldsync/internal/posbus/provider/beacondb"
	"github.com/fieldsync/fieldsync/internal/posbus/provider/coordfile"
	"github.com/fieldsync/fieldsync/internal/posbus/provider/geoclue"
	"github.com/fieldsync/fieldsync/internal/posbus/provider/gpsd"
	"github.com/fieldsync/fieldsync/internal/report"
	"github.com/fieldsync/fieldsync/internal/share"
)

func (s *Service) selectPositionProviders() ([]posbus.Provider, error) {
	httpClient := http.New(s.logger)
	var provider []posbus.Provider

	if s.config.Positioning.CoordinateFile != "" {
		provider = append(provider, coordfile.New(s.config.Positioning.CoordinateFile))
	}

	if !s.config.Positioning.DisableGPSD {
		provider = append(provider, gpsd.New(s.config.Positioning.GPSD.Host,
			s.config.Positioning.GPSD.Port, s.logger))
	}

	if !s.config.Positioning.DisableGeoClue {
		provider = append(provider, geoclue.New(s.logger))
	}

	if !s.config.Positioning.DisableBeaconDB {
		bdb, err := beacondb.New(httpClient)
		if err != nil {
			s.logger.Error("failed to create BeaconDB provider", logger.Err(err))
		} else {
			provider = append(provider, bdb)
		}
	}

	if len(provider) == 0 {
		return nil, fmt.Errorf("no positioning providers enabled")
	}

	return provider, nil
}

func (s *Service) selectGeocodeProvider() (geocode.Geocoder, geocode.Searcher, error) {
	lang := language.Make(s.config.Locale)

	switch strings.ToLower(s.config.Geocoder.Provider) {
	case "osm-nominatim", "nominatim":
		coder := nominatim.New(http.New(s.logger), lang, s.config.Geocoder.CountryCodes)
		return geocode.NewCachedGeocoder(coder, cacheHitTTL, cacheMissTTL), coder, nil
	case "kakao":
		if s.config.Geocoder.APIKey == "" {
			return nil, nil, fmt.Errorf("kakao geocoder requires an API key")
		}
		coder := kakao.New(http.New(s.logger), s.config.Geocoder.APIKey)
		return geocode.NewCachedGeocoder(coder, cacheHitTTL, cacheMissTTL), coder, nil
	default:
		return nil, nil, fmt.Errorf("unsupported geocoder type: %s", s.config.Geocoder.Provider)
	}
}

func (s *Service) selectSharer() (report.Sharer, error) {
	if len(s.config.Report.ShareCommand) > 0 {
		return share.NewCommandSharer(s.config.Report.ShareCommand, s.logger)
	}
	return share.NewClipboardSharer(s.logger), nil
}
