// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

// Package beacondb implements network-based positioning against the
// BeaconDB geolocation API, using nearby WiFi access points as beacons.
// It is the fallback for devices without a GPS receiver.
package beacondb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mdlayher/wifi"

	"github.com/fieldsync/fieldsync/internal/geo"
	"github.com/fieldsync/fieldsync/internal/http"
	"github.com/fieldsync/fieldsync/internal/posbus"
)

const (
	apiEndpoint   = "https://api.beacondb.net/v1/geolocate"
	lookupTimeout = time.Second * 5
	wifiScanTime  = time.Minute * 2
	name          = "beacondb"
)

type Provider struct {
	name     string
	http     *http.Client
	wlan     *wifi.Client
	period   time.Duration
	locateFn func(ctx context.Context) (geo.Coordinate, error)

	apLock sync.RWMutex
	aps    []WirelessNetwork
}

type APIResult struct {
	Location struct {
		Latitude  float64 `json:"lat"`
		Longitude float64 `json:"lng"`
	} `json:"location"`
	Accuracy float64 `json:"accuracy"`
}

type WirelessNetwork struct {
	LastSeen       int64  `json:"age"`
	MACAddress     string `json:"macAddress"`
	SignalStrength int32  `json:"signalStrength"`
}

func New(client *http.Client) (*Provider, error) {
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}
	wlan, err := wifi.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create wifi client: %w", err)
	}

	provider := &Provider{
		name:   name,
		http:   client,
		wlan:   wlan,
		period: time.Minute * 5,
	}
	provider.locateFn = provider.locate
	return provider, nil
}

func (p *Provider) Name() string {
	return p.name
}

// WatchStream polls the geolocation API on a fixed cadence, feeding it the
// most recent WiFi scan results, and emits a fix whenever the estimated
// position changes.
func (p *Provider) WatchStream(ctx context.Context) <-chan posbus.Event {
	out := make(chan posbus.Event)
	if p.wlan != nil {
		go p.monitorWifiAccessPoints(ctx)
	}
	go func() {
		defer close(out)
		var last geo.Coordinate
		var haveLast, faulted bool
		firstRun := true

		for {
			if !firstRun {
				select {
				case <-ctx.Done():
					return
				case <-time.After(p.period):
				}
			}
			firstRun = false

			coords, err := p.locateFn(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if !faulted {
					faulted = true
					fault := posbus.Fault{
						Source: p.name,
						Reason: posbus.ReasonUnavailable,
						Err:    err,
						At:     time.Now(),
					}
					select {
					case <-ctx.Done():
						return
					case out <- posbus.Event{Fault: &fault}:
					}
				}
				continue
			}
			faulted = false

			if haveLast && coords == last {
				continue
			}
			last = coords
			haveLast = true

			fix := posbus.Fix{
				Coordinate: coords,
				Source:     p.name,
				At:         time.Now(),
			}
			select {
			case <-ctx.Done():
				return
			case out <- posbus.Event{Fix: &fix}:
			}
		}
	}()
	return out
}

func (p *Provider) monitorWifiAccessPoints(ctx context.Context) {
	firstRun := true
	for {
		if !firstRun {
			select {
			case <-ctx.Done():
				return
			case <-time.After(wifiScanTime):
			}
		}
		firstRun = false

		list, err := p.wifiAccessPoints()
		if err != nil {
			continue
		}
		p.apLock.Lock()
		p.aps = list
		p.apLock.Unlock()
	}
}

func (p *Provider) wifiAccessPoints() ([]WirelessNetwork, error) {
	var checkIfaces []*wifi.Interface
	var list []WirelessNetwork

	ifaces, err := p.wlan.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if iface.Type != wifi.InterfaceTypeStation {
			continue
		}
		checkIfaces = append(checkIfaces, iface)
	}
	if len(checkIfaces) == 0 {
		return nil, nil
	}

	for _, iface := range checkIfaces {
		aps, err := p.wlan.AccessPoints(iface)
		if err != nil {
			continue
		}
		for _, ap := range aps {
			// Hidden networks and networks opted out of mapping are not
			// submitted.
			if ap.SSID == "" || ap.SSID[0] == '\x00' || strings.HasSuffix(ap.SSID, "_nomap") {
				continue
			}
			list = append(list, WirelessNetwork{
				SignalStrength: ap.Signal / 100,
				MACAddress:     ap.BSSID.String(),
				LastSeen:       ap.LastSeen.Milliseconds(),
			})
		}
	}

	return list, nil
}

func (p *Provider) locate(ctx context.Context) (geo.Coordinate, error) {
	p.apLock.RLock()
	wifiList := p.aps
	p.apLock.RUnlock()

	type request struct {
		ConsiderIP   bool              `json:"considerIp"`
		Accesspoints []WirelessNetwork `json:"wifiAccessPoints,omitempty"`
	}
	req := request{
		ConsiderIP:   true,
		Accesspoints: wifiList,
	}
	bodyBuffer := bytes.NewBuffer(nil)
	if err := json.NewEncoder(bodyBuffer).Encode(req); err != nil {
		return geo.Coordinate{}, fmt.Errorf("failed to encode wifi list to JSON: %w", err)
	}

	ctxHttp, cancelHttp := context.WithTimeout(ctx, lookupTimeout)
	defer cancelHttp()
	result := new(APIResult)
	if _, err := p.http.Post(ctxHttp, apiEndpoint, result, bodyBuffer,
		map[string]string{"Content-Type": "application/json"}); err != nil {
		return geo.Coordinate{}, fmt.Errorf("failed to get geolocation data from API: %w", err)
	}

	return geo.Coordinate{
		Lat: geo.Truncate(result.Location.Latitude, geo.TruncPrecision),
		Lon: geo.Truncate(result.Location.Longitude, geo.TruncPrecision),
		Acc: geo.Truncate(result.Accuracy, geo.TruncPrecision),
	}, nil
}
