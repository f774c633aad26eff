// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

// Package kakao implements address lookups against the Kakao Local API,
// which has considerably better coverage for South Korea than the
// OpenStreetMap data.
package kakao

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/fieldsync/fieldsync/internal/geo"
	"github.com/fieldsync/fieldsync/internal/geocode"
	"github.com/fieldsync/fieldsync/internal/http"
)

const (
	APIReverseEndpoint = "https://dapi.kakao.com/v2/local/geo/coord2address.json"
	APISearchEndpoint  = "https://dapi.kakao.com/v2/local/search/address.json"
	APITimeout         = time.Second * 10
	name               = "kakao"
)

type Kakao struct {
	apikey string
	http   *http.Client
}

type ReverseResponse struct {
	Meta      Meta             `json:"meta"`
	Documents []ReverseDocment `json:"documents"`
}

type SearchResponse struct {
	Meta      Meta             `json:"meta"`
	Documents []SearchDocument `json:"documents"`
}

type Meta struct {
	TotalCount int `json:"total_count"`
}

type ReverseDocment struct {
	RoadAddress *RoadAddress `json:"road_address"`
	Address     *LotAddress  `json:"address"`
}

type SearchDocument struct {
	AddressName string `json:"address_name"`
	APILon      string `json:"x"`
	APILat      string `json:"y"`
}

type RoadAddress struct {
	AddressName    string `json:"address_name"`
	Region1Depth   string `json:"region_1depth_name"`
	Region2Depth   string `json:"region_2depth_name"`
	Region3Depth   string `json:"region_3depth_name"`
	RoadName       string `json:"road_name"`
	MainBuildingNo string `json:"main_building_no"`
	SubBuildingNo  string `json:"sub_building_no"`
	BuildingName   string `json:"building_name"`
	ZoneNo         string `json:"zone_no"`
}

type LotAddress struct {
	AddressName  string `json:"address_name"`
	Region1Depth string `json:"region_1depth_name"`
	Region2Depth string `json:"region_2depth_name"`
	Region3Depth string `json:"region_3depth_name"`
	MainNo       string `json:"main_address_no"`
	SubNo        string `json:"sub_address_no"`
}

func New(client *http.Client, apikey string) *Kakao {
	return &Kakao{
		apikey: apikey,
		http:   client,
	}
}

func (k *Kakao) Name() string {
	return name
}

func (k *Kakao) Reverse(ctx context.Context, coords geo.Coordinate) (geocode.Address, error) {
	var response ReverseResponse

	query := url.Values{}
	query.Set("x", fmt.Sprintf("%f", coords.Lon))
	query.Set("y", fmt.Sprintf("%f", coords.Lat))
	query.Set("input_coord", "WGS84")

	if _, err := k.http.GetWithTimeout(ctx, APIReverseEndpoint, &response, query, k.headers(), APITimeout); err != nil {
		return geocode.Address{}, fmt.Errorf("failed to retrieve address details from Kakao API: %w", err)
	}
	if len(response.Documents) < 1 {
		return geocode.Address{}, nil
	}

	document := response.Documents[0]
	address := geocode.Address{
		AddressFound: true,
		Latitude:     coords.Lat,
		Longitude:    coords.Lon,
		Country:      "대한민국",
	}
	// Road addresses take precedence over the legacy lot-number addresses,
	// matching what the Kakao map SDK shows.
	switch {
	case document.RoadAddress != nil:
		road := document.RoadAddress
		address.DisplayName = road.AddressName
		address.City = road.Region1Depth
		address.District = road.Region2Depth
		address.Neighborhood = road.Region3Depth
		address.Street = road.RoadName
		address.HouseNumber = road.MainBuildingNo
		if road.SubBuildingNo != "" {
			address.HouseNumber += "-" + road.SubBuildingNo
		}
		address.Building = road.BuildingName
		address.Postcode = road.ZoneNo
	case document.Address != nil:
		lot := document.Address
		address.DisplayName = lot.AddressName
		address.City = lot.Region1Depth
		address.District = lot.Region2Depth
		address.Neighborhood = lot.Region3Depth
		address.HouseNumber = lot.MainNo
		if lot.SubNo != "" {
			address.HouseNumber += "-" + lot.SubNo
		}
	default:
		return geocode.Address{}, nil
	}

	return address, nil
}

func (k *Kakao) Search(ctx context.Context, address string) (geo.Coordinate, error) {
	var response SearchResponse
	var err error

	query := url.Values{}
	query.Set("query", address)

	if _, err = k.http.GetWithTimeout(ctx, APISearchEndpoint, &response, query, k.headers(), APITimeout); err != nil {
		return geo.Coordinate{}, fmt.Errorf("failed to fetch address details from Kakao API: %w", err)
	}
	if len(response.Documents) < 1 {
		return geo.Coordinate{}, fmt.Errorf("no coordinates found for address %q", address)
	}

	var coords geo.Coordinate
	coords.Lat, err = strconv.ParseFloat(response.Documents[0].APILat, 64)
	if err != nil {
		return coords, fmt.Errorf("failed to parse latitude from Kakao API response: %w", err)
	}
	coords.Lon, err = strconv.ParseFloat(response.Documents[0].APILon, 64)
	if err != nil {
		return coords, fmt.Errorf("failed to parse longitude from Kakao API response: %w", err)
	}

	return coords, nil
}

func (k *Kakao) headers() map[string]string {
	return map[string]string{"Authorization": "KakaoAK " + k.apikey}
}
