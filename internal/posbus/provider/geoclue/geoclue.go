// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

// Package geoclue streams position fixes from the GeoClue2 D-Bus service.
package geoclue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/fieldsync/fieldsync/internal/geo"
	"github.com/fieldsync/fieldsync/internal/logger"
	"github.com/fieldsync/fieldsync/internal/posbus"
)

const (
	DesktopID = "fieldsync"
	name      = "geoclue"

	busName       = "org.freedesktop.GeoClue2"
	managerPath   = "/org/freedesktop/GeoClue2/Manager"
	managerIface  = "org.freedesktop.GeoClue2.Manager"
	clientIface   = "org.freedesktop.GeoClue2.Client"
	locationIface = "org.freedesktop.GeoClue2.Location"

	// accuracyLevelExact requests the most precise position GeoClue2 can
	// deliver (GCLUE_ACCURACY_LEVEL_EXACT).
	accuracyLevelExact = uint32(8)

	accessDeniedError = "org.freedesktop.DBus.Error.AccessDenied"
)

// connection is the subset of the GeoClue2 D-Bus API the provider needs.
// Split out so the stream logic can be tested without a system bus.
type connection interface {
	CreateClient() (dbus.ObjectPath, error)
	SetDesktopID(client dbus.ObjectPath, id string) error
	SetAccuracyLevel(client dbus.ObjectPath, level uint32) error
	Start(client dbus.ObjectPath) error
	LocationUpdates(client dbus.ObjectPath) (<-chan dbus.ObjectPath, error)
	ReadLocation(location dbus.ObjectPath) (geo.Coordinate, error)
	Close() error
}

type Provider struct {
	name      string
	desktopID string
	retry     time.Duration
	logger    *logger.Logger
	connectFn func(ctx context.Context) (connection, error)
}

func New(log *logger.Logger) *Provider {
	return &Provider{
		name:      name,
		desktopID: DesktopID,
		retry:     time.Second * 30,
		logger:    log,
		connectFn: connectSystemBus,
	}
}

func (p *Provider) Name() string {
	return p.name
}

// WatchStream registers a GeoClue2 client and emits a fix for every
// LocationUpdated signal. A missing or denying GeoClue agent is reported as a
// permission fault, other failures as unavailability.
func (p *Provider) WatchStream(ctx context.Context) <-chan posbus.Event {
	out := make(chan posbus.Event)

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if err := p.watchOnce(ctx, out); err != nil {
				p.logger.Debug("geoclue watch ended", logger.Err(err))
				p.emitFault(ctx, out, faultReason(err), err)
			}
			if !sleepOrDone(ctx, p.retry) {
				return
			}
		}
	}()

	return out
}

func (p *Provider) watchOnce(ctx context.Context, out chan<- posbus.Event) error {
	conn, err := p.connectFn(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to system bus: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			p.logger.Debug("failed to close system bus connection", logger.Err(err))
		}
	}()

	client, err := conn.CreateClient()
	if err != nil {
		return fmt.Errorf("failed to create geoclue client: %w", err)
	}
	if err = conn.SetDesktopID(client, p.desktopID); err != nil {
		return fmt.Errorf("failed to set desktop id: %w", err)
	}
	if err = conn.SetAccuracyLevel(client, accuracyLevelExact); err != nil {
		return fmt.Errorf("failed to set requested accuracy level: %w", err)
	}

	updates, err := conn.LocationUpdates(client)
	if err != nil {
		return fmt.Errorf("failed to subscribe to location updates: %w", err)
	}
	if err = conn.Start(client); err != nil {
		return fmt.Errorf("failed to start geoclue client: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case location, open := <-updates:
			if !open {
				return errors.New("location update stream closed")
			}
			coords, err := conn.ReadLocation(location)
			if err != nil {
				p.logger.Debug("failed to read location properties", logger.Err(err))
				continue
			}
			fix := posbus.Fix{
				Coordinate: geo.Coordinate{
					Lat: geo.Truncate(coords.Lat, geo.TruncPrecision),
					Lon: geo.Truncate(coords.Lon, geo.TruncPrecision),
					Acc: coords.Acc,
				},
				Source: p.name,
				At:     time.Now(),
			}
			select {
			case <-ctx.Done():
				return nil
			case out <- posbus.Event{Fix: &fix}:
			}
		}
	}
}

func (p *Provider) emitFault(ctx context.Context, out chan<- posbus.Event, reason posbus.Reason, err error) {
	fault := posbus.Fault{
		Source: p.name,
		Reason: reason,
		Err:    err,
		At:     time.Now(),
	}
	select {
	case <-ctx.Done():
	case out <- posbus.Event{Fault: &fault}:
	}
}

func faultReason(err error) posbus.Reason {
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) && dbusErr.Name == accessDeniedError {
		return posbus.ReasonPermissionDenied
	}
	if strings.Contains(err.Error(), accessDeniedError) {
		return posbus.ReasonPermissionDenied
	}
	return posbus.ReasonUnavailable
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// dbusConnection implements connection against a real system bus. done is
// closed on Close so the signal pump exits even when nobody reads the
// update channel anymore.
type dbusConnection struct {
	conn *dbus.Conn
	done chan struct{}
}

func connectSystemBus(ctx context.Context) (connection, error) {
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return &dbusConnection{conn: conn, done: make(chan struct{})}, nil
}

func (d *dbusConnection) CreateClient() (dbus.ObjectPath, error) {
	var client dbus.ObjectPath
	manager := d.conn.Object(busName, managerPath)
	if err := manager.Call(managerIface+".GetClient", 0).Store(&client); err != nil {
		return "", err
	}
	return client, nil
}

func (d *dbusConnection) SetDesktopID(client dbus.ObjectPath, id string) error {
	return d.conn.Object(busName, client).SetProperty(clientIface+".DesktopId", dbus.MakeVariant(id))
}

func (d *dbusConnection) SetAccuracyLevel(client dbus.ObjectPath, level uint32) error {
	return d.conn.Object(busName, client).SetProperty(clientIface+".RequestedAccuracyLevel", dbus.MakeVariant(level))
}

func (d *dbusConnection) Start(client dbus.ObjectPath) error {
	return d.conn.Object(busName, client).Call(clientIface+".Start", 0).Err
}

func (d *dbusConnection) LocationUpdates(client dbus.ObjectPath) (<-chan dbus.ObjectPath, error) {
	if err := d.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(client),
		dbus.WithMatchInterface(clientIface),
		dbus.WithMatchMember("LocationUpdated"),
	); err != nil {
		return nil, err
	}

	signals := make(chan *dbus.Signal, 8)
	d.conn.Signal(signals)

	out := make(chan dbus.ObjectPath)
	go pumpLocations(signals, out, d.done)

	return out, nil
}

// pumpLocations forwards location paths from LocationUpdated signals until
// the signal channel or done closes, whichever comes first.
func pumpLocations(signals <-chan *dbus.Signal, out chan<- dbus.ObjectPath, done <-chan struct{}) {
	defer close(out)
	for signal := range signals {
		// LocationUpdated carries the old and the new location path.
		if len(signal.Body) != 2 {
			continue
		}
		location, ok := signal.Body[1].(dbus.ObjectPath)
		if !ok {
			continue
		}
		select {
		case out <- location:
		case <-done:
			return
		}
	}
}

func (d *dbusConnection) ReadLocation(location dbus.ObjectPath) (geo.Coordinate, error) {
	obj := d.conn.Object(busName, location)

	var coords geo.Coordinate
	for _, prop := range []struct {
		name   string
		target *float64
	}{
		{"Latitude", &coords.Lat},
		{"Longitude", &coords.Lon},
		{"Accuracy", &coords.Acc},
	} {
		variant, err := obj.GetProperty(locationIface + "." + prop.name)
		if err != nil {
			return geo.Coordinate{}, fmt.Errorf("failed to read %s property: %w", prop.name, err)
		}
		if err = variant.Store(prop.target); err != nil {
			return geo.Coordinate{}, fmt.Errorf("failed to store %s property: %w", prop.name, err)
		}
	}

	return coords, nil
}

func (d *dbusConnection) Close() error {
	close(d.done)
	return d.conn.Close()
}
