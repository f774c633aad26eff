// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

// Package service wires the positioning pipeline, the saved locations and
// the report composer together and periodically renders the status view.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/vorlif/spreak"
	"golang.org/x/text/language"

	"github.com/fieldsync/fieldsync/internal/config"
	"github.com/fieldsync/fieldsync/internal/geocode"
	"github.com/fieldsync/fieldsync/internal/history"
	"github.com/fieldsync/fieldsync/internal/logger"
	"github.com/fieldsync/fieldsync/internal/persist"
	"github.com/fieldsync/fieldsync/internal/posbus"
	"github.com/fieldsync/fieldsync/internal/presenter"
	"github.com/fieldsync/fieldsync/internal/report"
	"github.com/fieldsync/fieldsync/internal/store"
)

const (
	subscriberBuffer = 32

	cacheHitTTL    = time.Hour * 6
	cacheMissTTL   = time.Minute * 15
	geocodeTimeout = time.Second * 10
)

type Service struct {
	config    *config.Config
	logger    *logger.Logger
	t         *spreak.Localizer
	presenter *presenter.Presenter

	bus          *posbus.Bus
	orchestrator *posbus.Orchestrator
	scheduler    gocron.Scheduler

	geocoder geocode.Geocoder
	searcher geocode.Searcher

	locations *store.Store
	history   *history.History
	composer  *report.Composer

	output io.Writer

	positionLock sync.RWMutex
	position     *posbus.Fix
	address      geocode.Address
}

func New(conf *config.Config, log *logger.Logger, t *spreak.Localizer) (*Service, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	pres, err := presenter.New(conf.Templates.Status, t, language.Make(conf.Locale))
	if err != nil {
		return nil, fmt.Errorf("failed to create presenter: %w", err)
	}

	files, err := persist.NewFileStore(conf.Storage.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage directory: %w", err)
	}
	locations, err := store.New(files, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load saved locations: %w", err)
	}
	hist, err := history.New(files, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load report history: %w", err)
	}

	service := &Service{
		config:    conf,
		logger:    log,
		t:         t,
		presenter: pres,
		bus:       posbus.New(log),
		scheduler: scheduler,
		locations: locations,
		history:   hist,
		output:    os.Stdout,
	}

	sharer, err := service.selectSharer()
	if err != nil {
		return nil, fmt.Errorf("failed to create report sharer: %w", err)
	}
	service.composer = report.NewComposer(sharer, hist, t.Get("Arrived"))

	return service, nil
}

func (s *Service) Run(ctx context.Context) error {
	geocoder, searcher, err := s.selectGeocodeProvider()
	if err != nil {
		return fmt.Errorf("failed to create geocode provider: %w", err)
	}
	s.geocoder = geocoder
	s.searcher = searcher

	providers, err := s.selectPositionProviders()
	if err != nil {
		return fmt.Errorf("failed to create position orchestrator: %w", err)
	}
	s.orchestrator = s.bus.NewOrchestrator(providers)

	// Start scheduled jobs
	if err = s.createScheduledJob(ctx, s.config.Intervals.Status, s.printStatus,
		"status_output_job"); err != nil {
		return err
	}
	s.scheduler.Start()

	// Subscribe to position updates from the posbus
	sub, unsub := s.bus.Subscribe(subscriberBuffer)
	go s.processPositionEvents(ctx, sub)
	go s.orchestrator.Track(ctx)

	// Wait for the context to cancel
	<-ctx.Done()
	if unsub != nil {
		unsub()
	}
	return s.scheduler.Shutdown()
}

func (s *Service) createScheduledJob(ctx context.Context, interval time.Duration, task func(context.Context),
	jobName string,
) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithContext(ctx),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(jobName),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", jobName, err)
	}
	return nil
}

// processPositionEvents consumes bus events, resolves the address of newly
// accepted fixes and reprints the status on every change.
func (s *Service) processPositionEvents(ctx context.Context, sub <-chan posbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-sub:
			if !ok {
				return
			}
			if event.Fix != nil {
				s.logger.Debug("received position update",
					slog.Float64("lat", event.Fix.Coordinate.Lat),
					slog.Float64("lon", event.Fix.Coordinate.Lon),
					slog.String("source", event.Fix.Source))
				s.updatePosition(ctx, *event.Fix)
			}
			s.printStatus(ctx)
		}
	}
}

// updatePosition stores the fix as the current position and resolves its
// address. The address lookup is best-effort, a failure leaves the position
// in place without one.
func (s *Service) updatePosition(ctx context.Context, fix posbus.Fix) {
	var address geocode.Address
	if s.geocoder != nil {
		ctxLookup, cancelLookup := context.WithTimeout(ctx, geocodeTimeout)
		defer cancelLookup()
		resolved, err := s.geocoder.Reverse(ctxLookup, fix.Coordinate)
		if err != nil {
			s.logger.Error("failed to resolve address", logger.Err(err),
				slog.String("source", fix.Source))
		} else {
			address = resolved
		}
	}

	s.positionLock.Lock()
	s.position = &fix
	s.address = address
	s.positionLock.Unlock()
}

// printStatus renders the current status view to the output writer.
func (s *Service) printStatus(context.Context) {
	statusCtx := s.statusContext()

	var rendered string
	var err error
	switch s.config.Output {
	case "json":
		rendered, err = s.presenter.RenderJSON(statusCtx)
		rendered += "\n"
	default:
		rendered, err = s.presenter.Render(statusCtx)
	}
	if err != nil {
		s.logger.Error("failed to render status", logger.Err(err))
		return
	}

	if _, err = io.WriteString(s.output, rendered); err != nil {
		s.logger.Error("failed to write status output", logger.Err(err))
	}
}

func (s *Service) statusContext() presenter.StatusContext {
	s.positionLock.RLock()
	position := s.position
	address := s.address
	s.positionLock.RUnlock()

	var fault *posbus.Fault
	if lastFault, ok := s.bus.LastFault(); ok {
		fault = &lastFault
	}

	return s.presenter.BuildContext(position, fault, address, s.Ranked(), s.history.IDs())
}

// Position returns the current stable position, if one is known.
func (s *Service) Position() (posbus.Fix, bool) {
	s.positionLock.RLock()
	defer s.positionLock.RUnlock()
	if s.position == nil {
		return posbus.Fix{}, false
	}
	return *s.position, true
}
