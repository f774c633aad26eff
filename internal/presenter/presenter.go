// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

// Package presenter renders the current position and the ranked location
// list for terminal output.
package presenter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"github.com/vorlif/humanize"
	"github.com/vorlif/humanize/locale/ko"
	"github.com/vorlif/spreak"
	"golang.org/x/text/language"

	"github.com/fieldsync/fieldsync/internal/geocode"
	"github.com/fieldsync/fieldsync/internal/posbus"
	"github.com/fieldsync/fieldsync/internal/rank"
)

// DefaultStatusTemplate is the built-in text template for status output.
const DefaultStatusTemplate = `{{ loc "Current position" }}: {{ if .HasPosition }}{{ floatFormat .Latitude 6 }}, {{ floatFormat .Longitude 6 }}{{ with .Address }} ({{ . }}){{ end }}{{ else }}{{ loc "No position available" }}{{ end }}{{ with .Fault }} [{{ . }}]{{ end }}
{{ loc "Saved locations" }}:
{{- if not .Locations }}
  {{ loc "No saved locations" }}
{{- end }}
{{- range .Locations }}
  {{ pad .Name 24 }} {{ pad (distance .) 8 }}{{ if .Nearby }} ({{ loc "nearby" }}){{ end }}{{ if .Recent }} ({{ loc "recent" }}){{ end }}
{{- end }}
`

// LocationView wraps a ranked location with presentation-related fields.
type LocationView struct {
	rank.RankedLocation

	Recent bool
}

// StatusContext is the data rendered by the status template.
type StatusContext struct {
	HasPosition bool
	Latitude    float64
	Longitude   float64
	Accuracy    float64
	Address     string
	Fault       string
	UpdatedAt   time.Time
	Locations   []LocationView
}

type statusJSON struct {
	Position  *positionJSON  `json:"position"`
	Fault     string         `json:"fault,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Locations []locationJSON `json:"locations"`
}

type positionJSON struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
	Address   string  `json:"address,omitempty"`
}

type locationJSON struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Address        string   `json:"address,omitempty"`
	DistanceMeters *float64 `json:"distanceMeters,omitempty"`
	Nearby         bool     `json:"nearby"`
	Recent         bool     `json:"recent"`
}

type Presenter struct {
	text      *template.Template
	localizer *spreak.Localizer
	humanizer *humanize.Humanizer
}

// New parses the status template and prepares the localization helpers. The
// template is validated by rendering it with sample data, so broken templates
// surface at startup instead of on the first status tick.
func New(templateText string, localizer *spreak.Localizer, tag language.Tag) (*Presenter, error) {
	collection := humanize.MustNew(humanize.WithLocale(ko.New()))
	presenter := &Presenter{
		localizer: localizer,
		humanizer: collection.CreateHumanizer(tag),
	}

	if templateText == "" {
		templateText = DefaultStatusTemplate
	}
	text, err := template.New("status").Funcs(presenter.templateFuncMap()).Parse(templateText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse status template: %w", err)
	}
	presenter.text = text

	if _, err = presenter.Render(sampleContext()); err != nil {
		return nil, fmt.Errorf("failed to render status template: %w", err)
	}

	return presenter, nil
}

// BuildContext assembles a StatusContext from the bus state, the resolved
// address and the ranked location list.
func (p *Presenter) BuildContext(position *posbus.Fix, fault *posbus.Fault, addr geocode.Address,
	ranked []rank.RankedLocation, recentIDs []string,
) StatusContext {
	ctx := StatusContext{UpdatedAt: time.Now()}
	if position != nil {
		ctx.HasPosition = true
		ctx.Latitude = position.Coordinate.Lat
		ctx.Longitude = position.Coordinate.Lon
		ctx.Accuracy = position.Coordinate.Acc
		ctx.Address = addr.Short()
	}
	if fault != nil {
		ctx.Fault = p.FaultText(fault.Reason)
	}

	recent := make(map[string]struct{}, len(recentIDs))
	for _, id := range recentIDs {
		recent[id] = struct{}{}
	}
	ctx.Locations = make([]LocationView, 0, len(ranked))
	for _, location := range ranked {
		_, isRecent := recent[location.ID]
		ctx.Locations = append(ctx.Locations, LocationView{
			RankedLocation: location,
			Recent:         isRecent,
		})
	}

	return ctx
}

// Render renders the status context with the text template.
func (p *Presenter) Render(ctx StatusContext) (string, error) {
	var buffer bytes.Buffer
	if err := p.text.Execute(&buffer, ctx); err != nil {
		return "", fmt.Errorf("failed to execute status template: %w", err)
	}
	return buffer.String(), nil
}

// RenderJSON renders the status context as a JSON document.
func (p *Presenter) RenderJSON(ctx StatusContext) (string, error) {
	doc := statusJSON{
		Fault:     ctx.Fault,
		UpdatedAt: ctx.UpdatedAt,
		Locations: make([]locationJSON, 0, len(ctx.Locations)),
	}
	if ctx.HasPosition {
		doc.Position = &positionJSON{
			Latitude:  ctx.Latitude,
			Longitude: ctx.Longitude,
			Accuracy:  ctx.Accuracy,
			Address:   ctx.Address,
		}
	}
	for _, location := range ctx.Locations {
		entry := locationJSON{
			ID:      location.ID,
			Name:    location.Name,
			Address: location.Address,
			Nearby:  location.Nearby(),
			Recent:  location.Recent,
		}
		if location.Distance.IsSet() {
			meters := location.Distance.Value()
			entry.DistanceMeters = &meters
		}
		doc.Locations = append(doc.Locations, entry)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal status to JSON: %w", err)
	}
	return string(data), nil
}

// FaultText returns the localized description for a positioning fault.
func (p *Presenter) FaultText(reason posbus.Reason) string {
	switch reason {
	case posbus.ReasonPermissionDenied:
		return p.localizer.Get("Positioning permission denied")
	case posbus.ReasonTimeout:
		return p.localizer.Get("Positioning timed out")
	default:
		return p.localizer.Get("Positioning unavailable")
	}
}

func sampleContext() StatusContext {
	return StatusContext{
		HasPosition: true,
		Latitude:    37.5665,
		Longitude:   126.978,
		UpdatedAt:   time.Now(),
		Locations:   []LocationView{{}},
	}
}
