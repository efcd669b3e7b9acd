// Copyright 2026 The Terrier Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Config holds metrics configuration
type Config struct {
	Enabled bool
}

// Meter wraps OpenTelemetry meter
type Meter struct {
	meter metric.Meter
}

// New creates a new meter instance
func New(ctx context.Context, cfg Config, serviceName string) (*Meter, error) {
	if !cfg.Enabled {
		return NewNoop(), nil
	}

	// Exporters are configured on the global provider
	return &Meter{
		meter: otel.Meter(serviceName),
	}, nil
}

// NewNoop returns a meter whose instruments record nothing
func NewNoop() *Meter {
	return &Meter{meter: noop.NewMeterProvider().Meter("noop")}
}

// GetMeter returns the underlying meter
func (m *Meter) GetMeter() metric.Meter {
	return m.meter
}

// CreateCounter creates a new counter metric
func (m *Meter) CreateCounter(name, description string) (metric.Int64Counter, error) {
	counter, err := m.meter.Int64Counter(
		name,
		metric.WithDescription(description),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return counter, nil
}

// CreateHistogram creates a new histogram metric
func (m *Meter) CreateHistogram(name, description, unit string) (metric.Float64Histogram, error) {
	histogram, err := m.meter.Float64Histogram(
		name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	return histogram, nil
}

// Instruments are the measurements recorded by the request pipeline
type Instruments struct {
	// AuthzDecisions counts resolver outcomes, labelled by outcome and role.
	AuthzDecisions metric.Int64Counter
	// UsersProvisioned counts just-in-time user inserts.
	UsersProvisioned metric.Int64Counter
	// ResolveDuration measures role resolution latency in milliseconds.
	ResolveDuration metric.Float64Histogram
}

// Instruments creates the pipeline instruments on this meter
func (m *Meter) Instruments() (*Instruments, error) {
	decisions, err := m.CreateCounter("terrier.authz.decisions", "Authorization decisions by outcome")
	if err != nil {
		return nil, err
	}
	provisioned, err := m.CreateCounter("terrier.identity.provisioned", "Users created by identity sync")
	if err != nil {
		return nil, err
	}
	duration, err := m.CreateHistogram("terrier.authz.resolve.duration", "Role resolution latency", "ms")
	if err != nil {
		return nil, err
	}
	return &Instruments{
		AuthzDecisions:   decisions,
		UsersProvisioned: provisioned,
		ResolveDuration:  duration,
	}, nil
}
