// Package ingest turns raw distance payloads into stored readings.
package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	domain "github.com/oshokin/proximity-alarm/internal/domain/alarm"
	"github.com/oshokin/proximity-alarm/internal/logger"
	"github.com/oshokin/proximity-alarm/internal/metrics"
	"github.com/oshokin/proximity-alarm/internal/repository/store"
)

// Evaluator receives every accepted reading.
type Evaluator interface {
	Evaluate(ctx context.Context, reading domain.Reading) domain.Decision
}

// Ingester validates, stores and forwards distance readings.
type Ingester struct {
	// readings stores accepted readings.
	readings store.ReadingStore
	// evaluator decides on breaches.
	evaluator Evaluator
	// maxMeters is the exclusive upper bound of a plausible reading.
	maxMeters float64
	// metrics counts outcomes, may be nil.
	metrics *metrics.Metrics
	// now returns the reception time.
	now func() time.Time
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithMetrics records reading outcomes and store failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Ingester) {
		i.metrics = m
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(i *Ingester) {
		if now != nil {
			i.now = now
		}
	}
}

// New creates an Ingester accepting readings in (0, maxMeters).
func New(readings store.ReadingStore, evaluator Evaluator, maxMeters float64, opts ...Option) *Ingester {
	i := &Ingester{
		readings:  readings,
		evaluator: evaluator,
		maxMeters: maxMeters,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// Ingest parses payload as meters, stores the reading and forwards it to the evaluator.
// A store failure is logged and counted; the reading is still evaluated.
func (i *Ingester) Ingest(ctx context.Context, payload string) (domain.Reading, error) {
	raw := strings.TrimSpace(payload)

	meters, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		i.metrics.Reading(metrics.ReadingMalformed)

		return domain.Reading{}, fmt.Errorf("%w: %q", domain.ErrMalformedPayload, payload)
	}

	// The negated form also rejects NaN.
	if !(meters > 0 && meters < i.maxMeters) {
		i.metrics.Reading(metrics.ReadingOutOfRange)
		logger.DebugKV(ctx, "Reading filtered", "meters", meters)

		return domain.Reading{}, fmt.Errorf("%w: %g m", domain.ErrOutOfRangeReading, meters)
	}

	reading := domain.NewReading(meters, i.now())
	i.metrics.Reading(metrics.ReadingAccepted)

	if err = i.readings.AppendReading(ctx, reading); err != nil {
		i.metrics.StoreError("append_reading")
		logger.ErrorKV(ctx, "Failed to store reading",
			"distance_cm", reading.ValueCM,
			"error", fmt.Errorf("%w: %w", domain.ErrPersistence, err))
	}

	decision := i.evaluator.Evaluate(ctx, reading)
	logger.DebugKV(ctx, "Reading processed", "distance_cm", reading.ValueCM, "decision", decision)

	return reading, nil
}
