// ITDash - IT Operations Dashboard Real-Time Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/itdash

package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/itdash/internal/config"
	"github.com/tomtom215/itdash/internal/eventprocessor"
	"github.com/tomtom215/itdash/internal/events"
	"github.com/tomtom215/itdash/internal/logging"
	"github.com/tomtom215/itdash/internal/metrics"
)

// Job produces the data of one collector event.
type Job struct {
	Event events.Event
	Fetch func(ctx context.Context) (any, error)
}

// Jobs returns the Zabbix jobs enabled by cfg. Jobs without configured
// hosts or groups are left out.
func Jobs(api ZabbixAPI, cfg config.ZabbixConfig) []Job {
	var jobs []Job
	if len(cfg.ProviderHostIDs) > 0 {
		jobs = append(jobs, Job{
			Event: events.EventProviderInfo,
			Fetch: func(ctx context.Context) (any, error) {
				return api.Items(ctx, cfg.ProviderHostIDs, cfg.ProviderItemKeys)
			},
		})
	}
	if len(cfg.HardwareGroupIDs) > 0 {
		jobs = append(jobs, Job{
			Event: events.EventHardwareGroupAlarm,
			Fetch: func(ctx context.Context) (any, error) {
				return api.Problems(ctx, cfg.HardwareGroupIDs)
			},
		})
	}
	if len(cfg.AvayaHostIDs) > 0 {
		jobs = append(jobs, Job{
			Event: events.EventAvayaE1ChannelInfo,
			Fetch: func(ctx context.Context) (any, error) {
				return api.Items(ctx, cfg.AvayaHostIDs, cfg.AvayaItemKeys)
			},
		})
	}
	return jobs
}

// Sink receives encoded collector results.
type Sink interface {
	Deliver(ctx context.Context, ev events.Event, payload []byte) error
}

// PublisherSink publishes results to <prefix>.<event>.
type PublisherSink struct {
	pub    *eventprocessor.Publisher
	prefix string
}

// NewPublisherSink creates a sink over pub.
func NewPublisherSink(pub *eventprocessor.Publisher, prefix string) *PublisherSink {
	return &PublisherSink{pub: pub, prefix: prefix}
}

// Deliver implements Sink.
func (s *PublisherSink) Deliver(ctx context.Context, ev events.Event, payload []byte) error {
	return s.pub.PublishPayload(ctx, eventprocessor.CollectorSubject(s.prefix, string(ev)), payload)
}

// FuncSink hands results to a function, typically Router.OnScheduledResult.
type FuncSink func(ctx context.Context, raw []byte)

// Deliver implements Sink.
func (f FuncSink) Deliver(ctx context.Context, _ events.Event, payload []byte) error {
	f(ctx, payload)
	return nil
}

// Scheduler runs every job at start and then once per interval.
type Scheduler struct {
	jobs     []Job
	sink     Sink
	interval time.Duration
}

// NewScheduler creates a scheduler. A non-positive interval means one minute.
func NewScheduler(jobs []Job, sink Sink, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{jobs: jobs, sink: sink, interval: interval}
}

// String implements fmt.Stringer.
func (s *Scheduler) String() string {
	return "collector-scheduler"
}

// Serve runs until ctx is cancelled.
func (s *Scheduler) Serve(ctx context.Context) error {
	logging.Info().Int("jobs", len(s.jobs)).Dur("interval", s.interval).Msg("Collector scheduler started")

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs every job sequentially and returns how many delivered.
func (s *Scheduler) RunOnce(ctx context.Context) int {
	delivered := 0
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			break
		}
		if err := s.run(ctx, job); err != nil {
			logging.Error().Err(err).Str("event", string(job.Event)).Msg("Collector run failed")
			continue
		}
		delivered++
	}
	return delivered
}

func (s *Scheduler) run(ctx context.Context, job Job) (err error) {
	start := time.Now()
	defer func() { metrics.RecordCollectorRun(string(job.Event), time.Since(start), err) }()

	data, err := job.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	payload, err := encodeResult(job.Event, data)
	if err != nil {
		return err
	}
	if err := s.sink.Deliver(ctx, job.Event, payload); err != nil {
		return fmt.Errorf("deliver: %w", err)
	}
	return nil
}

func encodeResult(ev events.Event, data any) ([]byte, error) {
	payload, err := json.Marshal(struct {
		Event events.Event `json:"event"`
		Data  any          `json:"data"`
	}{ev, data})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev, err)
	}
	return payload, nil
}
