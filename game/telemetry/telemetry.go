// Package telemetry turns session events into metrics: OpenTelemetry counters
// through the global meter provider and, when configured, one InfluxDB point
// per turn.
package telemetry

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wricardo/carreritas/game/session"
)

const instrumentationName = "github.com/wricardo/carreritas/game/telemetry"

// InfluxConfig locates the InfluxDB bucket turn points are written to.
// An empty URL disables the writer.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Recorder is a session observer that records metrics
type Recorder struct {
	events    metric.Int64Counter
	turns     metric.Int64Counter
	forfeits  metric.Int64Counter
	finished  metric.Int64Counter
	gearLevel metric.Int64Histogram

	client influxdb2.Client
	writer influxdb2_api.WriteAPI
}

// New creates a recorder on the global meter provider. The meter is a no-op
// until a provider is installed.
func New(cfg InfluxConfig) (*Recorder, error) {
	return NewWithMeter(otel.Meter(instrumentationName), cfg)
}

// NewWithMeter creates a recorder on the given meter
func NewWithMeter(m metric.Meter, cfg InfluxConfig) (*Recorder, error) {
	r := &Recorder{}

	var err error
	r.events, err = m.Int64Counter(
		"race.events",
		metric.WithDescription("Session events committed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events counter: %w", err)
	}

	r.turns, err = m.Int64Counter(
		"race.turns",
		metric.WithDescription("Turns played"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating turns counter: %w", err)
	}

	r.forfeits, err = m.Int64Counter(
		"race.turns.forfeited",
		metric.WithDescription("Turns forfeited because the destination was off the track"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating forfeits counter: %w", err)
	}

	r.finished, err = m.Int64Counter(
		"race.sessions.finished",
		metric.WithDescription("Sessions finished with at least one winner"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating finished counter: %w", err)
	}

	r.gearLevel, err = m.Int64Histogram(
		"race.turns.gear",
		metric.WithDescription("Gear after each turn"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gear histogram: %w", err)
	}

	if cfg.URL != "" {
		r.client = influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
			influxdb2.DefaultOptions().
				SetBatchSize(500).
				SetFlushInterval(1000),
		)
		r.writer = r.client.WriteAPI(cfg.Org, cfg.Bucket)
		go r.logWriteErrors(r.writer.Errors())
		log.Info().Str("url", cfg.URL).Str("bucket", cfg.Bucket).Msg("influxdb turn writer enabled")
	}

	return r, nil
}

// OnEvent implements session.Observer
func (r *Recorder) OnEvent(event session.Event) {
	ctx := context.Background()
	typeAttr := attribute.String("type", string(event.Type))
	trackAttr := attribute.String("track", event.Track)

	r.events.Add(ctx, 1, metric.WithAttributes(typeAttr, trackAttr))

	switch event.Type {
	case session.EventTurnApplied:
		if event.Outcome == nil {
			return
		}
		r.turns.Add(ctx, 1, metric.WithAttributes(trackAttr))
		if !event.Outcome.Applied {
			r.forfeits.Add(ctx, 1, metric.WithAttributes(trackAttr))
		}
		r.gearLevel.Record(ctx, int64(event.Outcome.Gear), metric.WithAttributes(trackAttr))
		r.writeTurn(event)
	case session.EventSessionFinished:
		r.finished.Add(ctx, 1, metric.WithAttributes(trackAttr))
	}
}

// Close flushes pending points and closes the InfluxDB client
func (r *Recorder) Close() {
	if r.client == nil {
		return
	}
	r.writer.Flush()
	r.client.Close()
}

// TurnPoint builds the InfluxDB point for a turn event. Tags are added in key order.
func TurnPoint(event session.Event) *influxdb2_write.Point {
	o := event.Outcome
	return influxdb2.NewPointWithMeasurement("turn").
		AddTag("game", event.SessionID).
		AddTag("player", o.PlayerID).
		AddTag("track", event.Track).
		AddField("round", event.Round).
		AddField("turns_played", o.TurnsPlayed).
		AddField("applied", o.Applied).
		AddField("gear", o.Gear).
		AddField("heading", o.Heading).
		AddField("x", o.Position.X).
		AddField("y", o.Position.Y).
		SetTime(timestamp(event))
}

func (r *Recorder) writeTurn(event session.Event) {
	if r.writer == nil {
		return
	}
	r.writer.WritePoint(TurnPoint(event))
}

func (r *Recorder) logWriteErrors(errs <-chan error) {
	for err := range errs {
		log.Warn().Err(err).Msg("influxdb write failed")
	}
}

func timestamp(event session.Event) time.Time {
	if event.Timestamp.IsZero() {
		return time.Now()
	}
	return event.Timestamp
}
