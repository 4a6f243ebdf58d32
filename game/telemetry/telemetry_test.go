package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/wricardo/carreritas/game/engine"
	"github.com/wricardo/carreritas/game/session"
)

func turnEvent() session.Event {
	return session.Event{
		Type:      session.EventTurnApplied,
		SessionID: "ab12",
		Track:     "hairpin",
		Round:     3,
		Outcome: &engine.TurnOutcome{
			PlayerID:    "ana",
			Applied:     false,
			Gear:        2,
			Heading:     90,
			Position:    engine.Position{X: 40, Y: 94},
			TurnsPlayed: 4,
		},
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestTurnPoint(t *testing.T) {
	p := TurnPoint(turnEvent())

	assert.Equal(t, "turn", p.Name())
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), p.Time())

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	assert.Equal(t, map[string]string{"game": "ab12", "track": "hairpin", "player": "ana"}, tags)

	fields := map[string]any{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	assert.Equal(t, false, fields["applied"])
	assert.EqualValues(t, 2, fields["gear"])
	assert.EqualValues(t, 94, fields["y"])
	assert.EqualValues(t, 4, fields["turns_played"])
}

func TestRecorder_NoInflux(t *testing.T) {
	r, err := NewWithMeter(noop.Meter{}, InfluxConfig{})
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		r.OnEvent(turnEvent())
		r.OnEvent(session.Event{Type: session.EventSessionFinished})
		r.OnEvent(session.Event{Type: session.EventTurnApplied})
		r.Close()
	})
}

func TestRecorder_GlobalMeter(t *testing.T) {
	r, err := New(InfluxConfig{})
	require.NoError(t, err)
	r.OnEvent(turnEvent())
}

func TestRecorder_WritesTurnPoints(t *testing.T) {
	var mu sync.Mutex
	var bodies []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v2/write" {
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			bodies = append(bodies, string(body))
			mu.Unlock()
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	r, err := NewWithMeter(noop.Meter{}, InfluxConfig{URL: srv.URL, Token: "t", Org: "race", Bucket: "turns"})
	require.NoError(t, err)

	r.OnEvent(turnEvent())
	r.OnEvent(session.Event{Type: session.EventRoundAdvanced, SessionID: "ab12"})
	r.Close()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(bodies) > 0
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	all := strings.Join(bodies, "\n")
	assert.Contains(t, all, "turn,game=ab12,player=ana,track=hairpin")
	assert.Contains(t, all, "applied=false")
	assert.Equal(t, 1, strings.Count(all, "turn,"))
}
