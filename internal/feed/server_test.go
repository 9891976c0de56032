package feed

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexlipsync/internal/bus"
	"github.com/normanking/cortexlipsync/internal/lipsync"
	"github.com/normanking/cortexlipsync/internal/logging"
	"github.com/normanking/cortexlipsync/internal/timing"
)

type harness struct {
	server *Server
	http   *httptest.Server
	clock  *lipsync.StepClock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := lipsync.NewStepClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	b := bus.NewEventBus()
	engine := lipsync.New(lipsync.DefaultConfig(), zerolog.Nop(), lipsync.WithClock(clock), lipsync.WithBus(b))
	s := New(engine, b, 60, zerolog.Nop())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return &harness{server: s, http: ts, clock: clock}
}

func (h *harness) post(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(h.http.URL+path, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (h *harness) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return h.server.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHealth(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.http.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "idle", body["state"])
}

func TestSpeak_StartsUtterance(t *testing.T) {
	h := newHarness(t)

	resp := h.post(t, "/speak", SpeakRequest{Text: "こんにちは", Language: "ja", DurationMs: 1000})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out SpeakResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, "ja", out.Language)
	assert.True(t, out.Speakable)
	assert.Equal(t, 5, out.Units)
	assert.Equal(t, int64(1000), out.DurationMs)

	h.clock.Advance(16 * time.Millisecond)
	f := h.server.Tick()
	assert.Equal(t, lipsync.SourceEstimated, f.SourceMode)
	assert.Equal(t, "こ", f.ActiveUnitText)
}

func TestSpeak_RawPCMAndHostID(t *testing.T) {
	h := newHarness(t)
	pcm := make([]byte, 2*24000/2)
	for i := 0; i < len(pcm); i += 2 {
		v := int16(10000 * math.Sin(2*math.Pi*220*float64(i/2)/24000))
		pcm[i], pcm[i+1] = byte(v), byte(v>>8)
	}

	resp := h.post(t, "/speak", SpeakRequest{ID: "turn-7", Text: "hello", Language: "en", Audio: pcm, SampleRate: 24000})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out SpeakResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "turn-7", out.ID)
	assert.True(t, out.Live)
	assert.Equal(t, int64(500), out.DurationMs)

	h.clock.Advance(16 * time.Millisecond)
	f := h.server.Tick()
	assert.Equal(t, lipsync.SourceLive, f.SourceMode)
}

func TestSpeak_Rejects(t *testing.T) {
	h := newHarness(t)

	resp := h.post(t, "/speak", SpeakRequest{Text: "bonjour", Language: "fr"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	bad, err := http.Post(h.http.URL+"/speak", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)

	get, err := http.Get(h.http.URL + "/speak")
	require.NoError(t, err)
	get.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, get.StatusCode)
}

func TestTimeline(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.http.URL + "/timeline")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	h.post(t, "/speak", SpeakRequest{Text: "Hello world.", Language: "en", DurationMs: 1200})

	resp, err = http.Get(h.http.URL + "/timeline")
	require.NoError(t, err)
	defer resp.Body.Close()

	var tl timing.VisemeTimeline
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tl))
	require.NotEmpty(t, tl.Events)
	assert.Equal(t, 1200.0, tl.Duration)
	assert.Equal(t, 0.0, tl.Events[0].Time)
}

func TestBoundaryAndCancel(t *testing.T) {
	h := newHarness(t)
	h.post(t, "/speak", SpeakRequest{Text: "Hello big world.", Language: "en", Synthetic: true, DurationMs: 3000})

	h.clock.Advance(80 * time.Millisecond)
	require.Equal(t, "Hello", h.server.Tick().ActiveUnitText)

	resp := h.post(t, "/boundary", BoundaryRequest{CharIndex: 10})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	h.clock.Advance(16 * time.Millisecond)
	assert.Equal(t, "world", h.server.Tick().ActiveUnitText)

	resp = h.post(t, "/cancel", struct{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "draining", out["state"])
}

func TestFinishEndsSyntheticSpeech(t *testing.T) {
	h := newHarness(t)
	h.post(t, "/speak", SpeakRequest{Text: "hi", Language: "en", Synthetic: true})

	h.clock.Advance(time.Second)
	require.Equal(t, lipsync.StateDriving, h.server.Tick().State)

	resp := h.post(t, "/finish", struct{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	h.clock.Advance(time.Second)
	assert.Equal(t, lipsync.StateIdle, h.server.Tick().State)
}

func TestWebSocket_StreamsFramesAndEvents(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)

	h.post(t, "/speak", SpeakRequest{Text: "こんにちは", Language: "ja", DurationMs: 1000})
	h.clock.Advance(16 * time.Millisecond)
	h.server.Tick()

	var gotFrame, gotStarted bool
	for i := 0; i < 10 && !(gotFrame && gotStarted); i++ {
		msg := readMessage(t, conn)
		switch msg.Type {
		case "frame":
			require.NotNil(t, msg.Frame)
			assert.Equal(t, lipsync.SourceEstimated, msg.Frame.SourceMode)
			gotFrame = true
		case "event":
			require.NotNil(t, msg.Event)
			if msg.Event.Type == bus.EventTypeUtteranceStarted {
				gotStarted = true
			}
		}
	}
	assert.True(t, gotFrame, "frame received")
	assert.True(t, gotStarted, "utterance_started forwarded")
}

func TestWebSocket_EventsArriveInOrder(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)

	h.post(t, "/speak", SpeakRequest{Text: "hello", Language: "en", DurationMs: 200})
	var last lipsync.Frame
	for i := 0; i < 40 && last.State != lipsync.StateIdle; i++ {
		h.clock.Advance(16 * time.Millisecond)
		last = h.server.Tick()
	}
	require.Equal(t, lipsync.StateIdle, last.State)

	var events []bus.EventType
	for len(events) < 4 {
		msg := readMessage(t, conn)
		if msg.Type == "event" {
			events = append(events, msg.Event.Type)
		}
	}
	assert.Equal(t, []bus.EventType{
		bus.EventTypeUtteranceStarted,
		bus.EventTypeSourceChanged,
		bus.EventTypeUtteranceDraining,
		bus.EventTypeUtteranceIdle,
	}, events)
}

func TestWebSocket_IdleFramesSentOnce(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)

	for i := 0; i < 3; i++ {
		h.clock.Advance(16 * time.Millisecond)
		h.server.Tick()
	}
	h.post(t, "/speak", SpeakRequest{Text: "hello", Language: "en", DurationMs: 500})
	h.clock.Advance(16 * time.Millisecond)
	h.server.Tick()

	idle := 0
	for {
		msg := readMessage(t, conn)
		if msg.Type != "frame" {
			continue
		}
		if msg.Frame.State == lipsync.StateIdle {
			idle++
			continue
		}
		break
	}
	assert.Equal(t, 1, idle)
}

func TestWebSocket_DisconnectRemovesClient(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t)

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return h.server.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "cortex_lipsync_feed_clients")
}

func TestLogs(t *testing.T) {
	h := newHarness(t)

	resp, err := http.Get(h.http.URL + "/logs")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	l, err := logging.New(&logging.Config{Level: logging.LevelInfo, MaxHistory: 10})
	require.NoError(t, err)
	h.server.StreamLogs(l)
	conn := h.dial(t)

	engine := l.Component("engine")
	engine.Info().Msg("utterance started")

	msg := readMessage(t, conn)
	require.Equal(t, "log", msg.Type)
	assert.Equal(t, "utterance started", msg.Log.Message)

	resp, err = http.Get(h.http.URL + "/logs?limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	var entries []logging.LogEntry
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "engine", entries[0].Component)
}
