// Package feed runs the engine's frame loop headlessly and streams frames to
// rendering clients over WebSocket, with a small HTTP control surface for the
// host application.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/normanking/cortexlipsync/internal/audio"
	"github.com/normanking/cortexlipsync/internal/bus"
	"github.com/normanking/cortexlipsync/internal/lipsync"
	"github.com/normanking/cortexlipsync/internal/logging"
	"github.com/normanking/cortexlipsync/internal/metrics"
	"github.com/normanking/cortexlipsync/internal/timing"
	"github.com/normanking/cortexlipsync/internal/viseme"
)

const (
	defaultFPS   = 60
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
	maxBodySize  = 16 << 20 // encoded clips
)

// Message is one WebSocket payload.
type Message struct {
	Type  string            `json:"type"` // "frame", "event" or "log"
	Frame *lipsync.Frame    `json:"frame,omitempty"`
	Event *bus.Event        `json:"event,omitempty"`
	Log   *logging.LogEntry `json:"log,omitempty"`
}

// SpeakRequest is the body of POST /speak. SampleRate and BitDepth are set
// when Audio is headerless PCM.
type SpeakRequest struct {
	ID         string `json:"id,omitempty"`
	Text       string `json:"text"`
	Language   string `json:"language,omitempty"`
	Audio      []byte `json:"audio,omitempty"` // base64 in JSON
	SampleRate int    `json:"sampleRate,omitempty"`
	BitDepth   int    `json:"bitDepth,omitempty"`
	Synthetic  bool   `json:"synthetic,omitempty"`
	DurationMs int    `json:"durationMs,omitempty"`
}

// SpeakResponse summarizes the started utterance.
type SpeakResponse struct {
	ID         string `json:"id"`
	Language   string `json:"language"`
	Speakable  bool   `json:"speakable"`
	Live       bool   `json:"live"`
	Units      int    `json:"units"`
	DurationMs int64  `json:"durationMs"`
}

// BoundaryRequest is the body of POST /boundary.
type BoundaryRequest struct {
	CharIndex int `json:"charIndex"`
}

// Server owns the frame loop and the connected clients.
type Server struct {
	engine   *lipsync.Engine
	table    *viseme.Table
	bus      *bus.EventBus
	logger   zerolog.Logger
	fps      int
	upgrader websocket.Upgrader
	logs     *logging.Logger

	mu       sync.RWMutex
	clients  map[*client]bool
	lastIdle bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// New creates a feed server for engine. Events published on b are forwarded
// to clients; b may be nil.
func New(engine *lipsync.Engine, b *bus.EventBus, fps int, logger zerolog.Logger) *Server {
	if fps <= 0 {
		fps = defaultFPS
	}
	s := &Server{
		engine: engine,
		table:  viseme.NewTable(),
		bus:    b,
		logger: logger,
		fps:    fps,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]bool),
	}
	if b != nil {
		b.SubscribeMultiple(bus.AllEventTypes, s.forward)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/speak", s.handleSpeak)
	mux.HandleFunc("/cancel", s.handleCancel)
	mux.HandleFunc("/finish", s.handleFinish)
	mux.HandleFunc("/boundary", s.handleBoundary)
	mux.HandleFunc("/timeline", s.handleTimeline)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/logs", s.handleLogs)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// StreamLogs forwards l's entries to clients and serves its history at
// /logs.
func (s *Server) StreamLogs(l *logging.Logger) {
	s.mu.Lock()
	s.logs = l
	s.mu.Unlock()
	l.SetOnLog(func(e logging.LogEntry) {
		s.broadcast(Message{Type: "log", Log: &e})
	})
}

// Run drives the frame loop until ctx is done.
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second / time.Duration(s.fps))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick polls one frame and broadcasts it. Consecutive idle frames are sent
// once.
func (s *Server) Tick() lipsync.Frame {
	f := s.engine.Frame()

	idle := f.State == lipsync.StateIdle
	s.mu.Lock()
	repeat := idle && s.lastIdle
	s.lastIdle = idle
	s.mu.Unlock()

	if !repeat {
		s.broadcast(Message{Type: "frame", Frame: &f})
	}
	return f
}

// ListenAndServe serves on addr and runs the frame loop until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	loopCtx, stop := context.WithCancel(ctx)
	defer stop()
	go s.Run(loopCtx)

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Int("fps", s.fps).Msg("feed server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeClients()
		return httpServer.Shutdown(shutdownCtx)
	}
}

// Clients returns the number of connected WebSocket clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) forward(e bus.Event) {
	s.broadcast(Message{Type: "event", Event: &e})
}

func (s *Server) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error().Err(err).Str("type", msg.Type).Msg("encode feed message")
		return
	}

	var slow []*client
	s.mu.RLock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	s.mu.RUnlock()

	for _, c := range slow {
		s.logger.Warn().Msg("dropping slow feed client")
		s.remove(c)
	}
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		c.close()
	}
	n := len(s.clients)
	s.mu.Unlock()
	metrics.FeedClients.Set(float64(n))
}

func (s *Server) closeClients() {
	s.mu.Lock()
	for c := range s.clients {
		delete(s.clients, c)
		c.close()
	}
	s.mu.Unlock()
	metrics.FeedClients.Set(0)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	s.mu.Lock()
	s.clients[c] = true
	s.lastIdle = false
	n := len(s.clients)
	s.mu.Unlock()
	metrics.FeedClients.Set(float64(n))
	s.logger.Debug().Str("remote", r.RemoteAddr).Int("clients", n).Msg("feed client connected")

	go s.writePump(c)
	s.readPump(c)
}

func (s *Server) writePump(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.logger.Debug().Err(err).Msg("feed write failed")
			s.remove(c)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readPump discards client input and notices disconnects.
func (s *Server) readPump(c *client) {
	defer s.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) handleSpeak(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req SpeakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}

	var lang viseme.Language
	if req.Language != "" {
		l, err := viseme.ParseLanguage(req.Language)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		lang = l
	}

	if req.SampleRate > 0 && req.BitDepth == 0 {
		req.BitDepth = 16
	}

	utt := s.engine.Start(lipsync.Request{
		ID:        req.ID,
		Text:      req.Text,
		Language:  lang,
		Audio:     req.Audio,
		PCM:       audio.PCMFormat{SampleRate: req.SampleRate, BitDepth: req.BitDepth},
		Synthetic: req.Synthetic,
		Duration:  time.Duration(req.DurationMs) * time.Millisecond,
	})

	writeJSON(w, http.StatusAccepted, SpeakResponse{
		ID:         utt.ID,
		Language:   string(utt.Language),
		Speakable:  utt.Speakable,
		Live:       utt.Live,
		Units:      utt.Table.Len(),
		DurationMs: utt.Duration.Milliseconds(),
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.engine.Cancel()
	writeJSON(w, http.StatusOK, map[string]string{"state": string(s.engine.State())})
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.engine.Finish()
	writeJSON(w, http.StatusOK, map[string]string{"state": string(s.engine.State())})
}

func (s *Server) handleBoundary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req BoundaryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.engine.OnBoundary(req.CharIndex)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	utt := s.engine.Last()
	if utt == nil {
		http.Error(w, "no utterance", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, timing.BuildTimeline(s.table, utt.Table))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"state":   s.engine.State(),
		"clients": s.Clients(),
	})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	logs := s.logs
	s.mu.RUnlock()
	if logs == nil {
		http.Error(w, "log streaming disabled", http.StatusNotFound)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	writeJSON(w, http.StatusOK, logs.GetHistory(limit))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
