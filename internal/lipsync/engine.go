package lipsync

import (
	"math"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/normanking/cortexlipsync/internal/audio"
	"github.com/normanking/cortexlipsync/internal/bus"
	"github.com/normanking/cortexlipsync/internal/metrics"
	"github.com/normanking/cortexlipsync/internal/timing"
	"github.com/normanking/cortexlipsync/internal/viseme"
)

// Request describes an utterance to lip-sync.
type Request struct {
	// ID names the utterance. A random UUID is used when empty.
	ID       string
	Text     string
	Language viseme.Language // detected from Text when empty

	// Audio is an encoded clip (WAV or MP3) the host is about to play.
	Audio []byte
	// PCM describes Audio when it is headerless PCM.
	PCM audio.PCMFormat
	// Synthetic marks speech produced by a host TTS engine without audio
	// bytes. The host reports word boundaries and the end of speech.
	Synthetic bool
	// Signal is an already-playing live source supplied by the host.
	Signal audio.Signal
	// Duration overrides the playback length when the host knows it.
	Duration time.Duration
}

// Utterance is the immutable record of one started request.
type Utterance struct {
	ID        string          `json:"id"`
	Text      string          `json:"text"`
	Language  viseme.Language `json:"language"`
	Table     *timing.Table   `json:"table"`
	Duration  time.Duration   `json:"duration"`
	Synthetic bool            `json:"synthetic"`
	Live      bool            `json:"live"`
	Speakable bool            `json:"speakable"`
	StartedAt time.Time       `json:"startedAt"`

	awaitFinish bool
	runeCount   int
}

// Units returns the utterance's timed units.
func (u *Utterance) Units() []timing.Unit {
	units := make([]timing.Unit, u.Table.Len())
	for i, e := range u.Table.Entries {
		units[i] = e.Unit
	}
	return units
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

// WithBus publishes lifecycle events on b.
func WithBus(b *bus.EventBus) Option { return func(e *Engine) { e.bus = b } }

// WithLoader decodes audio through l, typically backed by a clip cache.
func WithLoader(l *audio.Loader) Option { return func(e *Engine) { e.loader = l } }

// WithEstimator replaces the timing estimator.
func WithEstimator(est *timing.Estimator) Option { return func(e *Engine) { e.estimator = est } }

// WithTable replaces the viseme table.
func WithTable(t *viseme.Table) Option { return func(e *Engine) { e.table = t } }

// Engine is the synchronization loop. It owns exactly one utterance at a
// time and is safe for concurrent use: host callbacks may arrive on any
// goroutine while the render loop polls Frame.
type Engine struct {
	mu sync.Mutex
	// pubMu keeps events in emission order across goroutines.
	pubMu   sync.Mutex
	pending []bus.Event

	cfg       Config
	logger    zerolog.Logger
	clock     Clock
	bus       *bus.EventBus
	table     *viseme.Table
	estimator *timing.Estimator
	loader    *audio.Loader

	state      State
	utt        *Utterance
	last       *Utterance
	cascade    *Cascade
	smoothing  SmoothingState
	mode       SourceMode
	anchor     time.Duration // boundary correction added to the playhead
	drainStart time.Time
	drainFrom  SmoothingState
	lang       viseme.Language
}

// New creates an idle engine.
func New(cfg Config, logger zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg.normalized(),
		logger: logger,
		clock:  SystemClock{},
		state:  StateIdle,
		mode:   SourceIdle,
		lang:   viseme.Japanese,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.table == nil {
		e.table = viseme.NewTable()
	}
	if e.estimator == nil {
		e.estimator = timing.NewEstimator(e.table, timing.DefaultConfig())
	}
	if e.loader == nil {
		e.loader = audio.NewLoader(nil, logger)
	}
	e.smoothing = restingState(e.lang)
	return e
}

// Start begins a new utterance, synchronously cancelling any current one.
// Decoding the audio is the only blocking step. Start never fails: audio
// that cannot be decoded falls back to estimated timing, and text with
// nothing to speak leaves the engine idle.
func (e *Engine) Start(req Request) *Utterance {
	defer e.publishPending()
	var clip *audio.Clip
	if len(req.Audio) > 0 && !req.Synthetic {
		begin := time.Now()
		c, err := e.loader.Load(req.Audio, req.PCM)
		metrics.DecodeDuration.Observe(time.Since(begin).Seconds())
		if err != nil {
			metrics.DecodeFailures.Inc()
			e.logger.Warn().Err(err).Int("bytes", len(req.Audio)).Msg("audio decode failed, using estimated timing")
		} else {
			clip = c
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	if e.state != StateIdle {
		e.stop("superseded")
	}

	lang := req.Language
	if lang == "" {
		lang = viseme.DetectLanguage(req.Text)
	}
	units := timing.Units(e.table, req.Text, lang)

	var sig audio.Signal = req.Signal
	if sig == nil && clip != nil {
		cs := audio.NewClipSignal(clip, e.clock.Now)
		cs.Start(now)
		sig = cs
	}

	duration := req.Duration
	if duration <= 0 && sig != nil {
		duration = sig.Duration()
	}
	if duration <= 0 {
		duration = e.estimator.Nominal(units, lang)
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	utt := &Utterance{
		ID:          id,
		Text:        req.Text,
		Language:    lang,
		Duration:    duration,
		Synthetic:   req.Synthetic,
		Live:        sig != nil,
		Speakable:   speakable(units),
		StartedAt:   now,
		awaitFinish: req.Synthetic || req.Signal != nil,
		runeCount:   utf8.RuneCountInString(req.Text),
	}
	e.lang = lang
	e.last = utt

	if !utt.Speakable {
		utt.Table = e.estimator.Estimate(nil, lang, 0)
		utt.Duration = utt.Table.Total
		e.smoothing = restingState(lang)
		e.logger.Debug().Str("utterance", utt.ID).Msg("nothing to speak, staying idle")
		return utt
	}

	utt.Table = e.estimator.Estimate(units, lang, duration)

	var analyzer *audio.Analyzer
	if sig != nil {
		analyzer = audio.NewAnalyzer(sig, e.cfg.Analyzer, e.logger)
	}
	e.cascade = NewCascade(analyzer, utt.Table, utt.runeCount, e.cfg.JitterAmplitude)
	e.utt = utt
	e.smoothing = restingState(lang)
	e.anchor = 0
	e.mode = SourceIdle
	e.setState(StateDriving)

	mode := "estimated"
	switch {
	case utt.Live:
		mode = "live"
	case utt.Synthetic:
		mode = "synthetic"
	}
	metrics.UtterancesTotal.WithLabelValues(string(lang), mode).Inc()

	e.logger.Info().
		Str("utterance", utt.ID).
		Str("language", string(lang)).
		Str("mode", mode).
		Int("units", utt.Table.Len()).
		Dur("duration", duration).
		Msg("utterance started")
	e.emit(bus.Event{Type: bus.EventTypeUtteranceStarted, Data: map[string]any{
		"id":       utt.ID,
		"language": string(lang),
		"mode":     mode,
		"units":    utt.Table.Len(),
		"duration": duration.Seconds(),
	}})
	return utt
}

func speakable(units []timing.Unit) bool {
	for _, u := range units {
		if !u.Pause() {
			return true
		}
	}
	return false
}

// Reconfigure replaces the engine constants and timing profiles. The
// current utterance keeps its table and analyzer; smoothing and decay use the
// new constants from the next frame.
func (e *Engine) Reconfigure(cfg Config, timingCfg timing.Config) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = cfg.normalized()
	e.estimator = timing.NewEstimator(e.table, timingCfg)
}

// OnBoundary re-anchors estimated timing to a host word-boundary event.
// charIndex is a rune offset into the request text. The unit at charIndex
// starts now; positions inside the word still follow the estimate.
func (e *Engine) OnBoundary(charIndex int) {
	defer e.publishPending()
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateDriving {
		return
	}
	idx := e.utt.Table.IndexForChar(charIndex)
	if idx < 0 {
		e.logger.Debug().Int("charIndex", charIndex).Msg("boundary outside text")
		return
	}
	pos := e.clock.Now().Sub(e.utt.StartedAt)
	e.anchor = e.utt.Table.Entries[idx].Unit.Start - pos

	e.emit(bus.Event{Type: bus.EventTypeBoundary, Data: map[string]any{
		"id":        e.utt.ID,
		"charIndex": charIndex,
		"unit":      idx,
		"offset":    e.anchor.Seconds(),
	}})
}

// AttachSignal makes a live source available mid-utterance. The cascade
// prefers it from the next frame.
func (e *Engine) AttachSignal(sig audio.Signal) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateDriving || sig == nil {
		return
	}
	e.cascade.Attach(audio.NewAnalyzer(sig, e.cfg.Analyzer, e.logger))
	e.utt.Live = true
}

// Cancel stops the current utterance. The mouth relaxes to neutral over the
// decay window without further calls.
func (e *Engine) Cancel() {
	defer e.publishPending()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateDriving {
		e.beginDrain(e.clock.Now(), "cancelled")
	}
}

// Finish reports that the host finished playing the utterance.
func (e *Engine) Finish() {
	defer e.publishPending()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateDriving {
		e.beginDrain(e.clock.Now(), "completed")
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Last returns the most recently started utterance, or nil.
func (e *Engine) Last() *Utterance {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Frame advances the loop to the current clock time and returns the frame
// to render. It is called once per host frame.
func (e *Engine) Frame() Frame {
	defer e.publishPending()
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	var f Frame
	switch e.state {
	case StateDriving:
		f = e.drive(now)
	case StateDraining:
		f = e.drain(now)
	default:
		f = e.idleFrame()
	}
	metrics.FramesTotal.WithLabelValues(string(f.SourceMode)).Inc()
	return f
}

func (e *Engine) drive(now time.Time) Frame {
	utt := e.utt
	pos := now.Sub(utt.StartedAt)
	if pos >= utt.Duration && (!utt.awaitFinish || pos >= utt.Duration+e.cfg.FinishGrace) {
		e.beginDrain(now, "completed")
		return e.drain(now)
	}

	idx := utt.Table.IndexAt(pos + e.anchor)
	if idx < 0 && pos+e.anchor < 0 {
		idx = 0
	}
	mode, target := e.cascade.Resolve(idx)
	e.switchMode(mode)

	targetShape := viseme.Neutral(utt.Language)
	if idx >= 0 && mode != SourceIdle {
		targetShape = utt.Table.Entries[idx].Shape
	}

	alpha := e.cfg.EstimatedAlpha
	if mode == SourceLive {
		alpha = e.cfg.LiveAlpha
	}
	e.smoothing.Loudness = clamp01(e.smoothing.Loudness*(1-alpha) + target*alpha)
	e.smoothing.Shape = e.smoothing.Shape.Lerp(targetShape, alpha)

	f := Frame{
		Loudness:    e.smoothing.Loudness,
		Shape:       e.smoothing.Shape,
		SourceMode:  mode,
		State:       StateDriving,
		UnitIndex:   idx,
		Viseme:      viseme.OculusSil,
		UtteranceID: utt.ID,
		Language:    utt.Language,
		Position:    pos,
	}
	if idx >= 0 {
		entry := utt.Table.Entries[idx]
		f.ActiveUnitText = entry.Unit.Text
		f.Class = entry.Class
		f.Viseme = e.table.Oculus(entry.Unit.Lookup, utt.Language)
	}
	return f
}

func (e *Engine) switchMode(mode SourceMode) {
	if mode == e.mode {
		return
	}
	from := e.mode
	e.mode = mode
	metrics.SourceSwitches.WithLabelValues(string(from), string(mode)).Inc()

	ev := e.logger.Debug()
	if from == SourceLive {
		ev = e.logger.Warn()
	}
	ev.Str("utterance", e.utt.ID).Str("from", string(from)).Str("to", string(mode)).Msg("timing source changed")
	e.emit(bus.Event{Type: bus.EventTypeSourceChanged, Data: map[string]any{
		"id":   e.utt.ID,
		"from": string(from),
		"to":   string(mode),
	}})
}

func (e *Engine) beginDrain(now time.Time, reason string) {
	e.drainStart = now
	e.drainFrom = e.smoothing
	e.setState(StateDraining)

	e.logger.Debug().Str("utterance", e.utt.ID).Str("reason", reason).Msg("draining")
	e.emit(bus.Event{Type: bus.EventTypeUtteranceDraining, Data: map[string]any{
		"id":     e.utt.ID,
		"reason": reason,
	}})
}

// drain decays loudness exponentially so that only DecayFloor of it is left
// at the end of the window, where it is forced to zero.
func (e *Engine) drain(now time.Time) Frame {
	elapsed := now.Sub(e.drainStart)
	if elapsed >= e.cfg.DecayWindow {
		e.stop("drained")
		return e.idleFrame()
	}

	rate := math.Log(1/e.cfg.DecayFloor) / e.cfg.DecayWindow.Seconds()
	factor := math.Exp(-rate * elapsed.Seconds())
	neutral := viseme.Neutral(e.utt.Language)

	e.smoothing.Loudness = clamp01(e.drainFrom.Loudness * factor)
	e.smoothing.Shape = neutral.Lerp(e.drainFrom.Shape, factor)

	return Frame{
		Loudness:    e.smoothing.Loudness,
		Shape:       e.smoothing.Shape,
		SourceMode:  SourceIdle,
		State:       StateDraining,
		UnitIndex:   -1,
		Viseme:      viseme.OculusSil,
		UtteranceID: e.utt.ID,
		Language:    e.utt.Language,
		Position:    now.Sub(e.utt.StartedAt),
	}
}

// stop forces the engine to Idle immediately.
func (e *Engine) stop(reason string) {
	id := ""
	if e.utt != nil {
		id = e.utt.ID
	}
	e.utt = nil
	e.cascade = nil
	e.anchor = 0
	e.mode = SourceIdle
	e.smoothing = restingState(e.lang)
	e.setState(StateIdle)

	e.logger.Debug().Str("utterance", id).Str("reason", reason).Msg("idle")
	e.emit(bus.Event{Type: bus.EventTypeUtteranceIdle, Data: map[string]any{
		"id":     id,
		"reason": reason,
	}})
}

// emit queues an event; it is published once the engine lock is released.
func (e *Engine) emit(ev bus.Event) {
	if e.bus != nil {
		e.pending = append(e.pending, ev)
	}
}

// publishPending delivers queued events in the order they were emitted.
// Handlers run synchronously and must not call back into the engine.
func (e *Engine) publishPending() {
	e.pubMu.Lock()
	defer e.pubMu.Unlock()

	e.mu.Lock()
	events := e.pending
	e.pending = nil
	e.mu.Unlock()

	for _, ev := range events {
		e.bus.PublishSync(ev)
	}
}

func (e *Engine) setState(s State) {
	e.state = s
	metrics.EngineState.Set(s.gauge())
}

func (e *Engine) idleFrame() Frame {
	return Frame{
		Loudness:   0,
		Shape:      viseme.Neutral(e.lang),
		SourceMode: SourceIdle,
		State:      StateIdle,
		UnitIndex:  -1,
		Viseme:     viseme.OculusSil,
		Language:   e.lang,
	}
}
