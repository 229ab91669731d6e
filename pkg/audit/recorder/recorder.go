package recorder

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/audit/snapshot"
	"mercator-hq/custodian/pkg/telemetry/metrics"
)

// Config contains configuration for the audit recorder.
type Config struct {
	// Enabled enables recording. A disabled recorder accepts and drops entries.
	Enabled bool

	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout is the timeout for writing one entry to storage.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// MaxFieldLength is the maximum length of the description before truncation.
	// Default: 500
	MaxFieldLength int

	// RedactKeys are top-level snapshot fields masked before storage.
	RedactKeys []string
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:        true,
		AsyncBuffer:    1000,
		WriteTimeout:   5 * time.Second,
		MaxFieldLength: 500,
		RedactKeys:     []string{"password", "secret", "token", "api_key"},
	}
}

// Entry describes one audited action.
type Entry struct {
	Category    string
	Description string
	UserID      string // Defaults to audit.SystemActor
	Module      string
	Action      string
	EntityID    string
	EntityType  string
	Severity    string

	// Before and After are marshalled to JSON. json.RawMessage and []byte
	// are stored as given. Nil means absent.
	Before any
	After  any
}

// Logger records audit entries. Log never blocks on storage and never
// fails the caller: write errors are logged and the entry is dropped.
type Logger interface {
	Log(ctx context.Context, entry Entry)
}

// Nop is a Logger that discards every entry.
type Nop struct{}

// Log implements Logger.
func (Nop) Log(context.Context, Entry) {}

// Recorder turns entries into audit events and writes them asynchronously.
type Recorder struct {
	store      audit.Store
	config     *Config
	redactor   *Redactor
	metrics    *metrics.Collector
	recordChan chan *audit.Event
	wg         sync.WaitGroup
	done       chan struct{}
	closeOnce  sync.Once
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger.With("component", "audit.recorder") }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(r *Recorder) { r.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// NewRecorder creates a recorder writing to store and starts its worker.
// Close must be called to flush pending entries.
func NewRecorder(store audit.Store, config *Config, opts ...Option) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = DefaultConfig().AsyncBuffer
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultConfig().WriteTimeout
	}

	r := &Recorder{
		store:      store,
		config:     config,
		redactor:   NewRedactor(config.RedactKeys),
		recordChan: make(chan *audit.Event, config.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "audit.recorder"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("audit recorder initialized",
		"enabled", config.Enabled,
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// Log builds an event from entry and enqueues it. It returns immediately;
// when the buffer is full or the recorder is closed the entry is dropped.
func (r *Recorder) Log(ctx context.Context, entry Entry) {
	if !r.config.Enabled {
		return
	}

	select {
	case <-r.done:
		r.logger.Warn("recorder shut down, dropping audit entry",
			"module", entry.Module,
			"action", entry.Action,
		)
		return
	default:
	}

	event := r.newEvent(entry)

	select {
	case r.recordChan <- event:
		r.logger.DebugContext(ctx, "audit entry enqueued",
			"event_id", event.ID,
			"action", event.Action,
		)
	default:
		r.metrics.RecordRecorderDropped()
		r.logger.ErrorContext(ctx, "audit channel full, dropping entry",
			"event_id", event.ID,
			"module", event.Module,
			"action", event.Action,
			"channel_capacity", r.config.AsyncBuffer,
		)
	}
}

// Close stops accepting entries, drains the buffer and waits for pending
// writes. It is safe to call more than once.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("shutting down audit recorder")
		close(r.done)
		r.wg.Wait()
		r.logger.Info("audit recorder shut down complete")
	})
	return nil
}

// worker processes events from the async channel.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case event := <-r.recordChan:
			r.writeEvent(event)

		case <-r.done:
			r.logger.Info("draining audit channel before shutdown",
				"pending_count", len(r.recordChan),
			)

			for {
				select {
				case event := <-r.recordChan:
					r.writeEvent(event)
				default:
					return
				}
			}
		}
	}
}

// writeEvent stores one event, stamping its retention date from the
// current policy.
func (r *Recorder) writeEvent(event *audit.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()

	months := audit.DefaultRetentionMonths
	cfg, err := r.store.GetRetentionConfig(ctx)
	if err != nil {
		r.logger.Warn("failed to load retention config, using default retention",
			"event_id", event.ID,
			"error", err,
		)
	} else if cfg != nil {
		months = cfg.RetentionMonths
	}
	event.RetentionDate = audit.AddMonths(event.CreatedAt, months)

	if err := r.store.CreateEvent(ctx, event); err != nil {
		r.metrics.RecordRecorderWrite(metrics.OutcomeFailure)
		r.logger.Error("failed to store audit event",
			"event_id", event.ID,
			"module", event.Module,
			"action", event.Action,
			"error", err,
		)
		return
	}
	r.metrics.RecordRecorderWrite(metrics.OutcomeSuccess)

	duration := time.Since(start)
	r.logger.Debug("audit event recorded",
		"event_id", event.ID,
		"action", event.Action,
		"duration_ms", duration.Milliseconds(),
	)

	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow audit write",
			"event_id", event.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}

// newEvent converts an entry into an active event.
func (r *Recorder) newEvent(entry Entry) *audit.Event {
	userID := entry.UserID
	if userID == "" {
		userID = audit.SystemActor
	}

	description := entry.Description
	if r.config.MaxFieldLength > 0 {
		description = TruncateString(description, r.config.MaxFieldLength)
	}

	return &audit.Event{
		ID:          uuid.New().String(),
		CreatedAt:   r.now().UTC(),
		Category:    entry.Category,
		Description: description,
		UserID:      userID,
		Module:      entry.Module,
		Action:      entry.Action,
		EntityID:    entry.EntityID,
		EntityType:  entry.EntityType,
		Severity:    entry.Severity,
		Before:      r.snapshot(entry.Before),
		After:       r.snapshot(entry.After),
		Status:      audit.StatusActive,
	}
}

// snapshot marshals v and applies redaction. Values that cannot be
// marshalled are stored as a JSON string of their error, and raw bytes that
// are not valid JSON as a JSON string of their text.
func (r *Recorder) snapshot(v any) json.RawMessage {
	var raw []byte
	switch t := v.(type) {
	case nil:
		return nil
	case json.RawMessage:
		raw = t
	case []byte:
		raw = t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			r.logger.Warn("failed to marshal audit snapshot", "error", err)
			b, _ = json.Marshal("unserializable snapshot: " + err.Error())
		}
		raw = b
	}

	if len(raw) == 0 {
		return nil
	}
	if !json.Valid(raw) {
		// Stored as a JSON string of the raw text so exports can always
		// re-encode the event.
		v := snapshot.Parse(raw)
		if v == nil {
			return nil
		}
		r.logger.Warn("audit snapshot is not valid JSON, storing as text", "bytes", len(raw))
		raw = []byte(v.Canonical())
	}
	return r.redactor.Redact(raw)
}
