package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"draftline-hq/meridian/pkg/policy/engine"
)

// RecorderConfig contains configuration for the audit recorder.
type RecorderConfig struct {
	// Enabled enables audit recording.
	Enabled bool

	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout is the timeout for writing a record to storage.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultRecorderConfig returns the default recorder configuration.
func DefaultRecorderConfig() *RecorderConfig {
	return &RecorderConfig{
		Enabled:      true,
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder records resolved policy effects. Writes happen on a background
// worker so recording never blocks effect resolution; when the buffer is
// full the record is dropped with a warning rather than stalling the run.
type Recorder struct {
	storage    Storage
	config     *RecorderConfig
	recordChan chan *Record
	wg         sync.WaitGroup
	done       chan struct{}
	logger     *slog.Logger
}

// NewRecorder creates an audit recorder backed by the given storage.
func NewRecorder(storage Storage, config *RecorderConfig) *Recorder {
	if config == nil {
		config = DefaultRecorderConfig()
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		recordChan: make(chan *Record, config.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "audit.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("audit recorder initialized",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// RecordEffect enqueues a resolved effect for persistence. It returns
// immediately and never blocks on storage.
func (r *Recorder) RecordEffect(runID string, effect *engine.Effect) {
	if !r.config.Enabled || effect == nil {
		return
	}

	record := &Record{
		ID:         uuid.New().String(),
		RunID:      runID,
		RecordedAt: time.Now().UTC(),
		PolicyID:   effect.PolicyID,
		Trigger:    string(effect.Trigger),
		Phase:      effect.Phase,
		NodeID:     effect.NodeID,
		Action:     string(effect.Kind),
		Rationale:  effect.Rationale,
		Detail:     effectDetail(effect),
	}

	select {
	case r.recordChan <- record:
	default:
		r.logger.Warn("audit buffer full, dropping record",
			"record_id", record.ID,
			"policy_id", record.PolicyID,
		)
	}
}

// effectDetail serializes the kind-specific action payload.
func effectDetail(effect *engine.Effect) string {
	detail := map[string]any{}
	if effect.Next != "" {
		detail["next"] = effect.Next
	}
	if effect.Message != "" {
		detail["message"] = effect.Message
	}
	if effect.Event != "" {
		detail["event"] = effect.Event
	}
	if len(effect.Payload) > 0 {
		detail["payload"] = effect.Payload
	}
	if effect.Reason != "" {
		detail["reason"] = effect.Reason
	}
	if len(detail) == 0 {
		return ""
	}

	data, err := json.Marshal(detail)
	if err != nil {
		return ""
	}
	return string(data)
}

// worker drains the record channel into storage.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.write(record)

		case <-r.done:
			// Drain remaining records before exiting.
			for {
				select {
				case record := <-r.recordChan:
					r.write(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(record *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store audit record",
			"record_id", record.ID,
			"error", err,
		)
		return
	}

	r.logger.Debug("audit record stored",
		"record_id", record.ID,
		"policy_id", record.PolicyID,
		"action", record.Action,
	)
}

// Close stops the worker after draining buffered records.
func (r *Recorder) Close() error {
	close(r.done)
	r.wg.Wait()
	return nil
}
