package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RecorderConfig contains configuration for the asynchronous recorder.
type RecorderConfig struct {
	// Enabled turns recording on.
	Enabled bool

	// QueueSize is the async write channel capacity. Default 1000.
	QueueSize int

	// WriteTimeout bounds each storage write. Default 5 seconds.
	WriteTimeout time.Duration
}

// DefaultRecorderConfig returns the default recorder configuration.
func DefaultRecorderConfig() *RecorderConfig {
	return &RecorderConfig{
		Enabled:      true,
		QueueSize:    1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder writes decision records to storage asynchronously so the decision
// path never blocks on persistence. A full queue drops the record with a log
// entry rather than waiting.
type Recorder struct {
	storage    Storage
	config     *RecorderConfig
	recordChan chan *Record
	wg         sync.WaitGroup
	done       chan struct{}
	closeOnce  sync.Once
	logger     *slog.Logger
}

// NewRecorder creates a recorder and starts its background writer.
func NewRecorder(storage Storage, config *RecorderConfig, logger *slog.Logger) *Recorder {
	if config == nil {
		config = DefaultRecorderConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		storage:    storage,
		config:     config,
		recordChan: make(chan *Record, config.QueueSize),
		done:       make(chan struct{}),
		logger:     logger.With("component", "audit.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("audit recorder initialized",
		"queue_size", config.QueueSize,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// Record enqueues one decision record. It never blocks; when the queue is
// full the record is dropped.
func (r *Recorder) Record(record *Record) {
	if !r.config.Enabled {
		return
	}

	select {
	case r.recordChan <- record:
	case <-r.done:
		r.logger.Warn("recorder shutting down, dropping record",
			"record_id", record.ID,
			"request_id", record.RequestID,
		)
	default:
		r.logger.Error("audit queue full, dropping record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"queue_capacity", r.config.QueueSize,
		)
	}
}

// Close drains the queue and waits for pending writes to finish.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
	return nil
}

// worker drains the record channel and writes to storage.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					return
				}
			}
		}
	}
}

// writeRecord writes a single record with the configured timeout.
func (r *Recorder) writeRecord(record *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("failed to store audit record",
			"record_id", record.ID,
			"request_id", record.RequestID,
			"error", err,
		)
		return
	}

	r.logger.Debug("decision recorded",
		"record_id", record.ID,
		"request_id", record.RequestID,
		"final", record.Final,
	)
}
