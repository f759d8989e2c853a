// Package storage writes the decision audit trail as date-organized JSON
// lines rotated by lumberjack.
package storage

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgnsrekt/archive_redirector/internal/types"
)

var (
	ErrWriterClosed = errors.New("writer is closed")
	ErrBufferFull   = errors.New("buffer full")
)

const auditFileName = "decisions.jsonl"

// JSONLWriter handles async writing of JSON lines to
// <baseDir>/<YYYY-MM-DD>/<fileName>.
type JSONLWriter struct {
	baseDir     string
	fileName    string
	maxSizeMB   int
	writeCh     chan any
	done        chan struct{}
	closeOnce   sync.Once
	wg          sync.WaitGroup
	currentDate string
	logger      *lumberjack.Logger
	mu          sync.Mutex
	now         func() time.Time
}

// NewJSONLWriter creates a new async JSONL writer.
func NewJSONLWriter(baseDir, fileName string, bufferSize int, maxSizeMB int) *JSONLWriter {
	w := &JSONLWriter{
		baseDir:   baseDir,
		fileName:  fileName,
		maxSizeMB: maxSizeMB,
		writeCh:   make(chan any, bufferSize),
		done:      make(chan struct{}),
		now:       time.Now,
	}

	w.wg.Add(1)
	go w.writeLoop()

	return w
}

// Write queues a record for async writing
func (w *JSONLWriter) Write(record any) error {
	select {
	case <-w.done:
		return ErrWriterClosed
	default:
	}
	select {
	case w.writeCh <- record:
		return nil
	default:
		// Channel full, log warning but don't block
		slog.Warn("JSONL write buffer full, dropping record",
			"file", w.fileName)
		return ErrBufferFull
	}
}

// Close shuts down the writer and flushes pending data
func (w *JSONLWriter) Close() error {
	w.closeOnce.Do(func() { close(w.done) })
	w.wg.Wait()

	// Drain remaining items with timeout
	timeout := time.After(5 * time.Second)
	for {
		select {
		case record := <-w.writeCh:
			w.writeRecord(record)
		case <-timeout:
			slog.Warn("JSONL writer close timeout, some records may be lost",
				"file", w.fileName)
			goto done
		default:
			goto done
		}
	}

done:
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.logger != nil {
		err := w.logger.Close()
		w.logger = nil
		return err
	}
	return nil
}

func (w *JSONLWriter) writeLoop() {
	defer w.wg.Done()

	for {
		select {
		case record := <-w.writeCh:
			w.writeRecord(record)
		case <-w.done:
			return
		}
	}
}

func (w *JSONLWriter) writeRecord(record any) {
	data, err := json.Marshal(record)
	if err != nil {
		slog.Error("Failed to marshal record",
			"error", err,
			"file", w.fileName)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	// Check if we need to rotate to a new date directory
	currentDate := w.now().UTC().Format("2006-01-02")
	if currentDate != w.currentDate || w.logger == nil {
		w.rotateForDate(currentDate)
	}
	if w.logger == nil {
		return
	}

	if _, err := w.logger.Write(append(data, '\n')); err != nil {
		slog.Error("Failed to write record",
			"error", err,
			"file", w.fileName)
	}
}

func (w *JSONLWriter) rotateForDate(date string) {
	if w.logger != nil {
		w.logger.Close()
		w.logger = nil
	}

	dir := filepath.Join(w.baseDir, date)
	if err := os.MkdirAll(dir, 0755); err != nil {
		slog.Error("Failed to create output directory",
			"error", err,
			"dir", dir)
		return
	}

	filename := filepath.Join(dir, w.fileName)
	w.logger = &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    w.maxSizeMB,
		MaxBackups: 100,
		MaxAge:     30,
		Compress:   false,
		LocalTime:  false, // Use UTC
	}

	w.currentDate = date
	slog.Info("Opened new JSONL file", "file", filename)
}

// AuditLog records every interceptor decision. It satisfies
// interceptor.Recorder.
type AuditLog struct {
	w *JSONLWriter
}

// NewAuditLog writes decisions under dir/<date>/decisions.jsonl.
func NewAuditLog(dir string, maxSizeMB int) *AuditLog {
	return &AuditLog{w: NewJSONLWriter(dir, auditFileName, 1024, maxSizeMB)}
}

// RecordDecision queues rec; a full buffer drops it rather than stall
// navigation handling.
func (a *AuditLog) RecordDecision(rec types.DecisionRecord) {
	if err := a.w.Write(rec); err != nil && !errors.Is(err, ErrBufferFull) {
		slog.Debug("audit log write skipped", "error", err)
	}
}

func (a *AuditLog) Close() error {
	return a.w.Close()
}
