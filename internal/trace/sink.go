package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/kailas-cloud/skumatch/internal/domain"
)

// Sink persists trace records.
type Sink interface {
	Write(rec *domain.TraceRecord) error
	Close() error
}

// JSONLSink appends one JSON object per line to a file. The mutex
// serializes writers so concurrent records never interleave within a line.
type JSONLSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewJSONLSink opens (or creates) the trace file for appending.
func NewJSONLSink(path string) (*JSONLSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return &JSONLSink{file: f}, nil
}

// Write appends one record as a single JSON line.
func (s *JSONLSink) Write(rec *domain.TraceRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal trace record: %w", err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.file.Write(data); err != nil {
		return fmt.Errorf("append trace record: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (s *JSONLSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
