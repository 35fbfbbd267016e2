package store

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// Source supplies the raw rules document to the store.
type Source interface {
	// Read returns the raw document bytes.
	Read(ctx context.Context) ([]byte, error)

	// Describe returns a short description of the source for logs and
	// error messages.
	Describe() string
}

// FileSource reads the rules document from a file on disk.
type FileSource struct {
	path string
}

// NewFileSource creates a file-backed source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Read returns the file contents.
func (s *FileSource) Read(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return data, nil
}

// Describe returns the file path.
func (s *FileSource) Describe() string {
	return s.path
}

// Path returns the watched file path.
func (s *FileSource) Path() string {
	return s.path
}

// MemorySource serves a document held in memory. It is primarily used in
// tests and by the lint command, and its contents can be swapped to simulate
// reloads.
type MemorySource struct {
	mu   sync.RWMutex
	data []byte
	err  error
}

// NewMemorySource creates a memory-backed source with the given document.
func NewMemorySource(data []byte) *MemorySource {
	return &MemorySource{data: data}
}

// Read returns the current document, or the configured error.
func (s *MemorySource) Read(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, nil
}

// Describe identifies the source as in-memory.
func (s *MemorySource) Describe() string {
	return "memory"
}

// Set replaces the document served by subsequent reads.
func (s *MemorySource) Set(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.err = nil
}

// Fail makes subsequent reads return err.
func (s *MemorySource) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}
