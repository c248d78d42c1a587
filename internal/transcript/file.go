package transcript

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

const (
	fileTitle     = "🎤 TransLive Transcript"
	headerRule    = "=================================================="
	recordDivider = "--------------------------------------------------"
)

// FileStore writes a human-readable transcript. The file is truncated and given
// a header when the store is opened; records are only ever appended after that.
type FileStore struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// NewFileStore creates (or truncates) path and writes the transcript header
func NewFileStore(path string) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript %s: %w", path, err)
	}
	if _, err := f.WriteString(fileTitle + "\n" + headerRule + "\n"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write transcript header: %w", err)
	}
	return &FileStore{path: path, f: f}, nil
}

// Path returns the transcript file path
func (s *FileStore) Path() string {
	return s.path
}

// Append writes one record as a single write
func (s *FileStore) Append(rec Record) error {
	entry := FormatRecord(rec)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return fmt.Errorf("transcript %s is closed", s.path)
	}
	if _, err := s.f.WriteString(entry); err != nil {
		return fmt.Errorf("failed to append to transcript: %w", err)
	}
	return nil
}

// Close closes the transcript file
func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// FormatRecord renders a record as transcript lines
func FormatRecord(rec Record) string {
	ts := rec.Timestamp.Format(TimestampLayout)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] 🗣️ Input (%s): %s\n", ts, LanguageName(rec.SourceLang), rec.SourceText)
	fmt.Fprintf(&b, "[%s] 🔁 Output (%s): %s\n", ts, LanguageName(rec.TargetLang), rec.TargetText)
	b.WriteString(recordDivider + "\n")
	return b.String()
}
