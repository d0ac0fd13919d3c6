package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// ErrChainBroken is returned by Verify when a line does not extend the
// hash chain of the lines before it
var ErrChainBroken = errors.New("audit: hash chain broken")

// record is the on-disk line: the event plus its place in the hash chain
type record struct {
	*Event
	PreviousHash string `json:"previous_hash,omitempty"`
	Hash         string `json:"hash"`
}

func (r record) digest() (string, error) {
	r.Hash = ""
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// FileLogger appends hash-chained JSON lines to a file and syncs each one
type FileLogger struct {
	mu       sync.Mutex
	file     *os.File
	w        *bufio.Writer
	lastHash string
}

// NewFileLogger opens path for appending and continues the chain of any
// events already in it
func NewFileLogger(path string) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating audit directory: %w", err)
	}
	last, _, err := Verify(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("existing audit log: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, err
	}
	return &FileLogger{file: f, w: bufio.NewWriter(f), lastHash: last}, nil
}

func (l *FileLogger) Log(event *Event) error {
	stamp(event)
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := record{Event: event, PreviousHash: l.lastHash}
	hash, err := rec.digest()
	if err != nil {
		return err
	}
	rec.Hash = hash

	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := l.w.Write(append(line, '\n')); err != nil {
		return err
	}
	if err := l.w.Flush(); err != nil {
		return err
	}
	if err := l.file.Sync(); err != nil {
		return err
	}
	l.lastHash = hash
	return nil
}

func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	flushErr := l.w.Flush()
	if err := l.file.Close(); err != nil {
		return err
	}
	return flushErr
}

// Verify checks every line of the log at path and returns the last hash
// and the number of events
func Verify(path string) (string, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	return verify(f)
}

func verify(r io.Reader) (string, int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)

	prev, n := "", 0
	for scanner.Scan() {
		n++
		rec := record{Event: &Event{}}
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return prev, n - 1, fmt.Errorf("line %d: %w", n, err)
		}
		if rec.PreviousHash != prev {
			return prev, n - 1, fmt.Errorf("line %d: %w", n, ErrChainBroken)
		}
		want, err := rec.digest()
		if err != nil {
			return prev, n - 1, err
		}
		if want != rec.Hash {
			return prev, n - 1, fmt.Errorf("line %d: event was modified: %w", n, ErrChainBroken)
		}
		prev = rec.Hash
	}
	return prev, n, scanner.Err()
}
