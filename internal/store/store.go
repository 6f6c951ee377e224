package store

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/droidsweep/backend/internal/logging"
)

// Well-known keys. Each key has exactly one owning component.
const (
	KeyChatHistory = "chat-history"
	KeyTheme       = "theme-preference"
	KeySettings    = "app-settings"
)

// FailureHook observes swallowed store failures (telemetry side channel)
type FailureHook func(op, key string)

// Store is a file-backed key-value store with a fail-silent contract
type Store struct {
	dir  string
	log  *logging.Logger
	diag FailureHook
	mu   sync.Mutex // serializes writes
}

// Option configures a Store
type Option func(*Store)

// WithFailureHook registers a diagnostics callback for swallowed failures
func WithFailureHook(hook FailureHook) Option {
	return func(s *Store) {
		s.diag = hook
	}
}

// New creates a store rooted at dir, creating it if needed
func New(dir string, log *logging.Logger, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	s := &Store{
		dir: dir,
		log: log.Named("store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get retrieves the value for key, returning def when the key is missing
// or the stored bytes cannot be decoded. Never returns an error.
func Get[T any](s *Store, key string, def T) T {
	data, err := s.read(key)
	if err != nil {
		if !os.IsNotExist(err) {
			s.fail("get", key, err)
		}
		return def
	}

	var value T
	if err := sonic.Unmarshal(data, &value); err != nil {
		s.fail("get", key, err)
		return def
	}
	return value
}

// Set stores the value for key. Failures degrade to no-ops.
func Set[T any](s *Store, key string, value T) {
	data, err := sonic.Marshal(value)
	if err != nil {
		s.fail("set", key, err)
		return
	}

	if err := s.write(key, data); err != nil {
		s.fail("set", key, err)
	}
}

// Remove deletes the value for key. Removing an absent key is not a failure.
func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		s.fail("remove", key, err)
	}
}

// Has reports whether a value exists for key
func (s *Store) Has(key string) bool {
	_, err := os.Stat(s.path(key))
	return err == nil
}

// Dir returns the state directory
func (s *Store) Dir() string {
	return s.dir
}

// read loads and decompresses the stored bytes for key
func (s *Store) read(key string) ([]byte, error) {
	raw, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, err
	}

	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("corrupt value for %s: %w", key, err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("corrupt value for %s: %w", key, err)
	}
	return data, nil
}

// write compresses and atomically replaces the stored bytes for key
func (s *Store) write(key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	// Temp file + rename so readers never observe a partial write
	path := s.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// fail records a swallowed failure
func (s *Store) fail(op, key string, err error) {
	s.log.Warn("store operation failed",
		zap.String("op", op),
		zap.String("key", key),
		zap.Error(err),
	)
	if s.diag != nil {
		s.diag(op, key)
	}
}

// path maps a key to its backing file
func (s *Store) path(key string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(key)
	return filepath.Join(s.dir, safe+".json.gz")
}
