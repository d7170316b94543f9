package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklahomer/go-kasumi/logger"
	"github.com/oklahomer/go-kasumi/retry"
)

const (
	// readTrials is how many times a malformed file is re-read before giving up.
	// A concurrent writer outside this process may leave a half-written file for a moment.
	readTrials = 3

	defaultRetryInterval = time.Second
)

// JSONFile persists a single value of type T as an indented JSON document.
// A missing file reads as the zero value of T.
// Writes go to a temporary file in the same directory that is renamed over the target.
type JSONFile[T any] struct {
	path          string
	retryInterval time.Duration
	mu            sync.Mutex
}

// NewJSONFile returns a JSONFile stored at path.
func NewJSONFile[T any](path string) *JSONFile[T] {
	return &JSONFile[T]{
		path:          path,
		retryInterval: defaultRetryInterval,
	}
}

// Path returns the file location.
func (f *JSONFile[T]) Path() string {
	return f.path
}

// Load reads the current value.
func (f *JSONFile[T]) Load() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

// Save replaces the stored value.
func (f *JSONFile[T]) Save(v T) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(v)
}

// Update reads the value, passes it to fn and saves the result while holding the lock.
// Nothing is written when fn returns an error.
func (f *JSONFile[T]) Update(fn func(v *T) error) (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, err := f.read()
	if err != nil {
		return v, err
	}

	if err := fn(&v); err != nil {
		return v, err
	}

	if err := f.write(v); err != nil {
		return v, err
	}
	return v, nil
}

func (f *JSONFile[T]) read() (T, error) {
	var v T
	err := retry.WithInterval(readTrials, func() error {
		v = *new(T)
		b, err := os.ReadFile(f.path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if len(b) == 0 {
			return nil
		}

		if err := json.Unmarshal(b, &v); err != nil {
			logger.Warnf("Bad JSON read of %s, retrying: %+v", f.path, err)
			return err
		}
		return nil
	}, f.retryInterval)
	if err != nil {
		return *new(T), fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	return v, nil
}

func (f *JSONFile[T]) write(v T) error {
	b, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", f.path, err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file for %s: %w", f.path, err)
	}
	tmpPath := tmp.Name()

	_, err = tmp.Write(b)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}
