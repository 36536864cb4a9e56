// Package clock lets the router and the HTTP layer ask for "now" through an
// interface, so that delay estimation and request validation can be tested
// against a fixed instant.
package clock

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
	NowUnixMilli() int64
}

// RealClock reads the system time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) NowUnixMilli() int64 { return time.Now().UnixMilli() }

// MockClock is a settable clock for tests. Safe for concurrent use.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *MockClock) NowUnixMilli() int64 {
	return m.Now().UnixMilli()
}

func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Advance moves the clock by d, which may be negative.
func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// EnvironmentClock pins "now" to a value read from an environment variable or
// a file, re-read on every call. It is used to replay a feed snapshot at the
// time it was captured. When neither source yields a valid time the system
// time is returned.
type EnvironmentClock struct {
	envVar   string
	filePath string
	location *time.Location
}

func NewEnvironmentClock(envVar string, filePath string, location *time.Location) *EnvironmentClock {
	return &EnvironmentClock{
		envVar:   envVar,
		filePath: filePath,
		location: location,
	}
}

func (e *EnvironmentClock) Now() time.Time {
	if raw, ok := e.readEnv(); ok {
		if t, err := e.parseTime(raw); err == nil {
			return t
		}
	}
	if raw, ok := e.readFile(); ok {
		if t, err := e.parseTime(raw); err == nil {
			return t
		}
	}
	slog.Warn("environment clock has no usable time source, using system time",
		slog.String("env_var", e.envVar), slog.String("file_path", e.filePath))
	return time.Now()
}

func (e *EnvironmentClock) NowUnixMilli() int64 {
	return e.Now().UnixMilli()
}

func (e *EnvironmentClock) readEnv() (string, bool) {
	if e.envVar == "" {
		return "", false
	}
	v := os.Getenv(e.envVar)
	return v, v != ""
}

func (e *EnvironmentClock) readFile() (string, bool) {
	if e.filePath == "" {
		return "", false
	}
	data, err := os.ReadFile(e.filePath)
	if err != nil {
		return "", false
	}
	return string(data), true
}

var localLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTime accepts RFC3339, or a local layout when a location is configured.
func (e *EnvironmentClock) parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if e.location == nil {
		return time.Time{}, errors.New("timezone not configured")
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, e.location); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time %q", s)
}
