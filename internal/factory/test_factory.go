package factory

import (
	"time"

	"github.com/mcoot/rummy-tracker/internal/dependencies/mocks"
	"github.com/mcoot/rummy-tracker/internal/storage/memory"
	"github.com/mcoot/rummy-tracker/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Backing store for games and device-local state
	Memory *memory.Storage

	// Mocks for test control
	MockClock *mocks.MockClock
}

// NewTestApp creates an App configured for testing with mocked dependencies.
// Games and device-local state share one in-memory store.
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	app := newWithDependencies(store, store, mockClock, 10*time.Millisecond, testutil.NopLogger())

	return &TestApp{
		App:       app,
		Memory:    store,
		MockClock: mockClock,
	}
}
