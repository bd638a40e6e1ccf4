package engine

import (
	"testing"
	"time"

	"github.com/versokit/verso/internal/config"
	"github.com/versokit/verso/internal/db"
	"github.com/versokit/verso/internal/errors"
)

// newTestStore opens a real SQLite store in a temp directory.
func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return db.NewStore(database)
}

func testConfig() *config.Config {
	return config.DefaultConfig()
}

// stubNow pins the engine clock and restores it on cleanup.
func stubNow(t *testing.T, ts time.Time) {
	t.Helper()
	orig := now
	now = func() time.Time { return ts }
	t.Cleanup(func() { now = orig })
}

func TestParseTimestamp(t *testing.T) {
	t.Run("RFC 3339", func(t *testing.T) {
		got, err := ParseTimestamp("2024-06-15T10:30:00Z")
		if err != nil {
			t.Fatalf("ParseTimestamp() error = %v", err)
		}
		want := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC).UnixMilli()
		if got != want {
			t.Errorf("ParseTimestamp() = %d, want %d", got, want)
		}
	})

	t.Run("unix millis", func(t *testing.T) {
		got, err := ParseTimestamp("1718447400000")
		if err != nil {
			t.Fatalf("ParseTimestamp() error = %v", err)
		}
		if got != 1718447400000 {
			t.Errorf("ParseTimestamp() = %d, want 1718447400000", got)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, err := ParseTimestamp(""); !errors.Is(err, errors.ErrValidation) {
			t.Errorf("ParseTimestamp(\"\") error = %v, want VALIDATION", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := ParseTimestamp("next tuesday"); !errors.Is(err, errors.ErrValidation) {
			t.Errorf("ParseTimestamp(garbage) error = %v, want VALIDATION", err)
		}
	})

	t.Run("negative millis", func(t *testing.T) {
		if _, err := ParseTimestamp("-5"); !errors.Is(err, errors.ErrValidation) {
			t.Errorf("ParseTimestamp(-5) error = %v, want VALIDATION", err)
		}
	})
}

func TestGenerateULID_Unique(t *testing.T) {
	stubNow(t, time.UnixMilli(1700000000000))

	a, err := generateULID()
	if err != nil {
		t.Fatalf("generateULID() error = %v", err)
	}
	b, err := generateULID()
	if err != nil {
		t.Fatalf("generateULID() error = %v", err)
	}
	if a == b {
		t.Error("two ULIDs in the same millisecond collided")
	}
}
