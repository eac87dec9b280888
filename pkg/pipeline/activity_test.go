package pipeline

import (
	"testing"
	"time"
)

func TestActivityLogBounded(t *testing.T) {
	log := NewActivityLog(4)

	for i := 1; i <= 10; i++ {
		log.Append(LevelInfo, "event %d", i)
	}

	if log.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", log.Len())
	}

	entries := log.Recent(0)
	want := []string{"event 7", "event 8", "event 9", "event 10"}
	for i, entry := range entries {
		if entry.Message != want[i] {
			t.Errorf("entry %d = %q, want %q", i, entry.Message, want[i])
		}
	}
}

func TestActivityLogRecentLimit(t *testing.T) {
	log := NewActivityLog(8)
	log.Append(LevelInfo, "a")
	log.Append(LevelWarn, "b")
	log.Append(LevelError, "c")

	entries := log.Recent(2)
	if len(entries) != 2 {
		t.Fatalf("Recent(2) returned %d entries", len(entries))
	}
	if entries[0].Message != "b" || entries[1].Message != "c" {
		t.Errorf("Recent(2) = [%q %q], want [b c]", entries[0].Message, entries[1].Message)
	}
	if entries[1].Level != LevelError {
		t.Errorf("level = %v, want error", entries[1].Level)
	}
}

func TestActivityLogEmpty(t *testing.T) {
	log := NewActivityLog(0)
	if got := log.Recent(10); len(got) != 0 {
		t.Errorf("Recent on empty log = %v", got)
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{Level(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.level.String(); got != tt.want {
			t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
		}
	}
}

func TestRateMeterSlidingWindow(t *testing.T) {
	m := newRateMeter(time.Second)
	base := time.Now()

	for i := 0; i < 10; i++ {
		m.mark(base.Add(time.Duration(i) * 10 * time.Millisecond))
	}

	if got := m.rate(base.Add(500 * time.Millisecond)); got != 10 {
		t.Errorf("rate inside window = %v, want 10", got)
	}
	if got := m.rate(base.Add(3 * time.Second)); got != 0 {
		t.Errorf("rate after window = %v, want 0", got)
	}
}
