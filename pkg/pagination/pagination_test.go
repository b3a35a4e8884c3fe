package pagination

import (
	"testing"
	"time"
)

func TestNormalizeLimit(t *testing.T) {
	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Errorf("limit 0 = %d, want %d", got, DefaultLimit)
	}
	if got := NormalizeLimit(-5); got != DefaultLimit {
		t.Errorf("limit -5 = %d, want %d", got, DefaultLimit)
	}
	if got := NormalizeLimit(500); got != MaxLimit {
		t.Errorf("limit 500 = %d, want %d", got, MaxLimit)
	}
	if got := NormalizeLimit(30); got != 30 {
		t.Errorf("limit 30 = %d, want 30", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 123456789, time.UTC), ID: 42}
	encoded := EncodeCursor(in)

	out, err := ParseCursor(encoded)
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if out == nil {
		t.Fatal("expected cursor, got nil")
	}
	if !out.CreatedAt.Equal(in.CreatedAt) {
		t.Errorf("created_at = %s, want %s", out.CreatedAt, in.CreatedAt)
	}
	if out.ID != in.ID {
		t.Errorf("id = %d, want %d", out.ID, in.ID)
	}
}

func TestParseCursorEmptyReturnsNil(t *testing.T) {
	out, err := ParseCursor("   ")
	if err != nil {
		t.Fatalf("parse cursor: %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil cursor, got %+v", out)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if _, err := ParseCursor("not-base64!!"); err == nil {
		t.Fatal("expected decode error")
	}
}
