package terminal

import (
	"errors"
	"testing"
)

func TestParseSizeReport(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Size
		wantErr bool
	}{
		{"standard", "\x1b[8;24;80t", Size{Rows: 24, Cols: 80}, false},
		{"large", "\x1b[8;60;240t", Size{Rows: 60, Cols: 240}, false},
		{"single cell", "\x1b[8;1;1t", Size{Rows: 1, Cols: 1}, false},
		{"wrong prefix", "\x1b[9;24;80t", Size{}, true},
		{"garbage", "hello", Size{}, true},
		{"missing terminator", "\x1b[8;24;80", Size{}, true},
		{"missing cols", "\x1b[8;24t", Size{}, true},
		{"zero rows", "\x1b[8;0;80t", Size{}, true},
		{"non numeric", "\x1b[8;2x;80t", Size{}, true},
		{"too large", "\x1b[8;24;5000t", Size{}, true},
		{"extra field", "\x1b[8;24;80;1t", Size{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSizeReport([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got %+v", got)
				}
				if !errors.Is(err, ErrHandshake) {
					t.Errorf("Expected ErrHandshake, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestSizeReportComplete(t *testing.T) {
	if SizeReportComplete([]byte("\x1b[8;24;")) {
		t.Error("Expected partial report to be incomplete")
	}
	if !SizeReportComplete([]byte("\x1b[8;24;80t")) {
		t.Error("Expected full report to be complete")
	}
}

func TestAppendCursorPos(t *testing.T) {
	got := string(AppendCursorPos(nil, 0, 0))
	if got != "\x1b[1;1H" {
		t.Errorf("Expected 1-based origin, got %q", got)
	}
	got = string(AppendCursorPos(nil, 119, 999))
	if got != "\x1b[1000;120H" {
		t.Errorf("Expected \\x1b[1000;120H, got %q", got)
	}
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#f6aab7")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if c != SnowPink {
		t.Errorf("Expected %v, got %v", SnowPink, c)
	}
	if c.Hex() != "#f6aab7" {
		t.Errorf("Expected #f6aab7, got %s", c.Hex())
	}
	if _, err := ParseHex("pink"); err == nil {
		t.Error("Expected error for non-hex color")
	}
}
