package daemon

import "testing"

func TestParsePhotoFilename(t *testing.T) {
	tests := []struct {
		name     string
		wantDate string
		wantSlot PhotoSlot
		wantOK   bool
	}{
		{"2026-01-06_front.jpg", "2026-01-06", PhotoSlotFront, true},
		{"2026-01-06_side.jpeg", "2026-01-06", PhotoSlotSide, true},
		{"2026-01-06_back.png", "2026-01-06", PhotoSlotBack, true},
		{"2026-01-06_front.heic", "2026-01-06", PhotoSlotFront, true},
		// Case-insensitive on the whole name.
		{"2026-01-06_FRONT.JPG", "2026-01-06", PhotoSlotFront, true},
		// Not the convention: ignored, not an error.
		{"IMG_20260106.jpg", "", "", false},
		{"2026-01-06_top.jpg", "", "", false},
		{"2026-01-06_front.gif", "", "", false},
		{"2026-01-06_front.jpg.tmp", "", "", false},
		{"front.jpg", "", "", false},
	}

	for _, tt := range tests {
		date, slot, ok := ParsePhotoFilename(tt.name)
		if ok != tt.wantOK {
			t.Errorf("ParsePhotoFilename(%q) ok = %v, want %v", tt.name, ok, tt.wantOK)
			continue
		}
		if date != tt.wantDate || slot != tt.wantSlot {
			t.Errorf("ParsePhotoFilename(%q) = (%q, %q), want (%q, %q)",
				tt.name, date, slot, tt.wantDate, tt.wantSlot)
		}
	}
}
