package layout

import (
	"image"
	"testing"
)

func TestCenterVertical(t *testing.T) {
	got := CenterVertical(image.Rect(10, 0, 50, 32), 16, 16)
	if want := image.Rect(10, 8, 26, 24); got != want {
		t.Fatalf("CenterVertical = %v, want %v", got, want)
	}
	// Taller than the column is clamped.
	got = CenterVertical(image.Rect(0, 0, 8, 32), 20, 40)
	if want := image.Rect(0, 0, 8, 32); got != want {
		t.Fatalf("CenterVertical clamp = %v, want %v", got, want)
	}
}

func TestCenter(t *testing.T) {
	panel := image.Rect(0, 0, 128, 32)
	tests := []struct {
		name string
		w, h int
		want image.Rectangle
	}{
		{"narrow", 28, 12, image.Rect(50, 10, 78, 22)},
		{"exact", 128, 32, panel},
		{"wide keeps start", 300, 32, image.Rect(0, 0, 300, 32)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Center(panel, tt.w, tt.h); got != tt.want {
				t.Errorf("Center = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	r := image.Rectangle{Min: image.Pt(5, 9), Max: image.Pt(1, 2)}
	if got, want := Normalize(r), image.Rect(1, 2, 5, 9); got != want {
		t.Fatalf("Normalize = %v, want %v", got, want)
	}
}
