package playhead

import (
	"math"
	"testing"
	"time"
)

func TestAdvance(t *testing.T) {
	got := Advance(1.5, TickQuantum)
	if math.Abs(got-1.6) > 1e-9 {
		t.Errorf("Advance(1.5) = %g, want 1.6", got)
	}

	got = Advance(0, time.Second)
	if got != 1 {
		t.Errorf("Advance(0, 1s) = %g, want 1", got)
	}
}

func TestTimeAtPixel(t *testing.T) {
	tests := []struct {
		name string
		px   float64
		want float64
	}{
		{"origin", 0, 0},
		{"one second", 50, 1},
		{"fractional", 125, 2.5},
		{"left of ruler clamps", -30, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TimeAtPixel(tt.px, 50); got != tt.want {
				t.Errorf("TimeAtPixel(%g) = %g, want %g", tt.px, got, tt.want)
			}
		})
	}
}
