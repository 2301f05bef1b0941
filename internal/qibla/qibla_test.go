package qibla

import (
	"math"
	"testing"
)

func TestBearing(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		want     float64
	}{
		{"Tripoli", 32.8872, 13.1913, 109.17},
		{"London", 51.5074, -0.1278, 118.99},
		{"New York", 40.7128, -74.0060, 58.48},
		{"Jakarta", -6.2088, 106.8456, 295.15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Bearing(tt.lat, tt.lon)
			if math.Abs(got-tt.want) > 0.05 {
				t.Errorf("Bearing(%v, %v) = %.3f, want ~%.2f", tt.lat, tt.lon, got, tt.want)
			}
			if got < 0 || got >= 360 {
				t.Errorf("Bearing out of range: %v", got)
			}
		})
	}
}

func TestDistance(t *testing.T) {
	if d := Distance(KaabaLat, KaabaLon); d > 0.001 {
		t.Errorf("Distance at the Kaaba = %v, want 0", d)
	}
	// Tripoli to Makkah is roughly 2,900 km.
	if d := Distance(32.8872, 13.1913); d < 2850 || d > 3050 {
		t.Errorf("Distance from Tripoli = %.0f km", d)
	}
}

func TestCompass(t *testing.T) {
	tests := map[float64]string{0: "N", 22.4: "N", 22.5: "NE", 109.2: "E", 118.9: "SE", 295.2: "NW", 359.9: "N"}
	for in, want := range tests {
		if got := Compass(in); got != want {
			t.Errorf("Compass(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestLookupCity(t *testing.T) {
	c, ok := LookupCity(" بنغازي ")
	if !ok || c.Lat != 32.1167 {
		t.Errorf("LookupCity(بنغازي) = %+v, %v", c, ok)
	}
	if _, ok := LookupCity("Cairo"); ok {
		t.Error("unknown city should not be found")
	}
}

func TestFormatArabic(t *testing.T) {
	if got := FormatArabic(109.17); got != "١٠٩.٢°" {
		t.Errorf("FormatArabic = %q", got)
	}
}
