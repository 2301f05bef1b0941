// Package qibla computes the great-circle direction to the Kaaba.
package qibla

import (
	"fmt"
	"math"
	"strings"

	"github.com/smokyabdulrahman/mawaqit/internal/prayer"
)

// Kaaba coordinates in degrees.
const (
	KaabaLat = 21.4225
	KaabaLon = 39.8262
)

const earthRadiusKm = 6371.0

// City is a known place with coordinates.
type City struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Cities are the backend's sections with known coordinates, so the bearing
// works offline for the selected city.
var Cities = []City{
	{"طرابلس", 32.8872, 13.1913},
	{"بنغازي", 32.1167, 20.0667},
	{"مصراتة", 32.3754, 15.0925},
	{"الزاوية", 32.7571, 12.7278},
	{"سبها", 27.0377, 14.4283},
	{"زليتن", 32.4674, 14.5687},
	{"البيضاء", 32.7627, 21.7551},
	{"درنة", 32.7648, 22.6392},
	{"سرت", 31.2089, 16.5887},
	{"غدامس", 30.1333, 9.5000},
	{"طبرق", 32.0836, 23.9764},
	{"الخمس", 32.6204, 14.2619},
	{"غريان", 32.1722, 13.0203},
	{"اجدابيا", 30.7556, 20.2263},
	{"مرزق", 25.9155, 13.8963},
	{"يفرن", 32.0629, 12.5263},
	{"نالوت", 31.8685, 10.9868},
	{"بنت بية", 31.2000, 16.6833},
	{"تاجوراء", 32.8817, 13.3506},
	{"هون", 29.1268, 15.9472},
	{"المرج", 32.4926, 20.8317},
}

// LookupCity finds a known city by name.
func LookupCity(name string) (City, bool) {
	name = strings.TrimSpace(name)
	for _, c := range Cities {
		if c.Name == name {
			return c, true
		}
	}
	return City{}, false
}

func rad(d float64) float64 { return d * math.Pi / 180 }
func deg(r float64) float64 { return r * 180 / math.Pi }

// Bearing returns the initial great-circle bearing from (lat, lon) to the
// Kaaba in degrees clockwise from true north, in [0, 360).
func Bearing(lat, lon float64) float64 {
	φ1, φ2 := rad(lat), rad(KaabaLat)
	Δλ := rad(KaabaLon - lon)

	y := math.Sin(Δλ) * math.Cos(φ2)
	x := math.Cos(φ1)*math.Sin(φ2) - math.Sin(φ1)*math.Cos(φ2)*math.Cos(Δλ)
	return math.Mod(deg(math.Atan2(y, x))+360, 360)
}

// Distance returns the haversine distance to the Kaaba in kilometres.
func Distance(lat, lon float64) float64 {
	φ1, φ2 := rad(lat), rad(KaabaLat)
	Δφ := rad(KaabaLat - lat)
	Δλ := rad(KaabaLon - lon)

	a := math.Sin(Δφ/2)*math.Sin(Δφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

var compass = []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// Compass names the eight-point direction nearest to bearing.
func Compass(bearing float64) string {
	i := int(math.Floor(math.Mod(bearing+22.5, 360) / 45))
	return compass[i]
}

// FormatArabic renders bearing with one decimal in Eastern Arabic digits.
func FormatArabic(bearing float64) string {
	return prayer.ToArabicNumerals(fmt.Sprintf("%.1f", bearing)) + "°"
}
