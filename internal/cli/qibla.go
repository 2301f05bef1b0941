package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smokyabdulrahman/mawaqit/internal/display"
	"github.com/smokyabdulrahman/mawaqit/internal/geo"
	"github.com/smokyabdulrahman/mawaqit/internal/prayer"
	"github.com/smokyabdulrahman/mawaqit/internal/qibla"
)

var (
	flagLat float64
	flagLon float64
)

// detectLocation is replaced in tests.
var detectLocation = geo.DetectLocation

func newQiblaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "qibla",
		Short: "Show the direction of the Qibla",
		Long: "Print the bearing from true north to the Kaaba. Coordinates come from\n" +
			"--lat/--lon, then the config, then the known coordinates of the city,\n" +
			"then IP geolocation.",
		Args: cobra.NoArgs,
		RunE: runQibla,
	}
	cmd.Flags().Float64Var(&flagLat, "lat", 0, "Latitude in degrees")
	cmd.Flags().Float64Var(&flagLon, "lon", 0, "Longitude in degrees")
	return cmd
}

type qiblaJSON struct {
	Place      string  `json:"place,omitempty"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Bearing    float64 `json:"bearing"`
	Compass    string  `json:"compass"`
	DistanceKm float64 `json:"distance_km"`
}

func runQibla(cmd *cobra.Command, args []string) error {
	latSet, lonSet := cmd.Flags().Changed("lat"), cmd.Flags().Changed("lon")
	if latSet != lonSet {
		return errors.New("--lat and --lon must be given together")
	}
	if latSet && (flagLat < -90 || flagLat > 90 || flagLon < -180 || flagLon > 180) {
		return fmt.Errorf("coordinates out of range: %g, %g", flagLat, flagLon)
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	var res qiblaJSON
	switch {
	case latSet:
		res.Latitude, res.Longitude = flagLat, flagLon
	case s.cfg.Latitude != 0 || s.cfg.Longitude != 0:
		res.Latitude, res.Longitude = s.cfg.Latitude, s.cfg.Longitude
	default:
		loc, err := s.locate(cmd)
		if err != nil {
			return err
		}
		res.Place, res.Latitude, res.Longitude = loc.City, loc.Latitude, loc.Longitude
	}

	res.Bearing = qibla.Bearing(res.Latitude, res.Longitude)
	res.Compass = qibla.Compass(res.Bearing)
	res.DistanceKm = qibla.Distance(res.Latitude, res.Longitude)

	out := cmd.OutOrStdout()
	if FlagJSON {
		return printJSON(out, res)
	}

	bearing := fmt.Sprintf("%.1f°", res.Bearing)
	distance := fmt.Sprintf("%.0f km", res.DistanceKm)
	if s.cfg.Arabic() {
		bearing = qibla.FormatArabic(res.Bearing)
		distance = prayer.ToArabicNumerals(fmt.Sprintf("%.0f", res.DistanceKm)) + " كم"
	}
	if res.Place != "" {
		fmt.Fprintf(out, "  %s\n", display.Bold("Qibla · "+res.Place))
	}
	fmt.Fprintf(out, "  %s %s from true north\n", display.Bold(bearing), res.Compass)
	fmt.Fprintf(out, "  %s\n", display.Dim(distance+" to the Kaaba"))
	return nil
}

// locate finds coordinates for the selected city, falling back to the
// cached or freshly detected IP location.
func (s *session) locate(cmd *cobra.Command) (*geo.Location, error) {
	if city, err := s.resolveCity(cmd.Context()); err == nil {
		if c, ok := qibla.LookupCity(city); ok {
			return &geo.Location{City: c.Name, Latitude: c.Lat, Longitude: c.Lon}, nil
		}
		s.log.Debug().Str("city", city).Msg("no coordinates for city, trying geolocation")
	}

	if s.files != nil {
		if loc := s.files.LoadGeo(); loc != nil {
			return loc, nil
		}
	}

	loc, err := detectLocation(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("%w (set coordinates with --lat/--lon or `mawaqit config set latitude ...`)", err)
	}
	if s.files != nil {
		if err := s.files.SaveGeo(loc); err != nil {
			s.log.Warn().Err(err).Msg("failed to cache location")
		}
	}
	return loc, nil
}
