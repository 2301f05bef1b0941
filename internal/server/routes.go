package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/mawaqit/internal/controller"
	"github.com/smokyabdulrahman/mawaqit/internal/prayer"
	"github.com/smokyabdulrahman/mawaqit/internal/qibla"
	"github.com/smokyabdulrahman/mawaqit/internal/theme"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	// cors treats an empty origin list as allow-all.
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/view", s.view)
		r.Get("/events", s.events)
		r.Get("/theme", s.theme)
		r.Get("/schedule", s.schedule)
		r.Get("/qibla", s.qibla)
		r.Post("/city", s.selectCity)
	})

	return r
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Debug().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("request_id", middleware.GetReqID(r.Context())).
					Int("status", ww.Status()).
					Dur("duration", time.Since(start)).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	success(w, http.StatusOK, map[string]string{"status": "up"}, "ok")
}

func (s *Server) view(w http.ResponseWriter, r *http.Request) {
	success(w, http.StatusOK, s.src.Snapshot(), "")
}

type themeResponse struct {
	theme.Palette
	State controller.State `json:"state"`
}

func (s *Server) theme(w http.ResponseWriter, r *http.Request) {
	vm := s.src.Snapshot()
	success(w, http.StatusOK, themeResponse{Palette: theme.For(vm.Theme), State: vm.State}, "")
}

type scheduleEntry struct {
	Name    prayer.Name `json:"name"`
	Label   string      `json:"label"`
	Arabic  string      `json:"arabic"`
	Time    time.Time   `json:"time"`
	Clock   string      `json:"clock"`
	Iqama   *time.Time  `json:"iqama,omitempty"`
	Current bool        `json:"current"`
	Next    bool        `json:"next"`
}

func (s *Server) schedule(w http.ResponseWriter, r *http.Request) {
	vm := s.src.Snapshot()
	if vm.State != controller.Ready || vm.PrayerTime == nil {
		failure(w, http.StatusConflict, "No prayer times loaded", map[string]string{"state": vm.State.String()})
		return
	}

	now := s.now()
	rec := *vm.PrayerTime
	var next prayer.Name
	if vm.Next != nil {
		next = vm.Next.Name
	}

	entries := make([]scheduleEntry, 0, len(prayer.Order))
	for _, p := range prayer.Schedule(rec, now) {
		e := scheduleEntry{
			Name:    p.Name,
			Label:   p.Name.Title(),
			Arabic:  p.Name.Arabic(),
			Time:    p.Time,
			Clock:   p.Time.Format("15:04"),
			Current: p.Name == vm.Theme,
			Next:    p.Name == next,
		}
		if p.Name == prayer.Fajr && rec.FajrSecondTime != "" {
			iq := prayer.Iqama(rec, now)
			e.Iqama = &iq
		}
		entries = append(entries, e)
	}

	success(w, http.StatusOK, map[string]any{
		"city":     vm.City,
		"date":     now.Format("2006-01-02"),
		"prayers":  entries,
		"progress": vm.Progress,
	}, "")
}

type qiblaResponse struct {
	City     string  `json:"city,omitempty"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Bearing  float64 `json:"bearing"`
	Compass  string  `json:"compass"`
	Distance float64 `json:"distance_km"`
}

// qibla resolves ?lat=&lon=, else ?city=, else the selected city.
func (s *Server) qibla(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var resp qiblaResponse

	if q.Has("lat") || q.Has("lon") {
		lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
		lon, errLon := strconv.ParseFloat(q.Get("lon"), 64)
		if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			failure(w, http.StatusBadRequest, "Invalid coordinates", map[string]string{
				"lat": "must be a number in [-90, 90]",
				"lon": "must be a number in [-180, 180]",
			})
			return
		}
		resp.Lat, resp.Lon = lat, lon
	} else {
		name := q.Get("city")
		if name == "" {
			name = s.src.Snapshot().City
		}
		c, ok := qibla.LookupCity(name)
		if !ok {
			failure(w, http.StatusNotFound, "Unknown city", fmt.Sprintf("no coordinates for %q", name))
			return
		}
		resp.City, resp.Lat, resp.Lon = c.Name, c.Lat, c.Lon
	}

	resp.Bearing = qibla.Bearing(resp.Lat, resp.Lon)
	resp.Compass = qibla.Compass(resp.Bearing)
	resp.Distance = qibla.Distance(resp.Lat, resp.Lon)
	success(w, http.StatusOK, resp, "")
}

type selectRequest struct {
	City string `json:"city"`
}

func (s *Server) selectCity(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		failure(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}
	city := strings.TrimSpace(req.City)
	if city == "" {
		failure(w, http.StatusBadRequest, "Missing required fields", map[string]string{
			"city": "city is required",
		})
		return
	}

	if s.saver != nil {
		if err := s.saver.SetSelectedCity(r.Context(), city); err != nil {
			s.log.Warn().Err(err).Str("city", city).Msg("failed to persist selected city")
		}
	}
	s.src.Select(city)
	success(w, http.StatusAccepted, s.src.Snapshot(), "city selected")
}
