package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/smokyabdulrahman/mawaqit/internal/api"
	"github.com/smokyabdulrahman/mawaqit/internal/controller"
	"github.com/smokyabdulrahman/mawaqit/internal/display"
	"github.com/smokyabdulrahman/mawaqit/internal/geo"
)

var testNow = time.Date(2026, 10, 19, 13, 0, 0, 0, time.UTC)

func record(day, month int) api.PrayerTime {
	return api.PrayerTime{
		ID:             day,
		Day:            day,
		Month:          month,
		FajrFirstTime:  "05:15",
		FajrSecondTime: "05:45",
		SunriseTime:    "06:45",
		DhuhrTime:      "12:15",
		AsrTime:        "15:30",
		MaghribTime:    "17:45",
		IshaTime:       "19:15",
		SectionID:      1,
		Name:           "طرابلس",
	}
}

// backend is a fake of the prayer-times API.
type backend struct {
	mu       sync.Mutex
	records  map[string][]api.PrayerTime
	hits     map[string]int
	token    string
	lastForm map[string]string
	lastQ    string
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	t.Helper()
	b := &backend{
		records: map[string][]api.PrayerTime{
			"طرابلس": {record(19, 10), record(20, 10)},
		},
		hits: map[string]int{},
	}
	srv := httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(srv.Close)
	return b, srv
}

func (b *backend) count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[path]
}

func (b *backend) serve(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.hits[r.URL.Path]++
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	authed := func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.token == "" || r.Header.Get("Authorization") != "Bearer "+b.token {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"unauthorized"}`))
			return false
		}
		return true
	}

	switch r.URL.Path {
	case "/prayer-times/list":
		b.mu.Lock()
		recs := b.records[r.URL.Query().Get("q")]
		b.mu.Unlock()
		if recs == nil {
			recs = []api.PrayerTime{}
		}
		json.NewEncoder(w).Encode(api.PrayerTimesResponse{PrayerTimes: recs})
	case "/sections/list":
		json.NewEncoder(w).Encode(api.SectionsResponse{
			Sections: []api.Section{{ID: 1, Name: "طرابلس"}, {ID: 2, Name: "بنغازي"}},
			Meta:     api.Meta{Total: 2, CurrentPage: 1, LastPage: 1},
		})
	case "/adhkar-categories/list":
		json.NewEncoder(w).Encode(api.AdhkarCategoriesResponse{
			Categories: []api.AdhkarCategory{{ID: 1, Name: "أذكار الصباح"}},
		})
	case "/adhkar/category":
		json.NewEncoder(w).Encode(api.AdhkarResponse{
			Adhkar: []api.Dhikr{{ID: 1, CategoryID: 1, Text: "سبحان الله وبحمده", Repeat: 100, Source: "مسلم"}},
		})
	case "/hadiths/topic":
		json.NewEncoder(w).Encode(api.HadithsResponse{
			Hadiths: []api.Hadith{{ID: 1, Topic: r.URL.Query().Get("topic"), Text: "إنما الأعمال بالنيات", Source: "البخاري"}},
		})
	case "/login":
		r.ParseForm()
		if r.PostForm.Get("phone_number") != "0910000000" || r.PostForm.Get("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid credentials"}`))
			return
		}
		tok := signedToken(testNow.Add(2 * time.Hour))
		b.mu.Lock()
		b.token = tok
		b.mu.Unlock()
		json.NewEncoder(w).Encode(api.LoginResponse{Token: tok})
	case "/me":
		if !authed() {
			return
		}
		json.NewEncoder(w).Encode(api.MeResponse{User: api.User{ID: 1, Name: "Admin", PhoneNumber: "0910000000", Role: "admin"}})
	case "/sections":
		if !authed() {
			return
		}
		form := map[string]string{}
		if r.Method != http.MethodDelete {
			if err := r.ParseMultipartForm(1 << 20); err == nil {
				for k, v := range r.MultipartForm.Value {
					form[k] = v[0]
				}
			}
		}
		b.mu.Lock()
		b.lastForm = form
		b.lastQ = r.URL.RawQuery
		b.mu.Unlock()
		json.NewEncoder(w).Encode(api.MutationResponse{Message: strings.ToLower(r.Method) + " ok"})
	default:
		http.NotFound(w, r)
	}
}

func signedToken(exp time.Time) string {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-key"))
	if err != nil {
		panic(err)
	}
	return tok
}

// harness runs commands in-process against a fake backend.
type harness struct {
	t        *testing.T
	baseURL  string
	cacheDir string
}

func newHarness(t *testing.T, baseURL string) *harness {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	display.SetEnabled(false)

	oldClock, oldDetect := clock, detectLocation
	clock = func() time.Time { return testNow }
	t.Cleanup(func() {
		clock, detectLocation = oldClock, oldDetect
		loadedConfig = nil
	})

	return &harness{t: t, baseURL: baseURL, cacheDir: t.TempDir()}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	root := NewRootCmd("v1.2.3-test")
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(""))

	all := append([]string{"--base-url", h.baseURL, "--cache-dir", h.cacheDir, "--log-level", "disabled"}, args...)
	root.SetArgs(all)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("%v: %v", args, err)
	}
	return out
}

func TestVersionFlag(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	got := strings.TrimSpace(h.mustRun("--version"))
	if got != "mawaqit version v1.2.3-test" {
		t.Errorf("--version = %q", got)
	}
}

func TestPrintVersion(t *testing.T) {
	if got := PrintVersion("v2"); got != "mawaqit v2\n" {
		t.Errorf("PrintVersion = %q", got)
	}
}

func TestToday_JSON(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	out := h.mustRun("--city", "طرابلس", "--json")

	var got todayJSON
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if got.City != "طرابلس" || got.Date != "2026-10-19" {
		t.Errorf("city/date = %q %q", got.City, got.Date)
	}
	if got.Period != "dhuhr" || got.Next.Prayer != "asr" || got.Next.Time != "15:30" {
		t.Errorf("period = %q, next = %+v", got.Period, got.Next)
	}
	if got.Next.Text != "2h 30m" {
		t.Errorf("next.text = %q", got.Next.Text)
	}
	if got.Iqama != "05:45" || got.Timings["isha"] != "19:15" {
		t.Errorf("iqama = %q, timings = %v", got.Iqama, got.Timings)
	}
	if math.Abs(got.Progress-23.08) > 0.01 {
		t.Errorf("progress = %v, want ~23.08", got.Progress)
	}
}

func TestToday_Rich(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	out := h.mustRun("--city", "طرابلس")
	for _, want := range []string{
		"Prayer Times · طرابلس",
		"Mon 19 Oct 2026",
		"الظهر",
		"iqama 05:45",
		"← next",
		"Now Dhuhr · Asr in 2h 30m",
		"23%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestToday_ArabicNumerals(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	out := h.mustRun("--city", "طرابلس", "--numerals", "arabic")
	if !strings.Contains(out, "٣:٣٠") {
		t.Errorf("expected Arabic digits:\n%s", out)
	}
}

func TestToday_NoCity(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	_, err := h.run()
	if !errors.Is(err, errNoCity) {
		t.Errorf("err = %v, want errNoCity", err)
	}
}

func TestToday_UnknownCity(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	_, err := h.run("--city", "أطلانتس")
	if err == nil || !strings.Contains(err.Error(), controller.MsgNotFound) {
		t.Errorf("err = %v", err)
	}
	if !errors.Is(err, api.ErrNoPrayerTimes) {
		t.Errorf("err should wrap ErrNoPrayerTimes: %v", err)
	}
}

func TestToday_InvalidFlag(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	_, err := h.run("--city", "طرابلس", "--time-format", "25h")
	if err == nil || !strings.Contains(err.Error(), "--time-format") {
		t.Errorf("err = %v", err)
	}
}

func TestToday_ServedFromCache(t *testing.T) {
	b, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	h.mustRun("--city", "طرابلس")
	h.mustRun("--city", "طرابلس", "--json")
	if n := b.count("/prayer-times/list"); n != 1 {
		t.Errorf("backend hit %d times, want 1", n)
	}
}

func TestNext_Formats(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	tests := []struct {
		args []string
		want string
	}{
		{nil, "Asr 15:30 (2h 30m)"},
		{[]string{"--format", "name-and-time"}, "Asr 15:30"},
		{[]string{"--format", "time-remaining"}, "2h 30m"},
		{[]string{"--format", "{{.ShortName}} {{printf \"%.0f\" .Progress}}%"}, "A 23%"},
		{[]string{"--time-format", "12h", "--format", "next-prayer-time"}, "3:30 PM"},
		{[]string{"--numerals", "arabic"}, "العصر ٣:٣٠ م"},
	}
	for _, tt := range tests {
		args := append([]string{"next", "--city", "طرابلس"}, tt.args...)
		out := h.mustRun(args...)
		if !strings.HasPrefix(out, tt.want) {
			t.Errorf("%v = %q, want prefix %q", tt.args, out, tt.want)
		}
	}
}

func TestNext_Upcoming(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	out := h.mustRun("next", "--city", "طرابلس", "--upcoming")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 6 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "Asr") || !strings.HasPrefix(lines[5], "Dhuhr") {
		t.Errorf("order should start at the next prayer:\n%s", out)
	}
}

func TestQuery(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	tests := []struct {
		arg  string
		want string
	}{
		{"asr", "15:30"},
		{"ISHA", "19:15"},
		{"iqama", "05:45"},
	}
	for _, tt := range tests {
		out := h.mustRun("query", tt.arg, "--city", "طرابلس")
		if strings.TrimSpace(out) != tt.want {
			t.Errorf("query %s = %q, want %q", tt.arg, out, tt.want)
		}
	}

	_, err := h.run("query", "brunch", "--city", "طرابلس")
	if err == nil || !strings.Contains(err.Error(), "valid prayers") {
		t.Errorf("err = %v", err)
	}
}

func TestQuery_JSON(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	out := h.mustRun("query", "fajr", "--city", "طرابلس", "--json")
	var got queryJSON
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if got.Prayer != "fajr" || got.Arabic != "الفجر" || got.Time != "05:15" || !got.Passed {
		t.Errorf("got %+v", got)
	}
}

func TestList(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	out := h.mustRun("list", "--city", "طرابلس")
	for _, want := range []string{"Date", "Maghrib", "19/10", "20/10", "17:45"} {
		if !strings.Contains(out, want) {
			t.Errorf("list missing %q:\n%s", want, out)
		}
	}

	if _, err := h.run("list", "--city", "طرابلس", "--month", "13"); err == nil {
		t.Error("expected error for month 13")
	}
	if _, err := h.run("list", "--city", "طرابلس", "--month", "3"); !errors.Is(err, api.ErrNoPrayerTimes) {
		t.Errorf("empty month err = %v", err)
	}
}

func TestCities(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	out := h.mustRun("cities", "--city", "طرابلس")
	if !strings.Contains(out, "بنغازي") || !strings.Contains(out, "طرابلس ✓") {
		t.Errorf("cities output:\n%s", out)
	}

	var resp api.SectionsResponse
	if err := json.Unmarshal([]byte(h.mustRun("cities", "--json")), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Sections) != 2 {
		t.Errorf("sections = %+v", resp.Sections)
	}
}

func TestSelect_PersistsCity(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	if out := h.mustRun("select", "طرابلس"); !strings.Contains(out, "Selected طرابلس") {
		t.Errorf("select output = %q", out)
	}

	data, err := os.ReadFile(filepath.Join(h.cacheDir, "selected_city"))
	if err != nil || strings.TrimSpace(string(data)) != "طرابلس" {
		t.Errorf("selected_city = %q, %v", data, err)
	}

	// Later commands fall back to the selection.
	out := h.mustRun("query", "dhuhr")
	if strings.TrimSpace(out) != "12:15" {
		t.Errorf("query after select = %q", out)
	}
}

func TestSelect_UnknownCity(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	if _, err := h.run("select", "أطلانتس"); !errors.Is(err, api.ErrNoPrayerTimes) {
		t.Errorf("err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(h.cacheDir, "selected_city")); !os.IsNotExist(err) {
		t.Error("an unknown city must not be saved")
	}
}

func TestQibla(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)
	detectLocation = func(ctx context.Context) (*geo.Location, error) {
		return &geo.Location{City: "London", Latitude: 51.5074, Longitude: -0.1278}, nil
	}

	tests := []struct {
		name    string
		args    []string
		place   string
		bearing float64
		compass string
	}{
		{"coordinates", []string{"--lat", "32.8872", "--lon", "13.1913"}, "", 109.17, "E"},
		{"known city", []string{"--city", "بنغازي"}, "بنغازي", 116.43, "SE"},
		{"geolocation", nil, "London", 118.99, "SE"},
	}
	for _, tt := range tests {
		out := h.mustRun(append([]string{"qibla", "--json"}, tt.args...)...)
		var got qiblaJSON
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got.Place != tt.place || got.Compass != tt.compass || math.Abs(got.Bearing-tt.bearing) > 0.05 {
			t.Errorf("%s: got %+v", tt.name, got)
		}
	}

	// The detected location is cached.
	detectLocation = func(ctx context.Context) (*geo.Location, error) {
		return nil, errors.New("offline")
	}
	if _, err := h.run("qibla"); err != nil {
		t.Errorf("cached location not used: %v", err)
	}
}

func TestQibla_FlagErrors(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	if _, err := h.run("qibla", "--lat", "32"); err == nil {
		t.Error("expected error for --lat without --lon")
	}
	if _, err := h.run("qibla", "--lat", "95", "--lon", "10"); err == nil {
		t.Error("expected error for latitude out of range")
	}
}

func TestAdhkarAndHadiths(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	if out := h.mustRun("adhkar"); !strings.Contains(out, "أذكار الصباح") {
		t.Errorf("categories:\n%s", out)
	}
	out := h.mustRun("adhkar", "--category", "1")
	if !strings.Contains(out, "سبحان الله وبحمده") || !strings.Contains(out, "×100 مسلم") {
		t.Errorf("adhkar:\n%s", out)
	}
	out = h.mustRun("hadiths", "--topic", "النية")
	if !strings.Contains(out, "إنما الأعمال بالنيات") || !strings.Contains(out, "النية · البخاري") {
		t.Errorf("hadiths:\n%s", out)
	}
}

func TestLoginWhoamiLogout(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	if _, err := h.run("whoami"); err == nil || !strings.Contains(err.Error(), "not logged in") {
		t.Errorf("whoami before login: %v", err)
	}

	if _, err := h.run("login", "--phone", "0910000000", "--password", "wrong"); !errors.Is(err, api.ErrUnauthorized) {
		t.Errorf("bad login err = %v", err)
	}

	out := h.mustRun("login", "--phone", "0910000000", "--password", "secret")
	if !strings.Contains(out, "Logged in") {
		t.Errorf("login output = %q", out)
	}

	out = h.mustRun("whoami")
	if !strings.Contains(out, "Admin (0910000000)") || !strings.Contains(out, "expires in 2h0m0s") {
		t.Errorf("whoami output:\n%s", out)
	}

	h.mustRun("logout")
	if _, err := h.run("whoami"); err == nil || !strings.Contains(err.Error(), "not logged in") {
		t.Errorf("whoami after logout: %v", err)
	}
}

func TestWhoami_ExpiredToken(t *testing.T) {
	b, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	tokenPath := filepath.Join(h.cacheDir, "token")
	if err := os.WriteFile(tokenPath, []byte(signedToken(testNow.Add(-time.Minute))+"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := h.run("whoami")
	if !errors.Is(err, api.ErrUnauthorized) || !strings.Contains(err.Error(), "mawaqit login") {
		t.Errorf("err = %v", err)
	}
	if _, err := os.Stat(tokenPath); !os.IsNotExist(err) {
		t.Error("expired token should be cleared")
	}
	if n := b.count("/me"); n != 0 {
		t.Errorf("/me called %d times with an expired token", n)
	}
}

func TestAdmin(t *testing.T) {
	b, srv := newBackend(t)
	h := newHarness(t, srv.URL)
	h.mustRun("login", "--phone", "0910000000", "--password", "secret")

	out := h.mustRun("admin", "sections", "create", "--field", "name=سرت")
	if strings.TrimSpace(out) != "post ok" {
		t.Errorf("create output = %q", out)
	}
	b.mu.Lock()
	if b.lastForm["name"] != "سرت" {
		t.Errorf("form = %v", b.lastForm)
	}
	b.mu.Unlock()

	h.mustRun("admin", "sections", "delete", "--query", "id=4")
	b.mu.Lock()
	if b.lastQ != "id=4" {
		t.Errorf("delete query = %q", b.lastQ)
	}
	b.mu.Unlock()

	errCases := [][]string{
		{"admin", "mosques", "list"},
		{"admin", "sections", "rename"},
		{"admin", "sections", "delete"},
		{"admin", "sections", "create"},
		{"admin", "sections", "create", "--field", "novalue"},
	}
	for _, args := range errCases {
		if _, err := h.run(args...); err == nil {
			t.Errorf("%v: expected error", args)
		}
	}
}

func TestParsePairs(t *testing.T) {
	got, err := parsePairs([]string{"day=1", "isha_time=19:20", "note="})
	if err != nil {
		t.Fatal(err)
	}
	if got["day"] != "1" || got["isha_time"] != "19:20" || got["note"] != "" {
		t.Errorf("got %v", got)
	}
	if _, err := parsePairs([]string{"=x"}); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestConfigCommands(t *testing.T) {
	_, srv := newBackend(t)
	h := newHarness(t, srv.URL)

	if out := h.mustRun("config", "set", "city", "طرابلس"); strings.TrimSpace(out) != "Set city = طرابلس" {
		t.Errorf("set output = %q", out)
	}
	if out := h.mustRun("config", "get", "city"); strings.TrimSpace(out) != "طرابلس" {
		t.Errorf("get output = %q", out)
	}
	if _, err := h.run("config", "set", "numerals", "roman"); err == nil {
		t.Error("expected validation error")
	}

	h.mustRun("config", "set", "redis_password", "hunter2")
	out := h.mustRun("config")
	if !strings.Contains(out, "طرابلس") || strings.Contains(out, "hunter2") {
		t.Errorf("config show:\n%s", out)
	}

	// The configured city is used without --city.
	if out := h.mustRun("query", "maghrib"); strings.TrimSpace(out) != "17:45" {
		t.Errorf("query with configured city = %q", out)
	}

	path := strings.TrimSpace(h.mustRun("config", "path"))
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file missing: %v", err)
	}
	h.mustRun("config", "reset")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("reset should delete the config file")
	}
}
