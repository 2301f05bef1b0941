package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smokyabdulrahman/mawaqit/internal/api"
	"github.com/smokyabdulrahman/mawaqit/internal/prayer"
)

func sampleRecord(name string) *api.PrayerTime {
	return &api.PrayerTime{
		Day:            19,
		Month:          10,
		FajrFirstTime:  "05:15",
		FajrSecondTime: "05:35",
		SunriseTime:    "06:45",
		DhuhrTime:      "12:15",
		AsrTime:        "15:30",
		MaghribTime:    "17:45",
		IshaTime:       "19:15",
		Name:           name,
	}
}

// fakeClock is a settable clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock(hour, minute int) *fakeClock {
	return &fakeClock{t: time.Date(2026, 10, 19, hour, minute, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(hour, minute int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = time.Date(2026, 10, 19, hour, minute, 0, 0, time.UTC)
}

// fakeFetcher answers with fn and records every city asked for.
type fakeFetcher struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, city string) (*api.PrayerTime, error)
}

func (f *fakeFetcher) TodayPrayerTime(ctx context.Context, city string) (*api.PrayerTime, error) {
	f.mu.Lock()
	f.calls = append(f.calls, city)
	f.mu.Unlock()
	return f.fn(ctx, city)
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func okFetcher() *fakeFetcher {
	return &fakeFetcher{fn: func(ctx context.Context, city string) (*api.PrayerTime, error) {
		return sampleRecord(city), nil
	}}
}

// waitFor polls until cond holds for the snapshot or fails the test.
func waitFor(t *testing.T, c *Controller, what string, cond func(ViewModel) bool) ViewModel {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		vm := c.Snapshot()
		if cond(vm) {
			return vm
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; last view model: %+v", what, vm)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func isState(s State) func(ViewModel) bool {
	return func(vm ViewModel) bool { return vm.State == s }
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func TestNew_Idle(t *testing.T) {
	c := New(okFetcher())
	defer c.Close()

	vm := c.Snapshot()
	if vm.State != Idle {
		t.Errorf("State = %s, want idle", vm.State)
	}
	if vm.Theme != prayer.Isha {
		t.Errorf("Theme = %s, want isha", vm.Theme)
	}
}

func TestSelect_Ready(t *testing.T) {
	clk := newClock(13, 0)
	c := New(okFetcher(), WithClock(clk.Now), WithInterval(time.Hour))
	defer c.Close()

	themes := make(chan prayer.Name, 4)
	c.OnThemeChange(func(n prayer.Name) { themes <- n })

	c.Select("طرابلس")
	vm := waitFor(t, c, "ready", isState(Ready))

	if vm.Loading {
		t.Error("Loading should be false once Ready")
	}
	if vm.City != "طرابلس" || vm.PrayerTime == nil {
		t.Fatalf("vm = %+v", vm)
	}
	if vm.Next == nil || vm.Next.Name != prayer.Asr {
		t.Errorf("Next = %+v, want asr", vm.Next)
	}
	if vm.Last == nil || vm.Last.Name != prayer.Dhuhr {
		t.Errorf("Last = %+v, want dhuhr", vm.Last)
	}
	if vm.Remaining != (prayer.Remaining{Hours: 2, Minutes: 30}) {
		t.Errorf("Remaining = %+v, want 2h30m", vm.Remaining)
	}
	if math.Abs(vm.Progress-23.0769) > 0.01 {
		t.Errorf("Progress = %.4f, want ~23.08", vm.Progress)
	}
	if vm.Theme != prayer.Dhuhr {
		t.Errorf("Theme = %s, want dhuhr", vm.Theme)
	}

	select {
	case got := <-themes:
		if got != prayer.Dhuhr {
			t.Errorf("theme callback = %s, want dhuhr", got)
		}
	case <-time.After(time.Second):
		t.Error("theme callback not called on first load")
	}
}

func TestSelect_PublishesLoadingThenReady(t *testing.T) {
	c := New(okFetcher(), WithClock(newClock(13, 0).Now), WithInterval(time.Hour))
	defer c.Close()

	var mu sync.Mutex
	var states []State
	c.Subscribe(func(vm ViewModel) {
		mu.Lock()
		states = append(states, vm.State)
		mu.Unlock()
	})

	c.Select("Tripoli")
	waitFor(t, c, "ready", isState(Ready))

	mu.Lock()
	defer mu.Unlock()
	if len(states) < 2 || states[0] != Loading || states[len(states)-1] != Ready {
		t.Errorf("states = %v, want loading ... ready", states)
	}
}

func TestSelect_EmptyCityIsIdle(t *testing.T) {
	f := okFetcher()
	c := New(f, WithClock(newClock(13, 0).Now), WithInterval(time.Hour))
	defer c.Close()

	c.Select("Tripoli")
	waitFor(t, c, "ready", isState(Ready))

	c.Select("  ")
	vm := c.Snapshot()
	if vm.State != Idle || vm.City != "" || vm.PrayerTime != nil {
		t.Errorf("vm = %+v, want idle", vm)
	}
	if vm.Theme != prayer.Dhuhr {
		t.Errorf("Theme = %s, the last period should be kept", vm.Theme)
	}
	if f.callCount() != 1 {
		t.Errorf("fetch calls = %d, want 1", f.callCount())
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

func TestSelect_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind ErrorKind
		wantMsg  string
	}{
		{"empty list", fmt.Errorf("%q: %w", "x", api.ErrNoPrayerTimes), ErrorKindNotFound, MsgNotFound},
		{"404", &api.StatusError{Code: 404}, ErrorKindNotFound, MsgNotFound},
		{"503", &api.StatusError{Code: 503, Body: "down"}, ErrorKindGeneric, MsgGeneric},
		{"network", errors.New("dial tcp: connection refused"), ErrorKindGeneric, MsgGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{fn: func(ctx context.Context, city string) (*api.PrayerTime, error) {
				return nil, tt.err
			}}
			c := New(f, WithInterval(time.Hour))
			defer c.Close()

			c.Select("x")
			vm := waitFor(t, c, "error", isState(Error))
			if vm.ErrorKind != tt.wantKind {
				t.Errorf("ErrorKind = %q, want %q", vm.ErrorKind, tt.wantKind)
			}
			if vm.Error != tt.wantMsg {
				t.Errorf("Error = %q, want %q", vm.Error, tt.wantMsg)
			}
			if vm.Loading || vm.Next != nil {
				t.Errorf("error view model should carry no data: %+v", vm)
			}
		})
	}
}

func TestTick_IgnoredInError(t *testing.T) {
	f := &fakeFetcher{fn: func(ctx context.Context, city string) (*api.PrayerTime, error) {
		return nil, errors.New("boom")
	}}
	c := New(f, WithInterval(time.Hour))
	defer c.Close()

	c.Select("x")
	before := waitFor(t, c, "error", isState(Error))
	c.Tick()
	after := c.Snapshot()
	if after.State != Error || !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Errorf("Tick changed an Error view model: %+v", after)
	}
}

// ---------------------------------------------------------------------------
// Concurrency
// ---------------------------------------------------------------------------

func TestSelect_LastSelectionWins(t *testing.T) {
	release := make(chan struct{})
	f := &fakeFetcher{fn: func(ctx context.Context, city string) (*api.PrayerTime, error) {
		if city == "slow" {
			<-release
		}
		return sampleRecord(city), nil
	}}
	c := New(f, WithClock(newClock(13, 0).Now), WithInterval(time.Hour))
	defer c.Close()

	c.Select("slow")
	c.Select("fast")
	waitFor(t, c, "fast ready", func(vm ViewModel) bool { return vm.State == Ready && vm.City == "fast" })

	close(release)
	// Give the stale fetch a chance to land.
	deadline := time.Now().Add(50 * time.Millisecond)
	for time.Now().Before(deadline) {
		vm := c.Snapshot()
		if vm.City != "fast" || vm.PrayerTime.Name != "fast" {
			t.Fatalf("stale fetch overwrote newer selection: %+v", vm)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestSelect_CancelsInFlightFetch(t *testing.T) {
	cancelled := make(chan struct{})
	f := &fakeFetcher{fn: func(ctx context.Context, city string) (*api.PrayerTime, error) {
		if city == "first" {
			<-ctx.Done()
			close(cancelled)
			return nil, ctx.Err()
		}
		return sampleRecord(city), nil
	}}
	c := New(f, WithClock(newClock(13, 0).Now), WithInterval(time.Hour))
	defer c.Close()

	c.Select("first")
	c.Select("second")

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("first fetch was not cancelled")
	}
	vm := waitFor(t, c, "second ready", isState(Ready))
	if vm.City != "second" {
		t.Errorf("City = %q, want second", vm.City)
	}
}

func TestSubscribe_SlowSubscriberKeepsOrder(t *testing.T) {
	c := New(okFetcher(), WithClock(newClock(13, 0).Now), WithInterval(time.Hour))
	defer c.Close()

	c.Select("A")
	waitFor(t, c, "A ready", isState(Ready))

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	c.Subscribe(func(vm ViewModel) {
		if vm.City == "A" {
			once.Do(func() {
				close(entered)
				<-release
			})
		}
	})

	var mu sync.Mutex
	var seen []string
	c.Subscribe(func(vm ViewModel) {
		mu.Lock()
		seen = append(seen, vm.City+"/"+vm.State.String())
		mu.Unlock()
	})

	go c.Tick()
	<-entered

	selected := make(chan struct{})
	go func() {
		c.Select("B")
		close(selected)
	}()
	waitFor(t, c, "B ready", func(vm ViewModel) bool { return vm.State == Ready && vm.City == "B" })
	close(release)

	select {
	case <-selected:
	case <-time.After(time.Second):
		t.Fatal("Select did not return after the subscriber was released")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		last := ""
		if len(seen) > 0 {
			last = seen[len(seen)-1]
		}
		mu.Unlock()
		if last == "B/ready" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("last delivered model = %q, want B/ready", last)
		}
		time.Sleep(2 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	sawB := false
	for _, s := range seen {
		if strings.HasPrefix(s, "B/") {
			sawB = true
		} else if sawB {
			t.Fatalf("model %s delivered after city B: %v", s, seen)
		}
	}
}

// ---------------------------------------------------------------------------
// Ticking and theme
// ---------------------------------------------------------------------------

func TestTick_ThemeChange(t *testing.T) {
	clk := newClock(15, 29)
	c := New(okFetcher(), WithClock(clk.Now), WithInterval(time.Hour))
	defer c.Close()

	c.Select("Tripoli")
	waitFor(t, c, "ready", isState(Ready))

	var mu sync.Mutex
	var changes []prayer.Name
	c.OnThemeChange(func(n prayer.Name) {
		mu.Lock()
		changes = append(changes, n)
		mu.Unlock()
	})

	c.Tick() // same minute, no change
	clk.Set(15, 31)
	c.Tick()

	vm := c.Snapshot()
	if vm.Theme != prayer.Asr || c.Theme() != prayer.Asr {
		t.Errorf("Theme = %s, want asr", vm.Theme)
	}
	if vm.Next.Name != prayer.Maghrib {
		t.Errorf("Next = %s, want maghrib", vm.Next.Name)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 1 || changes[0] != prayer.Asr {
		t.Errorf("theme changes = %v, want [asr]", changes)
	}
}

func TestTicker_RecomputesOnInterval(t *testing.T) {
	clk := newClock(19, 14)
	c := New(okFetcher(), WithClock(clk.Now), WithInterval(5*time.Millisecond))
	defer c.Close()

	c.Select("Tripoli")
	waitFor(t, c, "maghrib", func(vm ViewModel) bool { return vm.State == Ready && vm.Theme == prayer.Maghrib })

	clk.Set(19, 16)
	vm := waitFor(t, c, "isha via ticker", func(vm ViewModel) bool { return vm.Theme == prayer.Isha })
	if vm.Next.Name != prayer.Fajr || vm.Next.Time.Day() != 20 {
		t.Errorf("Next = %+v, want tomorrow's fajr", vm.Next)
	}
}

func TestUnsubscribe(t *testing.T) {
	c := New(okFetcher(), WithClock(newClock(13, 0).Now), WithInterval(time.Hour))
	defer c.Close()

	var mu sync.Mutex
	calls := 0
	unsub := c.Subscribe(func(ViewModel) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	unsub()

	c.Select("Tripoli")
	waitFor(t, c, "ready", isState(Ready))
	c.Tick()

	mu.Lock()
	defer mu.Unlock()
	if calls != 0 {
		t.Errorf("unsubscribed callback called %d times", calls)
	}
}

func TestReload(t *testing.T) {
	f := okFetcher()
	c := New(f, WithClock(newClock(13, 0).Now), WithInterval(time.Hour))
	defer c.Close()

	c.Reload() // idle, nothing to reload
	if f.callCount() != 0 {
		t.Fatalf("Reload while idle fetched %d times", f.callCount())
	}

	c.Select("Tripoli")
	waitFor(t, c, "ready", isState(Ready))
	c.Reload()
	waitFor(t, c, "ready again", isState(Ready))
	if f.callCount() != 2 {
		t.Errorf("fetch calls = %d, want 2", f.callCount())
	}
}

func TestClose_IgnoresLaterSelect(t *testing.T) {
	f := okFetcher()
	c := New(f)
	c.Close()
	c.Close()

	c.Select("Tripoli")
	if f.callCount() != 0 || c.Snapshot().State != Idle {
		t.Error("Select after Close should be ignored")
	}
}

func TestSnapshot_IsCopy(t *testing.T) {
	c := New(okFetcher(), WithClock(newClock(13, 0).Now), WithInterval(time.Hour))
	defer c.Close()

	c.Select("Tripoli")
	vm := waitFor(t, c, "ready", isState(Ready))
	vm.PrayerTime.IshaTime = "00:00"
	vm.Next.Name = prayer.Fajr

	again := c.Snapshot()
	if again.PrayerTime.IshaTime != "19:15" || again.Next.Name != prayer.Asr {
		t.Error("mutating a snapshot leaked into the controller")
	}
}

func TestViewModel_JSON(t *testing.T) {
	c := New(okFetcher(), WithClock(newClock(13, 0).Now), WithInterval(time.Hour))
	defer c.Close()

	c.Select("Tripoli")
	vm := waitFor(t, c, "ready", isState(Ready))

	data, err := json.Marshal(vm)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"state":"ready"`, `"theme":"dhuhr"`, `"next":{"name":"asr"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("JSON %s missing %s", data, want)
		}
	}
}
