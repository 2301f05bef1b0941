// Package controller drives the live prayer view: it fetches a city's record,
// recomputes next/last/remaining/progress on a fixed interval and owns the
// active period theme. Displays read it through Snapshot and Subscribe.
package controller

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/mawaqit/internal/api"
	"github.com/smokyabdulrahman/mawaqit/internal/prayer"
)

// DefaultInterval is how often derived values are recomputed while Ready.
const DefaultInterval = time.Minute

// User-facing error messages.
const (
	MsgNotFound = "لم يتم العثور على مواقيت الصلاة لهذه المدينة"
	MsgGeneric  = "فشل في تحميل مواقيت الصلاة. الرجاء المحاولة مرة أخرى."
)

// State is the controller lifecycle state.
type State int

const (
	Idle State = iota
	Loading
	Ready
	Error
)

var stateNames = [...]string{"idle", "loading", "ready", "error"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ErrorKind separates a city without data from other failures, since the two
// call for different recovery actions.
type ErrorKind string

const (
	ErrorKindNone     ErrorKind = ""
	ErrorKindNotFound ErrorKind = "not_found"
	ErrorKindGeneric  ErrorKind = "generic"
)

// Fetcher loads today's record for a city.
type Fetcher interface {
	TodayPrayerTime(ctx context.Context, city string) (*api.PrayerTime, error)
}

// ViewModel is what displays render.
type ViewModel struct {
	State      State            `json:"state"`
	City       string           `json:"city,omitempty"`
	PrayerTime *api.PrayerTime  `json:"prayer_time,omitempty"`
	Loading    bool             `json:"loading"`
	Error      string           `json:"error,omitempty"`
	ErrorKind  ErrorKind        `json:"error_kind,omitempty"`
	Next       *prayer.Prayer   `json:"next,omitempty"`
	Last       *prayer.Prayer   `json:"last,omitempty"`
	Remaining  prayer.Remaining `json:"remaining"`
	Progress   float64          `json:"progress"`
	Theme      prayer.Name      `json:"theme"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithInterval sets the recompute interval. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// Controller is safe for concurrent use. Callbacks run on the goroutine that
// caused the change and never under the controller's lock. Deliveries are
// serialized and a model older than one already delivered is dropped, so
// callbacks must not call Select or Reload themselves.
type Controller struct {
	fetcher  Fetcher
	now      func() time.Time
	interval time.Duration
	log      zerolog.Logger

	mu       sync.Mutex
	vm       ViewModel
	gen      uint64
	seq      uint64
	cancel   context.CancelFunc
	stopTick chan struct{}
	closed   bool
	wg       sync.WaitGroup

	nextID    int
	subs      map[int]func(ViewModel)
	themeSubs map[int]func(prayer.Name)

	pubMu     sync.Mutex
	delivered uint64
	lastTheme prayer.Name
}

// New creates an Idle controller. The theme starts at Isha.
func New(f Fetcher, opts ...Option) *Controller {
	c := &Controller{
		fetcher:   f,
		now:       time.Now,
		interval:  DefaultInterval,
		log:       zerolog.Nop(),
		subs:      map[int]func(ViewModel){},
		themeSubs: map[int]func(prayer.Name){},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.vm = ViewModel{State: Idle, Theme: prayer.Isha, UpdatedAt: c.now()}
	c.lastTheme = prayer.Isha
	return c
}

// Select switches to city. Any in-flight fetch and the running ticker are
// abandoned; only the latest selection can reach Ready. An empty city
// returns the controller to Idle.
func (c *Controller) Select(city string) {
	city = strings.TrimSpace(city)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.haltLocked()
	c.gen++
	gen := c.gen
	theme := c.vm.Theme

	if city == "" {
		c.vm = ViewModel{State: Idle, Theme: theme, UpdatedAt: c.now()}
		vm, seq := c.vm, c.nextSeqLocked()
		c.mu.Unlock()
		c.publish(vm, seq)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.vm = ViewModel{State: Loading, City: city, Loading: true, Theme: theme, UpdatedAt: c.now()}
	vm, seq := c.vm, c.nextSeqLocked()
	c.wg.Add(1)
	c.mu.Unlock()

	c.log.Debug().Str("city", city).Uint64("generation", gen).Msg("loading prayer times")
	c.publish(vm, seq)
	go c.fetch(ctx, gen, city)
}

// Reload fetches the current city again. It does nothing when Idle.
func (c *Controller) Reload() {
	c.mu.Lock()
	city := c.vm.City
	c.mu.Unlock()
	if city != "" {
		c.Select(city)
	}
}

// Tick recomputes the derived values now. It does nothing unless Ready.
func (c *Controller) Tick() {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	c.tick(gen)
}

// Snapshot returns a copy of the current view model.
func (c *Controller) Snapshot() ViewModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vm.clone()
}

// Theme returns the active period.
func (c *Controller) Theme() prayer.Name {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.vm.Theme
}

// Subscribe registers fn for every view model change and returns a func that
// removes it.
func (c *Controller) Subscribe(fn func(ViewModel)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// OnThemeChange registers fn for period changes only.
func (c *Controller) OnThemeChange(fn func(prayer.Name)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID
	c.nextID++
	c.themeSubs[id] = fn
	return func() {
		c.mu.Lock()
		delete(c.themeSubs, id)
		c.mu.Unlock()
	}
}

// Close stops the fetch and the ticker and waits for both to exit.
// Later calls to Select are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.haltLocked()
	c.gen++
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Controller) fetch(ctx context.Context, gen uint64, city string) {
	defer c.wg.Done()

	rec, err := c.fetcher.TodayPrayerTime(ctx, city)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		c.log.Debug().Str("city", city).Uint64("generation", gen).Msg("discarding superseded fetch")
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	if err != nil {
		kind, msg := classify(err)
		c.vm = ViewModel{
			State:     Error,
			City:      city,
			Error:     msg,
			ErrorKind: kind,
			Theme:     c.vm.Theme,
			UpdatedAt: c.now(),
		}
		vm, seq := c.vm, c.nextSeqLocked()
		c.mu.Unlock()
		c.log.Warn().Err(err).Str("city", city).Str("kind", string(kind)).Msg("failed to load prayer times")
		c.publish(vm, seq)
		return
	}

	c.vm.State = Ready
	c.vm.Loading = false
	c.vm.PrayerTime = rec
	c.recomputeLocked()
	c.startTickerLocked(gen)
	vm, seq := c.vm.clone(), c.nextSeqLocked()
	c.mu.Unlock()

	c.log.Info().Str("city", city).Str("period", string(vm.Theme)).Msg("prayer times loaded")
	c.publish(vm, seq)
}

func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.vm.State != Ready {
		c.mu.Unlock()
		return
	}
	themeChanged := c.recomputeLocked()
	vm, seq := c.vm.clone(), c.nextSeqLocked()
	c.mu.Unlock()

	if themeChanged {
		c.log.Info().Str("city", vm.City).Str("period", string(vm.Theme)).Msg("period changed")
	}
	c.publish(vm, seq)
}

// recomputeLocked refreshes the derived fields and reports whether the
// classified period changed.
func (c *Controller) recomputeLocked() bool {
	now := c.now()
	rec := *c.vm.PrayerTime

	next := prayer.Next(rec, now)
	last := prayer.Last(rec, now)
	c.vm.Next = &next
	c.vm.Last = &last
	c.vm.Remaining = prayer.RemainingUntil(now, next.Time)
	c.vm.Progress = prayer.Progress(now, last.Time, next.Time)
	c.vm.UpdatedAt = now

	period := prayer.Period(rec, now)
	changed := period != c.vm.Theme
	c.vm.Theme = period
	return changed
}

func (c *Controller) startTickerLocked(gen uint64) {
	stop := make(chan struct{})
	c.stopTick = stop
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		t := time.NewTicker(c.interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				c.tick(gen)
			}
		}
	}()
}

// haltLocked cancels the in-flight fetch and stops the ticker.
func (c *Controller) haltLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.stopTick != nil {
		close(c.stopTick)
		c.stopTick = nil
	}
}

// nextSeqLocked stamps the model about to be published.
func (c *Controller) nextSeqLocked() uint64 {
	c.seq++
	return c.seq
}

// publish delivers vm unless a newer model already went out. Theme
// callbacks fire when the delivered period differs from the last one.
func (c *Controller) publish(vm ViewModel, seq uint64) {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	if seq <= c.delivered {
		c.log.Debug().Str("city", vm.City).Uint64("seq", seq).Msg("dropping superseded view model")
		return
	}
	c.delivered = seq
	themeChanged := vm.Theme != c.lastTheme
	c.lastTheme = vm.Theme

	c.mu.Lock()
	subs := make([]func(ViewModel), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	var themeSubs []func(prayer.Name)
	if themeChanged {
		for _, fn := range c.themeSubs {
			themeSubs = append(themeSubs, fn)
		}
	}
	c.mu.Unlock()

	for _, fn := range themeSubs {
		fn(vm.Theme)
	}
	for _, fn := range subs {
		fn(vm.clone())
	}
}

func classify(err error) (ErrorKind, string) {
	if errors.Is(err, api.ErrNoPrayerTimes) || errors.Is(err, api.ErrNotFound) {
		return ErrorKindNotFound, MsgNotFound
	}
	return ErrorKindGeneric, MsgGeneric
}

func (vm ViewModel) clone() ViewModel {
	if vm.PrayerTime != nil {
		rec := *vm.PrayerTime
		vm.PrayerTime = &rec
	}
	if vm.Next != nil {
		n := *vm.Next
		vm.Next = &n
	}
	if vm.Last != nil {
		l := *vm.Last
		vm.Last = &l
	}
	return vm
}
