// Package tui is a live terminal view of the prayer controller.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/smokyabdulrahman/mawaqit/internal/controller"
	"github.com/smokyabdulrahman/mawaqit/internal/prayer"
	"github.com/smokyabdulrahman/mawaqit/internal/theme"
)

// Source is the controller surface the view reads and drives.
type Source interface {
	Snapshot() controller.ViewModel
	Select(city string)
	Reload()
	Subscribe(fn func(controller.ViewModel)) (unsubscribe func())
}

type (
	tickMsg   time.Time
	updateMsg controller.ViewModel
)

// Option configures an App.
type Option func(*App)

// WithClock replaces time.Now for the countdown.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithTimeLayout sets the Latin clock layout, "15:04" or "3:04 PM".
func WithTimeLayout(layout string) Option {
	return func(a *App) { a.layout = layout }
}

// WithArabic starts the view with Arabic labels and digits.
func WithArabic(on bool) Option {
	return func(a *App) { a.arabic = on }
}

// WithCitySelected is called after a city is picked in the view, so the
// choice can be persisted.
func WithCitySelected(fn func(city string)) Option {
	return func(a *App) { a.onSelect = fn }
}

// App is the root Bubble Tea model.
type App struct {
	src     Source
	updates chan controller.ViewModel
	now     func() time.Time
	layout  string
	arabic  bool

	onSelect func(string)

	vm        controller.ViewModel
	bar       progress.Model
	barTheme  prayer.Name
	input     textinput.Model
	selecting bool
	help      help.Model
	width     int
	status    string
}

// NewApp builds the view over src. Call the returned stop func once the
// program has exited.
func NewApp(src Source, opts ...Option) (App, func()) {
	in := textinput.New()
	in.Placeholder = "طرابلس"
	in.Prompt = "City: "
	in.CharLimit = 64

	a := App{
		src:     src,
		updates: make(chan controller.ViewModel, 1),
		now:     time.Now,
		layout:  "15:04",
		input:   in,
		help:    help.New(),
	}
	for _, opt := range opts {
		opt(&a)
	}

	a.vm = src.Snapshot()
	a.bar, a.barTheme = newBar(a.vm.Theme), a.vm.Theme

	updates := a.updates
	stop := src.Subscribe(func(vm controller.ViewModel) {
		// Keep only the newest model if the view falls behind.
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- vm:
		default:
		}
	})
	return a, stop
}

func newBar(n prayer.Name) progress.Model {
	p := theme.For(n)
	return progress.New(progress.WithGradient(string(p.From), string(p.To)), progress.WithWidth(40))
}

func (a App) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(a.updates), tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForUpdate(ch <-chan controller.ViewModel) tea.Cmd {
	return func() tea.Msg {
		return updateMsg(<-ch)
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.help.Width = msg.Width
		a.bar.Width = min(max(msg.Width-12, 10), 60)
		return a, nil

	case tickMsg:
		return a, tickCmd()

	case updateMsg:
		a.setView(controller.ViewModel(msg))
		return a, waitForUpdate(a.updates)

	case tea.KeyMsg:
		if a.selecting {
			return a.updateSelecting(msg)
		}
		switch {
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.help.ShowAll = !a.help.ShowAll
		case key.Matches(msg, keys.Reload):
			a.status = "Reloading…"
			a.src.Reload()
		case key.Matches(msg, keys.Arabic):
			a.arabic = !a.arabic
		case key.Matches(msg, keys.Select):
			a.selecting = true
			a.input.SetValue("")
			cmd := a.input.Focus()
			return a, cmd
		}
		return a, nil
	}
	return a, nil
}

func (a App) updateSelecting(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		a.selecting = false
		a.input.Blur()
		return a, nil
	case key.Matches(msg, keys.Enter):
		city := strings.TrimSpace(a.input.Value())
		a.selecting = false
		a.input.Blur()
		if city == "" {
			return a, nil
		}
		a.status = "Selected " + city
		a.src.Select(city)
		if a.onSelect != nil {
			a.onSelect(city)
		}
		return a, nil
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) setView(vm controller.ViewModel) {
	if vm.Theme != a.barTheme {
		w := a.bar.Width
		a.bar = newBar(vm.Theme)
		a.bar.Width = w
		a.barTheme = vm.Theme
	}
	if vm.State != a.vm.State || vm.City != a.vm.City {
		a.status = ""
	}
	a.vm = vm
}

func (a App) View() string {
	pal := theme.For(a.vm.Theme)
	var b strings.Builder

	title := "Mawaqit"
	if a.vm.City != "" {
		title += " · " + a.vm.City
	}
	b.WriteString(pal.Accent().Render(pal.Icon+"  "+title) + "\n\n")

	switch a.vm.State {
	case controller.Idle:
		b.WriteString(subtitleStyle.Render("No city selected. Press s to choose one.") + "\n")
	case controller.Loading:
		b.WriteString(subtitleStyle.Render("Loading prayer times for "+a.vm.City+"…") + "\n")
	case controller.Error:
		b.WriteString(errorStyle.Render(a.vm.Error) + "\n")
		b.WriteString(subtitleStyle.Render("Press r to retry or s to pick another city.") + "\n")
	case controller.Ready:
		b.WriteString(pal.Panel().Render(a.readyView(pal)) + "\n")
	}

	if a.selecting {
		b.WriteString("\n" + a.input.View() + "\n")
	}
	if a.status != "" {
		b.WriteString("\n" + statusStyle.Render(a.status) + "\n")
	}
	b.WriteString("\n" + a.help.View(keys))
	return b.String()
}

func (a App) readyView(pal theme.Palette) string {
	now := a.now()
	var lines []string

	current := pal.Label
	if a.arabic {
		current = pal.Arabic
	}
	lines = append(lines, titleStyle.Render("Now: ")+pal.Accent().Render(current))

	next := a.upcoming(now)
	if next != nil {
		r := prayer.RemainingUntil(now, next.Time)
		if a.arabic {
			lines = append(lines, fmt.Sprintf("%s %s %s (%s)",
				titleStyle.Render("Next:"), next.Name.Arabic(), prayer.FormatClockArabic(next.Time), prayer.FormatRemainingArabic(r)))
		} else {
			lines = append(lines, fmt.Sprintf("%s %s at %s (in %s)",
				titleStyle.Render("Next:"), next.Name.Title(), next.Time.Format(a.layout), formatCountdown(r)))
		}
	}

	lines = append(lines, "", a.bar.ViewAs(a.vm.Progress/100), "")

	if a.vm.PrayerTime != nil {
		for _, p := range prayer.Schedule(*a.vm.PrayerTime, now) {
			lines = append(lines, a.scheduleRow(p, next))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// upcoming is the model's next prayer, resolved again from the record once
// the clock has reached it and the controller has not ticked yet.
func (a App) upcoming(now time.Time) *prayer.Prayer {
	if a.vm.Next == nil {
		return nil
	}
	next := *a.vm.Next
	if a.vm.PrayerTime != nil && !now.Before(next.Time) {
		next = prayer.Next(*a.vm.PrayerTime, now)
	}
	return &next
}

func (a App) scheduleRow(p prayer.Prayer, next *prayer.Prayer) string {
	marker := "  "
	style := rowStyle
	switch {
	case p.Name == a.vm.Theme:
		marker = "▶ "
		style = theme.For(p.Name).Accent()
	case next != nil && p.Name == next.Name:
		marker = "· "
	}

	name, clock := p.Name.Title(), p.Time.Format(a.layout)
	if a.arabic {
		name, clock = p.Name.Arabic(), prayer.FormatClockArabic(p.Time)
	}
	return style.Render(fmt.Sprintf("%s%-8s %s", marker, name, clock))
}

func formatCountdown(r prayer.Remaining) string {
	if r.Hours == 0 && r.Minutes == 0 {
		return fmt.Sprintf("%ds", r.Seconds)
	}
	return prayer.FormatRemaining(r.Duration())
}

// Run shows the view until the user quits or ctx is cancelled.
func Run(ctx context.Context, src Source, opts ...Option) error {
	app, stop := NewApp(src, opts...)
	defer stop()

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("terminal view: %w", err)
	}
	return nil
}
