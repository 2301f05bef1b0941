// Package theme maps each prayer period to its presentation: colors, an icon
// and labels. Renderers look a period up here instead of switching on it.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/smokyabdulrahman/mawaqit/internal/prayer"
)

// Palette is the presentation of one period.
type Palette struct {
	Name   prayer.Name    `json:"name"`
	Label  string         `json:"label"`
	Arabic string         `json:"arabic"`
	Icon   string         `json:"icon"`
	From   lipgloss.Color `json:"from"` // gradient start, also the accent
	To     lipgloss.Color `json:"to"`
	ANSI   string         `json:"-"` // 256-color foreground escape for plain terminals
}

var palettes = map[prayer.Name]Palette{
	prayer.Fajr: {
		Icon: "🌄",
		From: lipgloss.Color("#60A5FA"), To: lipgloss.Color("#2563EB"),
		ANSI: "\033[38;5;75m",
	},
	prayer.Sunrise: {
		Icon: "🌅",
		From: lipgloss.Color("#FACC15"), To: lipgloss.Color("#CA8A04"),
		ANSI: "\033[38;5;220m",
	},
	prayer.Dhuhr: {
		Icon: "☀️",
		From: lipgloss.Color("#38BDF8"), To: lipgloss.Color("#0284C7"),
		ANSI: "\033[38;5;39m",
	},
	prayer.Asr: {
		Icon: "🌤",
		From: lipgloss.Color("#FB923C"), To: lipgloss.Color("#EA580C"),
		ANSI: "\033[38;5;208m",
	},
	prayer.Maghrib: {
		Icon: "🌇",
		From: lipgloss.Color("#C084FC"), To: lipgloss.Color("#9333EA"),
		ANSI: "\033[38;5;141m",
	},
	prayer.Isha: {
		Icon: "🌙",
		From: lipgloss.Color("#818CF8"), To: lipgloss.Color("#4F46E5"),
		ANSI: "\033[38;5;105m",
	},
}

func init() {
	for n, p := range palettes {
		p.Name = n
		p.Label = n.Title()
		p.Arabic = n.Arabic()
		palettes[n] = p
	}
}

// For returns the palette of period n. Unknown names fall back to Isha, the
// period that covers the night and the state before any data is loaded.
func For(n prayer.Name) Palette {
	if p, ok := palettes[n]; ok {
		return p
	}
	return palettes[prayer.Isha]
}

// All returns every palette in period order.
func All() []Palette {
	out := make([]Palette, 0, len(prayer.Order))
	for _, n := range prayer.Order {
		out = append(out, palettes[n])
	}
	return out
}

// Accent is a bold foreground style in the period's accent color.
func (p Palette) Accent() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(p.From)
}

// Panel is a rounded border in the period's color.
func (p Palette) Panel() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.To).
		Padding(1, 2)
}
