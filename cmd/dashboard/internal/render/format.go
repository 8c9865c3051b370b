package render

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Color classifies a value for display.
type Color string

const (
	ColorFavorable Color = "favorable"
	ColorAdverse   Color = "adverse"
	ColorNeutral   Color = "neutral"
)

const (
	ArrowUp   = "↑"
	ArrowDown = "↓"
)

// Arrow follows the raw sign; zero counts as up.
func Arrow(d decimal.Decimal) string {
	if d.Sign() < 0 {
		return ArrowDown
	}
	return ArrowUp
}

// ColorOf follows the raw sign; zero counts as favorable.
func ColorOf(d decimal.Decimal) Color {
	if d.Sign() < 0 {
		return ColorAdverse
	}
	return ColorFavorable
}

// Invert swaps favorable and adverse.
func Invert(c Color) Color {
	switch c {
	case ColorFavorable:
		return ColorAdverse
	case ColorAdverse:
		return ColorFavorable
	}
	return c
}

// Price formats a currency value as "$1,234.50". Every price on the dashboard
// uses this one convention.
func Price(d decimal.Decimal) string {
	s := humanize.FormatFloat("#,###.##", d.Abs().Round(2).InexactFloat64())
	if d.Round(2).Sign() < 0 {
		return "-$" + s
	}
	return "$" + s
}

// SignedPercent formats "+1.23%" / "-0.50%" with the given decimals. The sign
// follows the raw value like Arrow and ColorOf, so -0.004 is "-0.00%". Zero
// gets a plus sign.
func SignedPercent(d decimal.Decimal, places int32) string {
	s := d.Abs().StringFixed(places)
	if d.Sign() < 0 {
		return "-" + s + "%"
	}
	return "+" + s + "%"
}

// UpdatedAgo is the "last update" label: seconds under a minute, minutes under
// an hour, then the wall clock time of the update.
func UpdatedAgo(last time.Time, ok bool, now time.Time) string {
	if !ok {
		return "updating..."
	}
	diff := now.Sub(last)
	if diff < 0 {
		diff = 0
	}
	switch {
	case diff < time.Minute:
		return fmt.Sprintf("%d sec ago", int(diff/time.Second))
	case diff < time.Hour:
		return fmt.Sprintf("%d min ago", int(diff/time.Minute))
	default:
		return last.Format("03:04 PM")
	}
}

// TimeAgo is the compact relative label used by feed items.
func TimeAgo(t, now time.Time) string {
	mins := int(now.Sub(t) / time.Minute)
	switch {
	case mins < 1:
		return "just now"
	case mins < 60:
		return fmt.Sprintf("%dm ago", mins)
	case mins < 60*24:
		return fmt.Sprintf("%dh ago", mins/60)
	default:
		return fmt.Sprintf("%dd ago", mins/(60*24))
	}
}

// SummaryAge is the summary header label.
func SummaryAge(generated, now time.Time) string {
	mins := int(now.Sub(generated) / time.Minute)
	if mins < 0 {
		mins = 0
	}
	if mins < 60 {
		return fmt.Sprintf("Updated %d min ago", mins)
	}
	hours := mins / 60
	if hours == 1 {
		return "Updated 1 hour ago"
	}
	return fmt.Sprintf("Updated %d hours ago", hours)
}
