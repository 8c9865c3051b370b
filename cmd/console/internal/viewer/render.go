package viewer

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4"))
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	symbolStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	favorableStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	adverseStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	featuredStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	noticeStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
)

func colorStyle(c string) lipgloss.Style {
	switch c {
	case "favorable":
		return favorableStyle
	case "adverse":
		return adverseStyle
	default:
		return dimStyle
	}
}

// Render draws the whole board.
func (b *Board) Render() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var sb strings.Builder

	last := "updating..."
	if b.status != nil {
		last = b.status.LastUpdate
	}
	sb.WriteString(titleStyle.Render(" PULSE ") + "  " + dimStyle.Render("Last update: "+last) + "\n\n")

	if b.indices != nil {
		if b.indices.State != "ready" {
			sb.WriteString(dimStyle.Render(b.indices.Message) + "\n")
		}
		var parts []string
		for _, t := range b.indices.Tickers {
			parts = append(parts, t.Label+" "+colorStyle(t.Color).Render(t.Value+" "+t.Arrow))
		}
		if len(parts) > 0 {
			sb.WriteString(strings.Join(parts, "   ") + "\n\n")
		}
	}

	if w := b.watchlist; w != nil {
		sb.WriteString(headerStyle.Render("WATCHLIST") + "  " + colorStyle(w.Color).Render(w.Aggregate) + "\n")
		if w.Message != "" {
			sb.WriteString(dimStyle.Render(w.Message) + "\n")
		}
		for _, c := range w.Cards {
			sb.WriteString("  " + symbolStyle.Render(pad(c.Symbol, 6)) + " " + pad(c.Price, 12) + " " +
				colorStyle(c.Color).Render(pad(c.Percent, 8)+" "+c.Arrow) + "  " + dimStyle.Render(c.Name) + "\n")
		}
		sb.WriteString("\n")
	}

	if s := b.suggestions; s != nil {
		sb.WriteString(headerStyle.Render("SUGGESTED") + "  ")
		if s.State != "ready" {
			sb.WriteString(dimStyle.Render(s.Message))
		}
		for _, c := range s.Chips {
			sb.WriteString(c.Symbol + " " + colorStyle(c.Color).Render(c.Percent) + "  ")
		}
		sb.WriteString("\n\n")
	}

	if s := b.summary; s != nil {
		sb.WriteString(headerStyle.Render("MARKET SUMMARY"))
		if s.Updated != "" {
			sb.WriteString("  " + dimStyle.Render(s.Updated))
		}
		sb.WriteString("\n" + s.Text + "\n\n")
	}

	if f := b.feed; f != nil && len(f.Items) > 0 {
		sb.WriteString(headerStyle.Render("PULSE") + "\n")
		for _, it := range f.Items {
			handle := symbolStyle.Render(it.Handle)
			if it.Featured {
				handle = featuredStyle.Render("★ " + it.Handle)
			}
			sb.WriteString("  " + handle + " " + dimStyle.Render(it.Age) + "\n    " + it.Text + "\n")
			if it.URL != "" {
				sb.WriteString("    " + dimStyle.Render(it.URL) + "\n")
			}
		}
	}

	return sb.String()
}

func pad(s string, n int) string {
	if w := lipgloss.Width(s); w < n {
		return s + strings.Repeat(" ", n-w)
	}
	return s
}
