package style

import "github.com/charmbracelet/lipgloss"

// Palette maps each part of an operation summary to a color. The status
// colors follow the transaction's final state.
type Palette struct {
	Frame lipgloss.Color
	Label lipgloss.Color
	Value lipgloss.Color
	Hint  lipgloss.Color

	Confirmed   lipgloss.Color
	Unconfirmed lipgloss.Color
	Failed      lipgloss.Color
	Rejected    lipgloss.Color // never left the client
}

// DefaultPalette is tuned for dark terminals.
func DefaultPalette() Palette {
	return Palette{
		Frame: lipgloss.Color("#00E5FF"),
		Label: lipgloss.Color("#6C7280"),
		Value: lipgloss.Color("#ECEFF4"),
		Hint:  lipgloss.Color("#B4BCC8"),

		Confirmed:   lipgloss.Color("#2AFFAA"),
		Unconfirmed: lipgloss.Color("#FFB500"),
		Failed:      lipgloss.Color("#FF5555"),
		Rejected:    lipgloss.Color("#FF1B6B"),
	}
}

// OutcomeStyles styles the summary printed after a liquidity operation.
type OutcomeStyles struct {
	Container lipgloss.Style
	Title     lipgloss.Style
	Label     lipgloss.Style
	Value     lipgloss.Style
	Hint      lipgloss.Style

	Confirmed   lipgloss.Style
	Unconfirmed lipgloss.Style
	Failed      lipgloss.Style
	Rejected    lipgloss.Style
}

// NewOutcomeStyles builds the summary styles from p.
func NewOutcomeStyles(p Palette) OutcomeStyles {
	status := func(c lipgloss.Color) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(c).Bold(true)
	}
	return OutcomeStyles{
		Container: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Frame).
			Padding(0, 2),
		Title: lipgloss.NewStyle().Foreground(p.Frame).Bold(true),
		// wide enough for "Signature"
		Label: lipgloss.NewStyle().Foreground(p.Label).Width(12),
		Value: lipgloss.NewStyle().Foreground(p.Value),
		Hint:  lipgloss.NewStyle().Foreground(p.Hint).Italic(true),

		Confirmed:   status(p.Confirmed),
		Unconfirmed: status(p.Unconfirmed),
		Failed:      status(p.Failed),
		Rejected:    status(p.Rejected),
	}
}
