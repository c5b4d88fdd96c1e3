package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/danielpatrickdp/agit/internal/policy"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#89b4fa"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6adc8")).Width(10)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c7086"))
	symbolStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f5c2e7"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#585b70")).
			Padding(0, 1)

	actionColors = map[policy.Action]lipgloss.Color{
		policy.Commit:         lipgloss.Color("#a6e3a1"),
		policy.GhostSave:      lipgloss.Color("#94e2d5"),
		policy.SplitSuggested: lipgloss.Color("#f9e2af"),
		policy.Wait:           lipgloss.Color("#9399b2"),
	}
)

// actionBadge renders an action as an upper-case colored label.
func actionBadge(a policy.Action) string {
	return lipgloss.NewStyle().Bold(true).Foreground(actionColors[a]).
		Render(strings.ToUpper(strings.ReplaceAll(string(a), "_", " ")))
}

// row renders one "label  value" line.
func row(label, value string) string {
	return labelStyle.Render(label) + " " + value
}
