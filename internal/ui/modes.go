package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/pleimann/keymode/internal/action"
	"github.com/pleimann/keymode/internal/mode"
	"github.com/pleimann/keymode/internal/stats"
)

// PrintModes lists the modes in cycle order, marking current
func PrintModes(modes []mode.Mode, current string) {
	fmt.Println()
	fmt.Println(Title("Modes"))
	fmt.Println(Muted("Cycle order; the marked mode is used at start"))
	fmt.Println()

	for _, m := range modes {
		name := ModeNameStyle.Render(m.Name)
		if strings.EqualFold(m.Name, current) {
			name = ActiveModeStyle.Render(m.Name)
		}
		fmt.Printf("  %d. %s  %s\n", m.Ordinal+1, name, m.Title)
	}
	fmt.Println()
}

// SelectMode asks the user to pick a mode. ok is false if the user cancelled.
func SelectMode(modes []mode.Mode, current string) (name string, ok bool, err error) {
	if len(modes) == 0 {
		return "", false, fmt.Errorf("no modes to select from")
	}

	options := make([]huh.Option[string], len(modes))
	for i, m := range modes {
		label := fmt.Sprintf("%s  %s", ModeNameStyle.Render(fmt.Sprintf("%-6s", m.Name)), m.Title)
		options[i] = huh.NewOption(label, m.Name).Selected(strings.EqualFold(m.Name, current))
	}

	name = current
	ok, err = runSelect("Select Mode", "Mode to start in (esc to cancel)", options, &name)
	return name, ok, err
}

// PrintModeSet confirms the persisted start mode
func PrintModeSet(m mode.Mode, statePath string) {
	fmt.Println()
	fmt.Println(Success("Start mode set to " + m.Label()))
	fmt.Printf("  %s %s\n", Muted("State:"), statePath)
	fmt.Println()
}

// PrintGuide shows what each gesture does in m. describe returns a short
// description of a command id.
func PrintGuide(m mode.Mode, bindings []action.Binding, describe func(id string) string) {
	fmt.Println(ActiveModeStyle.Render(m.Name) + " " + Subtitle(m.Title))

	if len(bindings) == 0 {
		fmt.Println(Muted("  No bindings"))
		fmt.Println()
		return
	}

	rows := make([][]string, 0, len(bindings))
	for _, b := range bindings {
		cmd := b.Command
		if b.Mode == action.AnyMode {
			cmd += " *"
		}
		rows = append(rows, []string{b.Key, string(b.Pattern), cmd, describe(b.Command)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorMuted)).
		Headers("KEY", "GESTURE", "COMMAND", "DOES").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return BoldStyle.Padding(0, 1)
			}
			switch col {
			case 0:
				return KeyStyle.Padding(0, 1)
			case 1:
				return GestureStyle.Padding(0, 1)
			case 2:
				return CommandStyle.Padding(0, 1)
			default:
				return MutedStyle.Padding(0, 1)
			}
		})

	fmt.Println(t.Render())
	fmt.Println(Muted("  * applies in every mode"))
	fmt.Println()
}

// PrintStats displays the usage summary
func PrintStats(s stats.Summary) {
	fmt.Println()
	fmt.Println(Title("Usage"))
	if s.Sessions == 0 {
		fmt.Println(Muted("  Nothing recorded yet"))
		fmt.Println()
		return
	}
	fmt.Println(Muted("Since " + s.FirstUse.Local().Format("Jan 2, 2006")))
	fmt.Println()

	orNA := func(v string) string {
		if v == "" {
			return "n/a"
		}
		return v
	}
	lines := []struct {
		label string
		value string
	}{
		{"Gestures", fmt.Sprint(s.Gestures)},
		{"Commands run", fmt.Sprint(s.Actions)},
		{"Failed", fmt.Sprint(s.Failures)},
		{"Mode changes", fmt.Sprint(s.ModeChanges)},
		{"Sessions", fmt.Sprint(s.Sessions)},
		{"Active time", s.ActiveTime.Round(time.Minute).String()},
		{"Streak", fmt.Sprintf("%d day(s)", s.StreakDays)},
		{"Favourite mode", orNA(s.FavoriteMode)},
		{"Favourite command", orNA(s.FavoriteCommand)},
	}

	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s %s", MutedStyle.Width(18).Render(l.label), StatValueStyle.Render(l.value))
	}
	fmt.Println(BoxStyle.Render(b.String()))
	fmt.Println()
}
