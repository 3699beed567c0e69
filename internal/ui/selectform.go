package ui

import (
	"errors"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ErrNotInteractive is returned when a selection is needed but stdin is not
// a terminal
var ErrNotInteractive = errors.New("ui: not an interactive terminal")

// selectModel wraps a huh form in Bubble Tea for proper escape handling
type selectModel struct {
	form    *huh.Form
	aborted bool
}

func (m selectModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.aborted = true
			return m, tea.Quit
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, tea.Quit
	}

	return m, cmd
}

func (m selectModel) View() string {
	if m.form.State == huh.StateCompleted {
		return ""
	}
	return m.form.View()
}

// runSelect shows a single-choice list. ok is false if the user cancelled.
func runSelect[T comparable](title, description string, options []huh.Option[T], value *T) (ok bool, err error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, ErrNotInteractive
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[T]().
				Title(title).
				Description(description).
				Options(options...).
				Value(value),
		),
	).WithTheme(customTheme()).WithShowHelp(false)

	final, err := tea.NewProgram(selectModel{form: form}).Run()
	if err != nil {
		return false, err
	}
	return !final.(selectModel).aborted, nil
}

// customTheme returns a custom huh theme matching our style palette
func customTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = t.Focused.Title.Foreground(ColorPrimary).Bold(true)
	t.Focused.Description = t.Focused.Description.Foreground(ColorMuted)
	t.Focused.SelectedOption = t.Focused.SelectedOption.Foreground(ColorPrimary)
	t.Focused.UnselectedOption = t.Focused.UnselectedOption.Foreground(lipgloss.Color("#F9FAFB"))
	t.Focused.SelectSelector = t.Focused.SelectSelector.Foreground(ColorPrimary)

	return t
}
