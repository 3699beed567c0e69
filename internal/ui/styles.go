package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	ColorPrimary   = lipgloss.Color("#0EA5E9") // Sky
	ColorSecondary = lipgloss.Color("#8B5CF6") // Violet
	ColorSuccess   = lipgloss.Color("#22C55E") // Green
	ColorWarning   = lipgloss.Color("#F59E0B") // Amber
	ColorError     = lipgloss.Color("#EF4444") // Red
	ColorMuted     = lipgloss.Color("#6B7280") // Gray
	ColorSubtle    = lipgloss.Color("#9CA3AF") // Light gray
	ColorText      = lipgloss.Color("#F9FAFB")
	ColorPanel     = lipgloss.Color("#1F2937")
)

// Text styles
var (
	TitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary)
	SubtitleStyle = lipgloss.NewStyle().Foreground(ColorSecondary)
	SuccessStyle  = lipgloss.NewStyle().Foreground(ColorSuccess)
	WarningStyle  = lipgloss.NewStyle().Foreground(ColorWarning)
	ErrorStyle    = lipgloss.NewStyle().Bold(true).Foreground(ColorError)
	MutedStyle    = lipgloss.NewStyle().Foreground(ColorMuted)
	BoldStyle     = lipgloss.NewStyle().Bold(true)

	CodeStyle = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Background(ColorPanel).
			Padding(0, 1)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1)
)

// Device listing styles
var (
	DeviceIDStyle           = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)
	DeviceNameStyle         = lipgloss.NewStyle().Foreground(ColorText)
	DeviceManufacturerStyle = lipgloss.NewStyle().Foreground(ColorMuted)
)

// Mode and binding styles
var (
	ModeNameStyle = lipgloss.NewStyle().Foreground(ColorSecondary).Bold(true)

	// ActiveModeStyle marks the mode keymode starts in
	ActiveModeStyle = lipgloss.NewStyle().
			Foreground(ColorText).
			Background(ColorPrimary).
			Bold(true).
			Padding(0, 1)

	KeyStyle       = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	GestureStyle   = lipgloss.NewStyle().Foreground(ColorSubtle)
	CommandStyle   = lipgloss.NewStyle().Foreground(ColorText)
	StatValueStyle = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
)

func Title(text string) string { return TitleStyle.Render(text) }
func Subtitle(text string) string { return SubtitleStyle.Render(text) }
func Muted(text string) string { return MutedStyle.Render(text) }
func Code(text string) string { return CodeStyle.Render(text) }
func Bold(text string) string { return BoldStyle.Render(text) }

// Success, Warning and Error prefix text with a status mark
func Success(text string) string { return SuccessStyle.Render("✓ " + text) }
func Warning(text string) string { return WarningStyle.Render("⚠ " + text) }
func Error(text string) string { return ErrorStyle.Render("✗ " + text) }
