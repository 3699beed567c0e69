package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pleimann/keymode/internal/utils"
)

type example struct {
	cmd  string
	desc string
}

type subcommand struct {
	name string
	desc string
}

var subcommands = []subcommand{
	{"init", "Write a starter configuration"},
	{"modes", "List the configured modes"},
	{"guide", "Show what every key does in each mode"},
	{"select-mode", "Choose the mode to start in"},
	{"set-mode", "Set the mode to start in"},
	{"stats", "Show usage statistics"},
	{"list-devices", "List available HID devices"},
	{"set-device", "Configure the HID macropad"},
	{"help", "Show this help message"},
}

// PrintUsage displays the styled help/usage text
func PrintUsage(version string) {
	exe := utils.ExecutableName()

	banner := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		Render(exe)

	versionTag := lipgloss.NewStyle().
		Foreground(ColorMuted).
		Render("v" + version)

	fmt.Printf("%s %s\n", banner, versionTag)
	fmt.Println(Muted("Modal hotkeys: one key, many gestures, a command per mode"))
	fmt.Println()

	fmt.Println(Bold("Usage"))
	fmt.Printf("  %s [flags]              Run the gesture engine\n", exe)
	fmt.Printf("  %s <command> [args]     Run a command\n", exe)
	fmt.Println()

	printSection("Flags", []string{
		"-config string    Path to configuration file (default \"config.yaml\")",
		"-verbose          Enable debug logging",
		"-version          Print version and exit",
	})

	fmt.Println(Bold("Commands"))
	cmdStyle := lipgloss.NewStyle().
		Foreground(ColorSecondary).
		Bold(true)
	width := 0
	for _, c := range subcommands {
		width = max(width, len(c.name))
	}
	for _, c := range subcommands {
		padding := strings.Repeat(" ", width-len(c.name)+2)
		fmt.Printf("  %s%s%s\n", cmdStyle.Render(c.name), padding, c.desc)
	}
	fmt.Println()
	fmt.Printf("Run %s for command options.\n", Code(exe+" <command> -h"))
	fmt.Println()

	printExamples([]example{
		{exe, "Run with config.yaml"},
		{exe + " -config ~/.config/keymode/config.yaml", "Run with another config file"},
		{exe + " init -source hid", "Start a config for a HID macropad"},
		{exe + " guide -mode GIT", "Show the GIT mode bindings"},
		{exe + " set-mode AI", "Start in AI mode next time"},
	})
}

func printSection(title string, items []string) {
	fmt.Println(Bold(title))
	for _, item := range items {
		fmt.Printf("  %s\n", item)
	}
	fmt.Println()
}

func printExamples(examples []example) {
	fmt.Println(Bold("Examples"))

	cmdStyle := lipgloss.NewStyle().
		Foreground(ColorSecondary)

	maxLen := 0
	for _, ex := range examples {
		maxLen = max(maxLen, len(ex.cmd))
	}

	for _, ex := range examples {
		padding := strings.Repeat(" ", maxLen-len(ex.cmd)+2)
		fmt.Printf("  %s%s%s\n", cmdStyle.Render(ex.cmd), padding, Muted(ex.desc))
	}
	fmt.Println()
}

func printOption(name, desc string) {
	fmt.Printf("  %s %s\n", SubtitleStyle.Width(18).Render(name), desc)
}

// PrintCommandUsage displays help for a subcommand that takes only -config
func PrintCommandUsage(name, args, desc string) {
	exe := utils.ExecutableName()
	usage := exe + " " + name + " [options]"
	if args != "" {
		usage += " " + args
	}

	fmt.Println(Bold("Usage:"), usage)
	fmt.Println()
	fmt.Println(desc)
	fmt.Println()

	fmt.Println(Bold("Options"))
	printOption("-config string", `Path to configuration file (default "config.yaml")`)
	switch name {
	case "init":
		printOption("-source string", `Input source, evdev or hid (default "evdev")`)
		printOption("-force", "Overwrite an existing file")
	case "guide":
		printOption("-mode string", "Only show this mode")
	}
	fmt.Println()
}

// PrintSetDeviceUsage displays the styled help text for set-device subcommand
func PrintSetDeviceUsage() {
	exe := utils.ExecutableName()

	fmt.Println(Bold("Usage:"), exe+" set-device [options] [vendor_id product_id]")
	fmt.Println()
	fmt.Println("Set the HID macropad in the configuration file.")
	fmt.Println()
	fmt.Println(Muted("If vendor_id and product_id are provided, updates the config directly."))
	fmt.Println(Muted("Otherwise, displays a list of connected devices to choose from."))
	fmt.Println()

	fmt.Println(Bold("Arguments"))
	printOption("vendor_id", "Device vendor ID (hex with 0x prefix or decimal)")
	printOption("product_id", "Device product ID (hex with 0x prefix or decimal)")
	fmt.Println()

	fmt.Println(Bold("Options"))
	printOption("-config string", `Path to configuration file (default "config.yaml")`)
	fmt.Println()

	printExamples([]example{
		{exe + " set-device", "Interactive selection"},
		{exe + " set-device 0x1234 0x5678", "Direct specification"},
		{exe + " set-device -config my.yaml", "Use different config"},
	})
}

// PrintVersion displays the styled version information
func PrintVersion(version string) {
	banner := lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		Render(utils.ExecutableName())

	versionTag := lipgloss.NewStyle().
		Foreground(ColorSuccess).
		Render("v" + version)

	fmt.Printf("%s %s\n", banner, versionTag)
}

// PrintError displays a styled error message
func PrintError(message string) {
	fmt.Println(Error(message))
}

// PrintFatalError displays a styled fatal error message with context
func PrintFatalError(context, message string) {
	fmt.Println()
	fmt.Println(Error(context))
	fmt.Printf("  %s\n", Muted(message))
	fmt.Println()
}

// PrintConfigCreated shows where a starter config was written
func PrintConfigCreated(path, source string) {
	fmt.Println()
	fmt.Println(Success("Configuration created"))
	fmt.Println()
	fmt.Printf("  %s %s\n", Muted("Config:"), path)
	fmt.Printf("  %s %s\n", Muted("Input:"), source)
	fmt.Println()
	fmt.Printf("Edit the bindings, then run %s\n", Code(utils.ExecutableName()+" -config "+path))
}
