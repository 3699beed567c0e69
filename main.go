package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pleimann/keymode/internal/action"
	"github.com/pleimann/keymode/internal/config"
	"github.com/pleimann/keymode/internal/hid"
	"github.com/pleimann/keymode/internal/mode"
	"github.com/pleimann/keymode/internal/state"
	"github.com/pleimann/keymode/internal/stats"
	"github.com/pleimann/keymode/internal/ui"
	"github.com/pleimann/keymode/internal/utils"
)

const Version = "0.1.0"

const defaultConfigPath = "config.yaml"

func main() {
	// Check for subcommands first
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "init":
			runInit(os.Args[2:])
			return
		case "list-devices":
			runListDevices()
			return
		case "set-device", "select-device":
			runSetDevice(os.Args[2:])
			return
		case "modes":
			runModes(os.Args[2:])
			return
		case "guide":
			runGuide(os.Args[2:])
			return
		case "select-mode":
			runSelectMode(os.Args[2:])
			return
		case "set-mode":
			runSetMode(os.Args[2:])
			return
		case "stats":
			runStats(os.Args[2:])
			return
		case "help", "-h", "--help":
			printUsage()
			os.Exit(0)
		}
	}

	// Main command flags
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	verbose := flag.Bool("verbose", false, "enable verbose logging")
	version := flag.Bool("version", false, "print version and exit")

	flag.Usage = printUsage
	flag.Parse()

	if *version {
		ui.PrintVersion(Version)
		os.Exit(0)
	}

	logger := newLogger(*verbose)
	slog.SetDefault(logger)

	watcher, err := config.NewWatcher(*configPath, logger)
	if err != nil {
		ui.PrintFatalError("Failed to load config", err.Error())
		if errors.Is(err, os.ErrNotExist) {
			fmt.Printf("Run %s to create one.\n", ui.Code(utils.ExecutableName()+" init -config "+*configPath))
		}
		os.Exit(1)
	}
	logger.Debug("loaded configuration", "path", *configPath, "source", watcher.Get().Input.Source)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(watcher, logger)
	if err != nil {
		watcher.Stop()
		ui.PrintFatalError("Failed to initialize", err.Error())
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		ui.PrintFatalError("Stopped", err.Error())
		os.Exit(1)
	}
	logger.Debug("shutdown complete")
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func printUsage() {
	ui.PrintUsage(Version)
}

// commandFlags creates the flag set shared by subcommands that read the config
func commandFlags(name, args, desc string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	fs.Usage = func() {
		ui.PrintCommandUsage(name, args, desc)
	}
	return fs, configPath
}

func mustLoad(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		ui.PrintFatalError("Failed to load config", err.Error())
		os.Exit(1)
	}
	return cfg
}

// mustModes loads the modes and the one the next run starts in
func mustModes(cfg *config.Config) (*mode.Manager, *state.File) {
	st := state.Open(cfg.State.Path)
	modes, err := mode.NewManager(modeDefinitions(cfg), startMode(cfg, st, slog.Default()), slog.Default())
	if err != nil {
		ui.PrintFatalError("Invalid modes", err.Error())
		os.Exit(1)
	}
	return modes, st
}

// runInit handles the init subcommand
func runInit(args []string) {
	fs, configPath := commandFlags("init", "", "Write a starter configuration file.")
	source := fs.String("source", config.SourceEvdev, "input source, evdev or hid")
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *source != config.SourceEvdev && *source != config.SourceHID {
		ui.PrintFatalError("Invalid source", fmt.Sprintf("%q: expected %s or %s", *source, config.SourceEvdev, config.SourceHID))
		os.Exit(1)
	}
	if config.Exists(*configPath) && !*force {
		ui.PrintFatalError("Config already exists", *configPath+" (use -force to overwrite)")
		os.Exit(1)
	}

	if err := config.CreateDefaultConfig(*configPath, *source, 0, 0); err != nil {
		ui.PrintFatalError("Failed to create config", err.Error())
		os.Exit(1)
	}
	ui.PrintConfigCreated(*configPath, *source)
}

// runListDevices handles the list-devices subcommand
func runListDevices() {
	devices, err := hid.ListDevices()
	if err != nil {
		ui.PrintFatalError("Failed to list devices", err.Error())
		os.Exit(1)
	}
	ui.PrintDeviceList(uiDevices(devices))
}

func uiDevices(devices []hid.DeviceInfo) []ui.DeviceInfo {
	out := make([]ui.DeviceInfo, len(devices))
	for i, d := range devices {
		out[i] = ui.DeviceInfo{
			VendorID:     d.VendorID,
			ProductID:    d.ProductID,
			Manufacturer: d.Manufacturer,
			Product:      d.Product,
		}
	}
	return out
}

// runSetDevice handles the set-device subcommand
func runSetDevice(args []string) {
	fs := flag.NewFlagSet("set-device", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	fs.Usage = func() {
		ui.PrintSetDeviceUsage()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	remaining := fs.Args()

	var vendorID, productID uint16

	if len(remaining) >= 2 {
		// Parse provided IDs
		vid, err := parseID(remaining[0])
		if err != nil {
			ui.PrintFatalError("Invalid vendor_id", fmt.Sprintf("%q: %v", remaining[0], err))
			os.Exit(1)
		}
		pid, err := parseID(remaining[1])
		if err != nil {
			ui.PrintFatalError("Invalid product_id", fmt.Sprintf("%q: %v", remaining[1], err))
			os.Exit(1)
		}
		vendorID = vid
		productID = pid
	} else if len(remaining) == 1 {
		ui.PrintFatalError("Invalid arguments", "Both vendor_id and product_id must be provided, or neither")
		os.Exit(1)
	} else {
		// Interactive selection
		device, err := selectDevice()
		if err != nil {
			ui.PrintFatalError("Device selection failed", err.Error())
			os.Exit(1)
		}
		if device == nil {
			fmt.Println(ui.Muted("No device selected"))
			os.Exit(0)
		}
		vendorID = device.VendorID
		productID = device.ProductID
	}

	// Update or create config file
	if config.Exists(*configPath) {
		if err := config.UpdateDeviceIDs(*configPath, vendorID, productID); err != nil {
			ui.PrintFatalError("Failed to update config", err.Error())
			os.Exit(1)
		}
		ui.PrintDeviceUpdated(*configPath, vendorID, productID)
	} else {
		if err := config.CreateDefaultConfig(*configPath, config.SourceHID, vendorID, productID); err != nil {
			ui.PrintFatalError("Failed to create config", err.Error())
			os.Exit(1)
		}
		ui.PrintDeviceCreated(*configPath, vendorID, productID)
	}
}

// runModes handles the modes subcommand
func runModes(args []string) {
	fs, configPath := commandFlags("modes", "", "List the configured modes. The marked mode is used at the next start.")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	modes, _ := mustModes(mustLoad(*configPath))
	ui.PrintModes(modes.Modes(), modes.Current().Name)
}

// runGuide handles the guide subcommand
func runGuide(args []string) {
	fs, configPath := commandFlags("guide", "", "Show the bindings of every mode.")
	only := fs.String("mode", "", "only show this mode")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg := mustLoad(*configPath)
	modes, _ := mustModes(cfg)
	table, err := action.NewTable(cfg)
	if err != nil {
		ui.PrintFatalError("Invalid bindings", err.Error())
		os.Exit(1)
	}

	shown := modes.Modes()
	if *only != "" {
		m, ok := modes.Lookup(*only)
		if !ok {
			ui.PrintFatalError("Unknown mode", fmt.Sprintf("%q is not one of %s", *only, strings.Join(cfg.ModeNames(), ", ")))
			os.Exit(1)
		}
		shown = []mode.Mode{m}
	}

	describe := commandDescriber(cfg)
	for _, m := range shown {
		ui.PrintGuide(m, table.Bindings(m.Name), describe)
	}
}

// commandDescriber returns a short description of each configured command
func commandDescriber(cfg *config.Config) func(id string) string {
	descriptions := make(map[string]string, len(cfg.Commands))
	for _, c := range cfg.Commands {
		var desc string
		switch c.Type {
		case config.CommandMode:
			desc = "mode " + c.Action
			if c.Target != "" {
				desc += " " + c.Target
			}
		case config.CommandExec:
			desc = strings.Join(c.Run, " ")
		case config.CommandKeys:
			desc = "keys " + strings.Join(c.Keys, " ")
		case config.CommandSnippet:
			desc = "snippet"
		}
		descriptions[c.ID] = desc
	}
	return func(id string) string {
		return descriptions[id]
	}
}

// runSelectMode handles the select-mode subcommand
func runSelectMode(args []string) {
	fs, configPath := commandFlags("select-mode", "", "Choose the mode the next run starts in.")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	modes, st := mustModes(mustLoad(*configPath))
	name, ok, err := ui.SelectMode(modes.Modes(), modes.Current().Name)
	if err != nil {
		if errors.Is(err, ui.ErrNotInteractive) {
			ui.PrintFatalError("Mode selection failed", "not a terminal, use "+utils.ExecutableName()+" set-mode NAME")
		} else {
			ui.PrintFatalError("Mode selection failed", err.Error())
		}
		os.Exit(1)
	}
	if !ok {
		fmt.Println(ui.Muted("No mode selected"))
		return
	}
	saveMode(modes, st, name)
}

// runSetMode handles the set-mode subcommand
func runSetMode(args []string) {
	fs, configPath := commandFlags("set-mode", "NAME", "Set the mode the next run starts in.")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(1)
	}

	modes, st := mustModes(mustLoad(*configPath))
	saveMode(modes, st, fs.Arg(0))
}

func saveMode(modes *mode.Manager, st *state.File, name string) {
	m, err := modes.Set(name)
	if err != nil {
		ui.PrintFatalError("Invalid mode", err.Error())
		os.Exit(1)
	}
	if err := st.SaveMode(m.Name); err != nil {
		ui.PrintFatalError("Failed to save state", err.Error())
		os.Exit(1)
	}
	ui.PrintModeSet(m, st.Path())
}

// runStats handles the stats subcommand
func runStats(args []string) {
	fs, configPath := commandFlags("stats", "", "Show usage statistics.")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	store, err := stats.Open(statsPath(mustLoad(*configPath)), slog.Default())
	if err != nil {
		ui.PrintFatalError("Failed to open statistics", err.Error())
		os.Exit(1)
	}
	defer store.Close()

	summary, err := store.Summary(context.Background())
	if err != nil {
		ui.PrintFatalError("Failed to read statistics", err.Error())
		os.Exit(1)
	}
	ui.PrintStats(summary)
}

// parseID parses a vendor or product ID from string (supports hex with 0x prefix or decimal)
func parseID(s string) (uint16, error) {
	s = strings.TrimSpace(s)

	var val uint64
	var err error

	if strings.HasPrefix(strings.ToLower(s), "0x") {
		val, err = strconv.ParseUint(s[2:], 16, 16)
	} else {
		val, err = strconv.ParseUint(s, 10, 16)
	}

	if err != nil {
		return 0, err
	}

	return uint16(val), nil
}

// selectDevice lets the user pick one of the connected devices
func selectDevice() (*ui.DeviceInfo, error) {
	devices, err := hid.ListDevices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no HID devices found")
	}

	candidates := hid.Candidates(devices)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no identifiable HID devices found")
	}
	return ui.SelectDevice(uiDevices(candidates))
}
