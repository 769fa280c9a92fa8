package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/reedham/tether/pkg/engine"
	"github.com/reedham/tether/pkg/logger"
	"github.com/reedham/tether/pkg/tetherdir"
)

func main() {
	// Subcommands are dispatched before flag parsing so each can define its
	// own flag set.
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "init":
			fs := flag.NewFlagSet("init", flag.ExitOnError)
			dir := fs.String("tether-dir", ".tether", "path to .tether directory")
			tmpl := fs.String("template", "", "config template to use (\"list\" to see available templates)")
			fs.Usage = func() {
				fmt.Fprintf(os.Stderr, "Usage: tether init [flags]\n\nCreate a .tether directory with a starter config.\n\n")
				fs.PrintDefaults()
			}
			_ = fs.Parse(os.Args[2:])
			exitOnError(runInit(*dir, *tmpl))
			return

		case "mcp":
			fs := flag.NewFlagSet("mcp", flag.ExitOnError)
			configPath := fs.String("config", "", "path to configuration file")
			dir := fs.String("tether-dir", ".tether", "path to .tether directory")
			envFile := fs.String("env", ".env", "path to .env file (ignored if missing)")
			fs.Usage = func() {
				fmt.Fprintf(os.Stderr, "Usage: tether mcp [flags]\n\nServe the bundled search tools over MCP stdio.\n\n")
				fs.PrintDefaults()
			}
			_ = fs.Parse(os.Args[2:])
			exitOnError(loadDotEnv(*envFile))
			exitOnError(runMCP(*configPath, *dir))
			return

		case "sessions":
			fs := flag.NewFlagSet("sessions", flag.ExitOnError)
			dir := fs.String("tether-dir", ".tether", "path to .tether directory")
			rm := fs.String("rm", "", "delete the session with this id")
			fs.Usage = func() {
				fmt.Fprintf(os.Stderr, "Usage: tether sessions [flags]\n\nList saved sessions (resume one with tether -resume <id>).\n\n")
				fs.PrintDefaults()
			}
			_ = fs.Parse(os.Args[2:])
			exitOnError(runSessions(*dir, *rm))
			return
		}
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tether [flags]\n\nCommands:\n")
		fmt.Fprintf(os.Stderr, "  init       Create a .tether directory with a starter config\n")
		fmt.Fprintf(os.Stderr, "  mcp        Serve the bundled search tools over MCP stdio\n")
		fmt.Fprintf(os.Stderr, "  sessions   List saved sessions\n\nFlags:\n")
		flag.PrintDefaults()
	}

	configPath := flag.String("config", "", "path to configuration file (default: .tether/config.yaml or tether.yaml)")
	tetherDir := flag.String("tether-dir", ".tether", "path to .tether directory")
	envFile := flag.String("env", ".env", "path to .env file (ignored if missing)")
	agentName := flag.String("agent", "", "agent to start with (overrides entry_agent in config)")
	resumeID := flag.String("resume", "", "resume the saved session with this id")
	verbose := flag.Bool("verbose", false, "show tool results and thinking text")
	flag.Parse()

	exitOnError(loadDotEnv(*envFile))
	exitOnError(run(*configPath, *tetherDir, *agentName, *resumeID, *verbose))
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runInit(dirPath, templateName string) error {
	if templateName == "list" {
		printTemplateList()
		return nil
	}

	var (
		configYAML []byte
		err        error
	)

	if templateName != "" {
		tmpl := findTemplate(templateName)
		if tmpl == nil {
			return fmt.Errorf("unknown template %q (use --template list to see available templates)", templateName)
		}

		configYAML, err = runTemplateWizard(tmpl)
	} else {
		configYAML, err = runWizard()
	}

	if err != nil {
		return err
	}

	d := tetherdir.New(dirPath)

	if d.Exists() {
		if _, statErr := os.Stat(d.ConfigPath()); statErr == nil {
			return fmt.Errorf("%s already exists; edit it or move it aside first", d.ConfigPath())
		}
	}

	if err := tetherdir.Bootstrap(d, configYAML); err != nil {
		return err
	}

	fmt.Printf("Initialized %s\n", d.Root())

	return nil
}

func run(configPath, tetherDirPath, agentName, resumeID string, verbose bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Config resolution: explicit flag → .tether/config.yaml → tether.yaml.
	resolvedConfig := resolveConfigPath(configPath, tetherDirPath)

	cfg, err := engine.LoadConfig(resolvedConfig)
	if err != nil {
		return err
	}

	cfg.TetherDir = tetherDirPath

	ctx, closeLog, err := withFileLogger(ctx, tetherDirPath, verbose)
	if err != nil {
		return err
	}
	defer closeLog()

	eng, err := engine.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	var sess *engine.Session
	if resumeID != "" {
		sess, err = eng.ResumeSession(resumeID)
	} else {
		sess, err = eng.NewSession(agentName)
	}
	if err != nil {
		return err
	}

	model := newAppModel(ctx, sess, eng.Events(), verbose)

	p := tea.NewProgram(model)

	// Send the program reference so the model can start the bridge goroutine.
	go func() {
		p.Send(programReadyMsg{program: p})
	}()

	_, err = p.Run()
	return err
}

// withFileLogger attaches a logger writing to .tether/local/tether.log. The
// terminal UI owns stdout and stderr, so a file is the only sink that does
// not corrupt the display. Without a .tether directory logging stays off.
func withFileLogger(ctx context.Context, tetherDirPath string, verbose bool) (context.Context, func(), error) {
	d := tetherdir.New(tetherDirPath)
	if !d.Exists() {
		return logger.ContextWithLogger(ctx, logger.Nop()), func() {}, nil
	}

	if err := tetherdir.EnsureStructure(d); err != nil {
		return ctx, nil, err
	}

	f, err := os.OpenFile(d.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec // path comes from the tether dir layout
	if err != nil {
		return ctx, nil, fmt.Errorf("open log file: %w", err)
	}

	level := logger.InfoLevel
	if verbose {
		level = logger.DebugLevel
	}
	l := logger.New(&logger.Config{Level: level, Output: f})

	return logger.ContextWithLogger(ctx, l), func() { _ = f.Close() }, nil
}
