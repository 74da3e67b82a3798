package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"worktimer/internal/config"
	"worktimer/internal/control"
	"worktimer/internal/session"
	"worktimer/internal/store"
	"worktimer/internal/tui"
)

var (
	flagDB     string
	flagConfig string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "worktimer",
		Short:         "Per-project, per-day work timer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runTUI,
	}
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "ledger database path")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path")

	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newProjectsCmd())
	return rootCmd
}

// setup loads the config, opens the store and builds the controller. The
// returned close func must run before exit.
func setup() (*control.Controller, config.File, func(), error) {
	cfgPath := flagConfig
	if cfgPath == "" {
		var err error
		cfgPath, err = config.DefaultPath()
		if err != nil {
			return nil, config.File{}, nil, err
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, config.File{}, nil, err
	}

	dbPath := flagDB
	if dbPath == "" {
		dbPath = cfg.DB
	}
	if dbPath == "" {
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, config.File{}, nil, err
		}
	}

	st, err := store.New(dbPath)
	if err != nil {
		return nil, config.File{}, nil, fmt.Errorf("open ledger database: %w", err)
	}

	ctrl, err := control.New(st, cfg.DefaultProject)
	if err != nil {
		st.Close()
		return nil, config.File{}, nil, err
	}
	return ctrl, cfg, func() { st.Close() }, nil
}

func exportPath(cfg config.File, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	if cfg.Export != "" {
		return cfg.Export
	}
	return config.DefaultExportPath()
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctrl, cfg, closeStore, err := setup()
	if err != nil {
		return err
	}
	defer closeStore()

	app := tui.NewApp(ctrl, exportPath(cfg, nil))
	p := tea.NewProgram(app, tea.WithAltScreen())
	model, err := p.Run()
	if err != nil {
		return err
	}
	// The shutdown flush runs inside the alt screen; report its error only
	// after the terminal is back.
	if a, ok := model.(tui.App); ok {
		if qerr := a.QuitErr(); qerr != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", qerr)
		}
	}
	return nil
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the full ledger as name,date,seconds lines",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, cfg, closeStore, err := setup()
			if err != nil {
				return err
			}
			defer closeStore()

			path := exportPath(cfg, args)
			if err := os.WriteFile(path, []byte(ctrl.ExportTo()), 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Printf("Exported to %s\n", path)
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the entire ledger from name,date,seconds lines",
		Long: `Import parses one name,date,seconds record per line and replaces the
whole ledger with the result. This is a destructive overwrite: existing
projects and day records are discarded. A single invalid line aborts the
import and leaves the ledger untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, _, closeStore, err := setup()
			if err != nil {
				return err
			}
			defer closeStore()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}
			if err := ctrl.ImportFrom(string(data)); err != nil {
				return err
			}
			fmt.Println("Import successful")
			return nil
		},
	}
}

func newProjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects with their recorded totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, _, closeStore, err := setup()
			if err != nil {
				return err
			}
			defer closeStore()

			names := ctrl.Projects()
			if len(names) == 0 {
				fmt.Println("No projects.")
				return nil
			}
			for _, name := range names {
				marker := " "
				if name == ctrl.DefaultProject() {
					marker = "*"
				}
				last := "never"
				if t := ctrl.LastWorked(name); !t.IsZero() {
					last = humanize.Time(t)
				}
				fmt.Printf("%s %-24s %10s  last worked %s\n",
					marker, name, session.FormatSeconds(ctrl.TotalSeconds(name)), last)
			}
			return nil
		},
	}
}
