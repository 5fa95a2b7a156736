package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/gridcore/internal/app"
	"github.com/zjrosen/gridcore/internal/config"
	"github.com/zjrosen/gridcore/internal/dataset"
	"github.com/zjrosen/gridcore/internal/log"
	"github.com/zjrosen/gridcore/internal/ui/styles"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop and appearing as
	// garbage text in input fields.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

const defaultConfigPath = ".gridcore/config.yaml"

var (
	version = "dev"
	cfgFile string
	cfg     config.Config
	cfgErr  error
)

var rootCmd = &cobra.Command{
	Use:     "gridcore <file>",
	Short:   "A terminal spreadsheet grid for CSV, TSV and SQLite tables",
	Long:    `A terminal user interface for selecting, copying, pasting and editing the cells of a CSV, TSV or SQLite table.`,
	Version: version,
	Args:    cobra.ExactArgs(1),
	RunE:    runApp,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/gridcore/config.yaml)")
	rootCmd.Flags().StringP("table", "t", "",
		"table to open in a SQLite database (default: first table)")
	rootCmd.Flags().Bool("read-only", false,
		"open the file without allowing changes")
	rootCmd.Flags().Bool("watch", false,
		"reload the table when the file changes on disk")
	rootCmd.Flags().BoolP("debug", "d", false,
		"write debug logs and enable the log panel (ctrl+x)")

	// Bind flags to viper
	_ = viper.BindPFlag("read_only", rootCmd.Flags().Lookup("read-only"))
	_ = viper.BindPFlag("watch", rootCmd.Flags().Lookup("watch"))
}

func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .gridcore/config.yaml (current directory)
		// 2. ~/.config/gridcore/config.yaml (user config)
		if _, err := os.Stat(defaultConfigPath); err == nil {
			viper.SetConfigFile(defaultConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "gridcore"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create default at .gridcore/config.yaml
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			if writeErr := config.WriteDefaultConfig(defaultConfigPath); writeErr == nil {
				viper.SetConfigFile(defaultConfigPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		} else {
			cfgErr = fmt.Errorf("reading config: %w", err)
			return
		}
	}

	cfg, cfgErr = config.Load(viper.GetViper())
}

func runApp(cmd *cobra.Command, args []string) error {
	if cfgErr != nil {
		return cfgErr
	}

	debug, _ := cmd.Flags().GetBool("debug")
	if debug || log.Enabled() {
		debug = true
		cleanup, err := log.Init(cfg.Log.File)
		if err != nil {
			return err
		}
		defer cleanup()
		log.SetMinLevel(log.ParseLevel(cfg.Log.Level))
	}

	if err := styles.ApplyTheme(styles.ThemeConfig{
		Preset:    cfg.Theme.Preset,
		Highlight: cfg.Theme.Highlight,
		Colors:    cfg.Theme.FlattenedColors(),
	}); err != nil {
		return fmt.Errorf("applying theme: %w", err)
	}

	table, _ := cmd.Flags().GetString("table")
	store, err := dataset.Open(context.Background(), args[0], dataset.Options{
		Table:    table,
		ReadOnly: cfg.ReadOnly,
	})
	if err != nil {
		return err
	}

	// Store the config file path for saving column widths
	configFilePath := viper.ConfigFileUsed()
	if configFilePath == "" {
		// No config file was loaded, default to .gridcore/config.yaml
		configFilePath = defaultConfigPath
	}

	model, err := app.New(app.Options{
		Store:      store,
		Config:     cfg,
		ConfigPath: configFilePath,
		Debug:      debug,
	})
	if err != nil {
		_ = store.Close()
		return err
	}

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	final, err := p.Run()

	// Clean up watcher and store resources
	if fm, ok := final.(app.Model); ok {
		model = fm
	}
	if closeErr := model.Close(); closeErr != nil && err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
