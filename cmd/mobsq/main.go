package main

import (
	"os"

	"github.com/brizzai/mobsq/internal/auth"
	"github.com/brizzai/mobsq/internal/config"
	"github.com/brizzai/mobsq/internal/game"
	"github.com/brizzai/mobsq/internal/logger"
	"github.com/brizzai/mobsq/internal/metrics"
	"github.com/brizzai/mobsq/internal/server"
	"github.com/brizzai/mobsq/internal/store"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	Execute()
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mobsq",
	Short: "Location based game backend",
	Long: `mobsq serves the Mob Square game: Facebook login, nearby places,
location pages and the item store.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Place version check in PreRun to ensure flags are parsed first
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")
	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	}
	config.InitFlags(serveCmd.Flags())
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	if err := logger.InitLogger(&cfg.Logging); err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting mobsq",
		zap.String("version", config.GetVersionInfo()),
		zap.String("store", cfg.Store.Driver),
		zap.Int("port", cfg.Server.Port),
	)

	app := fx.New(
		fx.Supply(cfg),
		config.Module,
		metrics.Module,
		store.Module,
		auth.Module,
		game.Module,
		server.Module,
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger.GetLogger()}
		}),
	)
	if err := app.Err(); err != nil {
		return err
	}
	app.Run()
	return nil
}
