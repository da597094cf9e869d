// Package main provides the sprachninja CLI: the Telegram bot and a terminal
// front end over the same store.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/smith3v/sprachninja/pkg/app"
	"github.com/smith3v/sprachninja/pkg/bot/handlers"
	"github.com/smith3v/sprachninja/pkg/bot/onboarding"
	"github.com/smith3v/sprachninja/pkg/config"
	"github.com/smith3v/sprachninja/pkg/db"
	"github.com/smith3v/sprachninja/pkg/logger"
	"github.com/smith3v/sprachninja/pkg/practice"
	"github.com/smith3v/sprachninja/pkg/settings"
	"github.com/smith3v/sprachninja/pkg/ui"
)

const defaultConfigPath = "config.json"

var (
	configPath string

	onboardName  string
	onboardLevel string

	settingsAPIKey string
	settingsModel  string

	practiceType string
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "sprachninja",
		Short:             "German practice with Gemini-generated questions",
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to the JSON config file")

	rootCmd.AddCommand(newBotCmd())
	rootCmd.AddCommand(newOnboardCmd())
	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(newLevelCmd())
	rootCmd.AddCommand(newSettingsCmd())
	rootCmd.AddCommand(newTipCmd())
	rootCmd.AddCommand(newPracticeCmd())
	return rootCmd
}

// loadConfig reads the config file. A missing default file falls back to the
// built-in defaults; a missing explicit file is an error.
func loadConfig(cmd *cobra.Command, _ []string) error {
	if err := config.LoadConfig(configPath); err != nil {
		if !errors.Is(err, fs.ErrNotExist) || cmd.Flags().Changed("config") {
			return fmt.Errorf("failed to load config: %w", err)
		}
		config.AppConfig = config.Default()
	}
	if err := logger.Configure(logger.Options{
		Level: config.AppConfig.Logging.Level,
		File:  config.AppConfig.Logging.File,
	}); err != nil {
		logger.Error("failed to configure logger", "error", err)
	}
	return nil
}

func openApp() (*app.App, error) {
	a, err := app.Open(config.AppConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open app: %w", err)
	}
	return a, nil
}

func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		logger.Error("failed to close database", "error", err)
	}
}

func newBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		Args:  cobra.NoArgs,
		RunE:  runBotCmd,
	}
}

func runBotCmd(cmd *cobra.Command, _ []string) error {
	token := strings.TrimSpace(config.AppConfig.Telegram.Token)
	if token == "" {
		return errors.New("telegram.token is not set in the config")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pending := onboarding.NewManager(nil)
	h := handlers.New(a, pending, handlers.WithOwner(config.AppConfig.Telegram.OwnerID))

	b, err := bot.New(token, bot.WithDefaultHandler(h.Default))
	if err != nil {
		return fmt.Errorf("failed to create bot: %w", err)
	}
	h.Register(b)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return db.StartSessionCleanup(gctx, a.DB, db.SessionCleanupInterval)
	})
	g.Go(func() error {
		return pending.StartSweeper(gctx)
	})
	g.Go(func() error {
		logger.Info("Starting bot...")
		b.Start(gctx)
		return nil
	})
	return g.Wait()
}

func newOnboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Create or replace the learner profile",
		Args:  cobra.NoArgs,
		RunE:  runOnboardCmd,
	}
	cmd.Flags().StringVar(&onboardName, "name", "", "display name")
	cmd.Flags().StringVar(&onboardLevel, "level", "", "German level, e.g. A1.1 (default A1.1)")
	return cmd
}

func runOnboardCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	if level := strings.TrimSpace(onboardLevel); level != "" && !a.Curriculum.HasLevel(level) {
		return fmt.Errorf("unknown level %q (available: %s)", level, strings.Join(a.Curriculum.SubLevels(), ", "))
	}
	profile, err := a.Users.Upsert(cmd.Context(), onboardName, onboardLevel)
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s! Your level is %s.\n", profile.DisplayName, profile.ProficiencyLevel)
	return err
}

func newProfileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the learner profile and score",
		Args:  cobra.NoArgs,
		RunE:  runProfileCmd,
	}
}

func runProfileCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	ctx := cmd.Context()
	profile, err := a.Users.Current(ctx)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		return errors.New("no profile yet; run: sprachninja onboard --name <name>")
	}
	stats, err := a.Stats.Get(ctx, profile.ProficiencyLevel)
	if err != nil {
		return fmt.Errorf("failed to load stats: %w", err)
	}
	correct, wrong := 0, 0
	if stats != nil {
		correct, wrong = stats.Correct, stats.Wrong
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), ui.RenderProfile(profile.DisplayName, profile.ProficiencyLevel, correct, wrong))
	return err
}

func newLevelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "level <level>",
		Short: "Change the German level",
		Args:  cobra.ExactArgs(1),
		RunE:  runLevelCmd,
	}
}

func runLevelCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	level := strings.TrimSpace(args[0])
	if !a.Curriculum.HasLevel(level) {
		return fmt.Errorf("unknown level %q (available: %s)", level, strings.Join(a.Curriculum.SubLevels(), ", "))
	}
	updated, err := a.Users.SetLevel(cmd.Context(), level)
	if err != nil {
		return fmt.Errorf("failed to update level: %w", err)
	}
	if !updated {
		return errors.New("no profile yet; run: sprachninja onboard --name <name>")
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Level set to %s.\n", level)
	return err
}

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the Gemini API key and model",
		Args:  cobra.NoArgs,
		RunE:  runSettingsCmd,
	}
	cmd.Flags().StringVar(&settingsAPIKey, "api-key", "", "Gemini API key")
	cmd.Flags().StringVar(&settingsModel, "model", "", "Gemini model name")
	return cmd
}

func runSettingsCmd(cmd *cobra.Command, _ []string) error {
	store, err := settings.Open(config.AppConfig.Secure.SettingsFile, config.AppConfig.Secure.KeyFile)
	if err != nil {
		return fmt.Errorf("failed to open settings: %w", err)
	}

	current := store.Settings()
	if cmd.Flags().Changed("api-key") || cmd.Flags().Changed("model") {
		if cmd.Flags().Changed("api-key") {
			current.APIKey = settingsAPIKey
		}
		if cmd.Flags().Changed("model") {
			current.ModelName = settingsModel
		}
		current, err = store.Save(current)
		if err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), ui.RenderSettings(current))
	return err
}

func newTipCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tip",
		Short: "Show today's learning tip",
		Args:  cobra.NoArgs,
		RunE:  runTipCmd,
	}
}

func runTipCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	ctx := cmd.Context()
	profile, err := a.Users.Current(ctx)
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		return errors.New("no profile yet; run: sprachninja onboard --name <name>")
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), a.Tips.GetTip(ctx, profile.ProficiencyLevel))
	return err
}

func newPracticeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "practice",
		Short: "Practice in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runPracticeCmd,
	}
	cmd.Flags().StringVar(&practiceType, "type", string(practice.FillInTheBlank), "MULTIPLE_CHOICE_WORD, FILL_IN_THE_BLANK or TRANSLATE_EN_DE")
	return cmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	qtype, err := practice.ParseQuestionType(practiceType)
	if err != nil {
		return err
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer closeApp(a)

	session, err := a.NewSession(qtype)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()
	return runPracticeLoop(ctx, session, cmd.InOrStdin(), cmd.OutOrStdout())
}
