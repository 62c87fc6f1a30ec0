// Congresstrader mirrors U.S. congressional stock disclosures into a paper
// brokerage account.
//
// The open-job subcommand runs the once-per-trading-day pipeline: resolve the
// previous and current exchange sessions, fetch fresh filings, filter them
// against checkpoints and the trading window, and submit at-most-once buy
// orders. The schedule subcommand keeps a process alive firing that job at
// each market open.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openquiver/congresstrader/internal/alpaca"
	"github.com/openquiver/congresstrader/internal/config"
	"github.com/openquiver/congresstrader/internal/database"
	"github.com/openquiver/congresstrader/internal/guardrail"
	"github.com/openquiver/congresstrader/internal/notify"
	"github.com/openquiver/congresstrader/internal/openjob"
	"github.com/openquiver/congresstrader/internal/quiver"
	"github.com/openquiver/congresstrader/internal/scheduler"
	"github.com/openquiver/congresstrader/internal/trading"
)

const version = "1.2.0"

const (
	exitOK        = 0
	exitJobFailed = 1
	exitBadEnv    = 2
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var dryRun bool

	root := &cobra.Command{
		Use:           "congresstrader",
		Short:         "Mirror congressional stock disclosures into a paper brokerage account",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	openJobCmd := &cobra.Command{
		Use:   "open-job",
		Short: "Run the market-open mirroring job once and exit",
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(runOpenJob(dryRun))
		},
	}
	openJobCmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan and log but skip order submissions")

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Stay resident and fire the open job at each market open",
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(runSchedule())
		},
	}

	root.AddCommand(openJobCmd, scheduleCmd)
	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(exitJobFailed)
	}
}

// app bundles everything a run needs.
type app struct {
	cfg      *config.Config
	runner   *openjob.Runner
	notifier *notify.Notifier
}

// setup loads config and wires the dependency graph. A *config.ValidationError
// means exit 2.
func setup() (*app, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	broker := alpaca.Shared(cfg.AlpacaBaseURL, cfg.AlpacaDataBaseURL, cfg.AlpacaKeyID, cfg.AlpacaSecretKey)
	feed := quiver.NewClient(cfg.QuiverBaseURL, cfg.QuiverAPIKey)

	trades := database.NewTradeRepository(db)
	poller := trading.NewPoller(trades, broker)
	submitter := trading.NewSubmitter(db, trades, broker, poller)

	guardCfg := guardrail.Config{
		TradingEnabled:    cfg.TradingEnabled,
		PaperTrading:      cfg.PaperTrading,
		TradeNotionalUSD:  cfg.TradeNotionalUSD,
		DailyMaxFilings:   cfg.DailyMaxFilings,
		PerTickerDailyMax: cfg.PerTickerDailyMax,
	}

	runner := &openjob.Runner{
		Feeds:        database.NewFeedRepository(db),
		Checkpoints:  database.NewCheckpointRepository(db),
		JobRuns:      database.NewJobRunRepository(db),
		Feed:         feed,
		Market:       broker,
		Submitter:    submitter,
		Config:       guardCfg,
		StrictErrors: cfg.StrictErrors,
	}

	notifier, err := notify.New(cfg.TelegramToken, cfg.TelegramChatID)
	if err != nil {
		log.Warn().Err(err).Msg("Telegram notifier unavailable")
	}

	if acct, err := broker.GetAccount(context.Background()); err == nil {
		log.Info().
			Str("account", acct.AccountNumber).
			Str("buying_power", acct.BuyingPower.StringFixed(2)).
			Bool("paper", cfg.PaperTrading).
			Msg("Broker account ready")
	} else {
		log.Warn().Err(err).Msg("Broker account check failed")
	}

	return &app{cfg: cfg, runner: runner, notifier: notifier}, nil
}

func runOpenJob(dryRun bool) int {
	a, err := setup()
	if err != nil {
		return exitForSetupError(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	now := time.Now()
	result, err := a.runner.Run(ctx, openjob.RunOptions{Now: now, DryRun: dryRun})
	if err != nil {
		log.Error().Err(err).Msg("Open job aborted")
		return exitJobFailed
	}

	a.notifier.NotifyRun(result.Summary.Windows.Current.SessionDate, result)
	if result.Status != "success" {
		return exitJobFailed
	}
	return exitOK
}

func runSchedule() int {
	a, err := setup()
	if err != nil {
		return exitForSetupError(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.New()
	addErr := sched.AddOpenJob(func() {
		result, err := a.runner.Run(ctx, openjob.RunOptions{Now: time.Now()})
		if err != nil {
			log.Error().Err(err).Msg("Scheduled open job aborted")
			return
		}
		a.notifier.NotifyRun(result.Summary.Windows.Current.SessionDate, result)
	})
	if addErr != nil {
		log.Error().Err(addErr).Msg("Failed to register open job")
		return exitJobFailed
	}

	sched.Start()
	defer sched.Stop()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	return exitOK
}

func exitForSetupError(err error) int {
	var verr *config.ValidationError
	if errors.As(err, &verr) {
		log.Error().Err(err).Msg("Invalid environment")
		return exitBadEnv
	}
	log.Error().Err(err).Msg("Startup failed")
	return exitJobFailed
}
