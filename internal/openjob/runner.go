// Package openjob is the once-per-trading-day pipeline that mirrors fresh
// congressional disclosures into buy orders at market open.
package openjob

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/openquiver/congresstrader/internal/alpaca"
	"github.com/openquiver/congresstrader/internal/database"
	"github.com/openquiver/congresstrader/internal/guardrail"
	"github.com/openquiver/congresstrader/internal/quiver"
	"github.com/openquiver/congresstrader/internal/timeutil"
	"github.com/openquiver/congresstrader/internal/trading"
)

// FeedClient fetches raw disclosures for a single civil day.
type FeedClient interface {
	GetFilingsByDate(ctx context.Context, day time.Time) ([]quiver.RawFiling, error)
}

// MarketCalendar is the slice of the broker the planner depends on.
type MarketCalendar interface {
	GetClock(ctx context.Context) (*alpaca.Clock, error)
	GetCalendar(ctx context.Context, start, end string, limit int) ([]alpaca.CalendarDay, error)
}

// OrderSubmitter submits one admitted filing.
type OrderSubmitter interface {
	SubmitForFiling(ctx context.Context, p trading.SubmitParams) (*trading.SubmitResult, error)
}

// Runner drives one open-job run end to end.
type Runner struct {
	Feeds       *database.FeedRepository
	Checkpoints *database.CheckpointRepository
	JobRuns     *database.JobRunRepository
	Feed        FeedClient
	Market      MarketCalendar
	Submitter   OrderSubmitter
	Config      guardrail.Config

	// StrictErrors marks the run FAILED when any per-filing error was
	// absorbed. Default off: partial failures complete as SUCCESS so the
	// next day's checkpoint can advance.
	StrictErrors bool
}

// RunOptions parameterizes one invocation.
type RunOptions struct {
	Now    time.Time
	DryRun bool
}

// calendarLookbackDays covers the previous session across long weekends and
// holiday clusters.
const calendarLookbackDays = 10

// Run executes the open job for the trading date containing opts.Now. The
// job-run row is always driven to SUCCESS or FAILED before return; only a
// failure to persist that row itself surfaces as a bare error.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	tradingDate := timeutil.DateKey(now)
	logger := log.With().Str("job", database.JobTypeOpen).Str("trading_date", tradingDate).Logger()

	summary := &Summary{Errors: []RunError{}}

	if _, err := r.JobRuns.Start(tradingDate, database.JobTypeOpen); err != nil {
		return nil, fmt.Errorf("openjob: start job run: %w", err)
	}
	logger.Info().Bool("dry_run", opts.DryRun).Msg("🚀 Open job started")

	clock, err := r.Market.GetClock(ctx)
	if err != nil {
		return r.fail(tradingDate, summary, logger, fmt.Errorf("fetch clock: %w", err))
	}
	calStart := timeutil.DateKey(timeutil.AddEasternDays(now, -calendarLookbackDays))
	calEnd := timeutil.DateKey(timeutil.AddEasternDays(now, 1))
	calendar, err := r.Market.GetCalendar(ctx, calStart, calEnd, 0)
	if err != nil {
		return r.fail(tradingDate, summary, logger, fmt.Errorf("fetch calendar: %w", err))
	}

	plan, err := PlanWindows(now, calendar, clock)
	if err != nil {
		return r.fail(tradingDate, summary, logger, err)
	}
	summary.Windows.Previous.SessionDate = plan.Previous.SessionDate
	summary.Windows.Current.SessionDate = plan.Current.SessionDate

	logger.Info().
		Str("previous_session", plan.Previous.SessionDate).
		Str("current_session", plan.Current.SessionDate).
		Int("fetch_days", len(plan.FetchDays)).
		Msg("Windows planned")

	for _, w := range []struct {
		window *Window
		wsum   *WindowSummary
	}{
		{&plan.Previous, &summary.Windows.Previous},
		{&plan.Current, &summary.Windows.Current},
	} {
		if err := ctx.Err(); err != nil {
			return r.fail(tradingDate, summary, logger, fmt.Errorf("canceled"))
		}
		if err := r.processWindow(ctx, opts, plan, w.window, w.wsum, summary, logger); err != nil {
			return r.fail(tradingDate, summary, logger, err)
		}
	}

	if r.StrictErrors && len(summary.Errors) > 0 {
		return r.fail(tradingDate, summary, logger, fmt.Errorf("%d filings failed", len(summary.Errors)))
	}

	if err := r.JobRuns.Complete(tradingDate, database.JobTypeOpen, summary.json()); err != nil {
		return nil, fmt.Errorf("openjob: complete job run: %w", err)
	}
	logger.Info().
		Int("attempted", summary.Trades.Attempted).
		Int("submitted", summary.Trades.Submitted).
		Int("errors", len(summary.Errors)).
		Msg("✅ Open job finished")
	return &Result{Status: "success", Summary: summary}, nil
}

// processWindow fetches, filters and submits the filings attributed to one
// window, then advances its checkpoint.
func (r *Runner) processWindow(ctx context.Context, opts RunOptions, plan *Plan, window *Window, wsum *WindowSummary, summary *Summary, logger zerolog.Logger) error {
	checkpoint, err := r.Checkpoints.Get(window.SessionDate)
	if err != nil {
		return fmt.Errorf("load checkpoint %s: %w", window.SessionDate, err)
	}
	var cutoff *time.Time
	if checkpoint != nil {
		cutoff = checkpoint.LastFiledTsProcessedET
	}

	var (
		admitted  []*Filing
		persisted []database.CongressTradeFeed
		maxFiled  time.Time
		seen      = map[string]int{} // source hash → index into admitted
	)
	ingestedAt := time.Now().UTC()

	for _, day := range plan.FetchDays {
		if !r.dayBelongsTo(day, plan, window) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("canceled")
		}

		raws, err := r.Feed.GetFilingsByDate(ctx, day)
		if err != nil {
			dayKey := timeutil.DateKey(day)
			logger.Warn().Err(err).Str("day", dayKey).Msg("Feed fetch failed, skipping day")
			summary.Errors = append(summary.Errors, RunError{Day: dayKey, Error: err.Error()})
			continue
		}

		for _, raw := range raws {
			wsum.FilingsFetched++

			filing, ok := Normalize(raw)
			if !ok {
				continue
			}
			if filing.Transaction != database.TxBuy {
				continue
			}
			if cutoff != nil && !filing.FiledTs.After(*cutoff) {
				wsum.DuplicatesSkipped++
				continue
			}
			if filing.FiledTs.After(maxFiled) {
				maxFiled = filing.FiledTs
			}
			if !window.Contains(filing.FiledTs) {
				wsum.OutsideWindow++
				persisted = append(persisted, filing.feedEntry(ingestedAt))
				continue
			}
			wsum.FilingsConsidered++

			// Dedupe by source hash, keeping the earliest filed timestamp.
			if idx, dup := seen[filing.SourceHash]; dup {
				if filing.FiledTs.Before(admitted[idx].FiledTs) {
					admitted[idx] = filing
				}
				continue
			}
			seen[filing.SourceHash] = len(admitted)
			admitted = append(admitted, filing)
			persisted = append(persisted, filing.feedEntry(ingestedAt))
		}
	}

	if err := r.Feeds.CreateMany(persisted, true); err != nil {
		logger.Warn().Err(err).Msg("Feed persistence failed")
		summary.Errors = append(summary.Errors, RunError{Error: fmt.Sprintf("persist feed entries: %v", err)})
	}

	for _, filing := range admitted {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("canceled")
		}
		if opts.DryRun {
			summary.Trades.DryRunSkipped++
			logger.Info().
				Str("symbol", filing.Ticker).
				Str("member", filing.MemberName).
				Msg("Dry run: submission skipped")
			continue
		}

		summary.Trades.Attempted++
		res, err := r.Submitter.SubmitForFiling(ctx, trading.SubmitParams{
			Symbol:              filing.Ticker,
			SourceHash:          filing.SourceHash,
			CongressTradeFeedID: filing.FeedID,
			WindowStart:         window.Start,
			WindowEnd:           window.End,
			Config:              r.Config,
			Now:                 opts.Now,
		})
		if err != nil {
			logger.Warn().Err(err).Str("symbol", filing.Ticker).Msg("Submission failed")
			summary.Errors = append(summary.Errors, RunError{
				Symbol:     filing.Ticker,
				SourceHash: filing.SourceHash,
				Error:      err.Error(),
			})
			continue
		}
		if res.GuardrailBlocked {
			summary.Trades.GuardrailBlocked++
		}
		if res.FallbackUsed {
			summary.Trades.FallbackUsed++
		}
		if res.Status != database.TradeStatusFailed {
			summary.Trades.Submitted++
		}
	}

	newCutoff := cutoff
	if !maxFiled.IsZero() && (cutoff == nil || maxFiled.After(*cutoff)) {
		newCutoff = &maxFiled
	}
	if err := r.Checkpoints.Upsert(window.SessionDate, newCutoff); err != nil {
		return fmt.Errorf("upsert checkpoint %s: %w", window.SessionDate, err)
	}
	return nil
}

// dayBelongsTo attributes a fetch day to the window whose session follows it:
// the previous session's own day belongs to the previous window, everything
// after it (weekends, holidays, the current session day) to the current.
func (r *Runner) dayBelongsTo(day time.Time, plan *Plan, window *Window) bool {
	key := timeutil.DateKey(day)
	if window == &plan.Previous {
		return key <= plan.Previous.SessionDate
	}
	return key > plan.Previous.SessionDate && key <= plan.Current.SessionDate
}

// fail finalizes the job-run row as FAILED and reports a failure result.
func (r *Runner) fail(tradingDate string, summary *Summary, logger zerolog.Logger, cause error) (*Result, error) {
	summary.Error = cause.Error()
	if err := r.JobRuns.Fail(tradingDate, database.JobTypeOpen, summary.json()); err != nil {
		return nil, fmt.Errorf("openjob: mark job run failed: %w (cause: %v)", err, cause)
	}
	logger.Error().Err(cause).Msg("Open job failed")
	return &Result{Status: "failure", Summary: summary}, nil
}
