// Package batch runs independent simulations concurrently, each with its own
// seed, and stops them on cancellation or a termination signal.
package batch

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/lumisim/internal/config"
	"github.com/cory-johannsen/lumisim/internal/game/dice"
	"github.com/cory-johannsen/lumisim/internal/game/skill"
	"github.com/cory-johannsen/lumisim/internal/report"
	"github.com/cory-johannsen/lumisim/internal/sim"
)

// PolicyFactory returns a policy for one run and a function releasing it.
type PolicyFactory func() (sim.Policy, func(), error)

// Options configure a batch.
type Options struct {
	// Runs is the number of simulations; values < 1 run one.
	Runs int
	// Workers bounds concurrent runs; values < 1 run them one at a time.
	Workers int
	// Registry is shared by every run; nil loads the embedded tables.
	Registry *skill.Registry
	Policy   PolicyFactory
	Logger   *zap.Logger
}

// Outcome is one finished run.
type Outcome struct {
	Seed    uint64
	Result  sim.Result
	Summary report.Summary
}

// Aggregate condenses a batch.
type Aggregate struct {
	Runs           int
	MeanDPS        float64
	MinDPS         float64
	MaxDPS         float64
	MeanUptime     float64
	Kills          int
	MeanTimeToKill time.Duration
}

// Run executes opts.Runs simulations of cfg. Run i uses seed base+i, where
// base is cfg.Simulation.Seed or, when that is 0, a random seed that is logged
// so the batch can be replayed.
//
// Precondition: cfg must have passed Validate; opts.Policy and opts.Logger must be non-nil.
// Postcondition: Returns outcomes in run order, or the first run error.
func Run(ctx context.Context, cfg config.Config, opts Options) ([]Outcome, error) {
	start := time.Now()
	logger := opts.Logger
	runs := max(1, opts.Runs)
	reg := opts.Registry
	if reg == nil {
		var err error
		if reg, err = skill.LoadEmbedded(); err != nil {
			return nil, err
		}
	}

	base := cfg.Simulation.Seed
	if base == 0 {
		base = uint64(dice.NewCryptoSource().Intn(math.MaxInt32)) + 1
	}
	logger.Info("starting batch",
		zap.Int("runs", runs),
		zap.Int("workers", max(1, opts.Workers)),
		zap.Uint64("base_seed", base),
	)

	outcomes := make([]Outcome, runs)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, opts.Workers))
	for i := range runs {
		seed := base + uint64(i)
		g.Go(func() error {
			out, err := runOne(gctx, cfg, seed, reg, opts)
			if err != nil {
				logger.Error("run failed", zap.Uint64("seed", seed), zap.Error(err))
				return fmt.Errorf("run %d (seed %d): %w", i, seed, err)
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info("batch complete",
		zap.Int("runs", runs),
		zap.Duration("elapsed", time.Since(start)),
	)
	return outcomes, nil
}

func runOne(ctx context.Context, cfg config.Config, seed uint64, reg *skill.Registry, opts Options) (Outcome, error) {
	cfg.Simulation.Seed = seed
	s, err := sim.New(cfg, sim.Options{Registry: reg, Logger: opts.Logger})
	if err != nil {
		return Outcome{}, err
	}
	p, release, err := opts.Policy()
	if err != nil {
		return Outcome{}, err
	}
	defer release()

	c := report.NewCollector(s.World(), s.Caster())
	defer c.Close()
	res, err := s.Run(ctx, p, cfg.Simulation.Duration)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Seed: seed, Result: res, Summary: c.Summary()}, nil
}

// Summarize folds outcomes into an Aggregate.
func Summarize(outcomes []Outcome) Aggregate {
	a := Aggregate{Runs: len(outcomes)}
	if len(outcomes) == 0 {
		return a
	}
	a.MinDPS = math.Inf(1)
	var ttk time.Duration
	for _, o := range outcomes {
		dps := o.Summary.DPS
		a.MeanDPS += dps
		a.MinDPS = min(a.MinDPS, dps)
		a.MaxDPS = max(a.MaxDPS, dps)
		a.MeanUptime += o.Summary.Uptime()
		if o.Result.Killed {
			a.Kills++
			ttk += o.Result.TimeToKill
		}
	}
	n := float64(len(outcomes))
	a.MeanDPS /= n
	a.MeanUptime /= n
	if a.Kills > 0 {
		a.MeanTimeToKill = ttk / time.Duration(a.Kills)
	}
	return a
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM, logging the
// signal that stopped the batch.
//
// Postcondition: The returned stop function releases the signal handler.
func SignalContext(ctx context.Context, logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down",
				zap.String("signal", sig.String()),
			)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}
