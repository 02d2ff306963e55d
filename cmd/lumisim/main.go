// Package main provides the lumisim binary, which simulates a fight between
// one Light/Dark/Equilibrium character and one target and prints a damage report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/lumisim/internal/batch"
	"github.com/cory-johannsen/lumisim/internal/config"
	"github.com/cory-johannsen/lumisim/internal/game/skill"
	"github.com/cory-johannsen/lumisim/internal/observability"
	"github.com/cory-johannsen/lumisim/internal/policy"
	"github.com/cory-johannsen/lumisim/internal/scripting"
	"github.com/cory-johannsen/lumisim/internal/sim"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "", "path to configuration file; empty = built-in defaults")
	skillsPath := flag.String("skills", "", "path to a skill table YAML file; empty = built-in tables")
	policyPath := flag.String("policy", "", "path to a Lua policy script; empty = built-in priority rotation")
	seed := flag.Uint64("seed", 0, "random seed; 0 = use the configured seed")
	runs := flag.Int("runs", 1, "number of simulations, seeded seed, seed+1, ...")
	workers := flag.Int("workers", 4, "maximum concurrent simulations")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("loading config: %v", err)
		}
	}
	if *skillsPath != "" {
		cfg.Skills.File = *skillsPath
	}
	if *policyPath != "" {
		cfg.Policy.Script = *policyPath
	}
	if *seed != 0 {
		cfg.Simulation.Seed = *seed
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	reg, err := loadRegistry(cfg.Skills)
	if err != nil {
		logger.Fatal("loading skill tables", zap.String("file", cfg.Skills.File), zap.Error(err))
	}
	logger.Info("skill tables loaded",
		zap.Int("skills", len(reg.All())),
		zap.Duration("elapsed", time.Since(start)),
	)

	factory, err := policyFactory(cfg.Policy, reg, logger)
	if err != nil {
		logger.Fatal("loading policy", zap.Error(err))
	}

	ctx, stop := batch.SignalContext(context.Background(), logger)
	defer stop()

	outcomes, err := batch.Run(ctx, cfg, batch.Options{
		Runs:     *runs,
		Workers:  *workers,
		Registry: reg,
		Policy:   factory,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("simulation failed", zap.Error(err))
	}

	if len(outcomes) == 1 {
		o := outcomes[0]
		fmt.Printf("run %s (seed %d)\n", o.Result.ID, o.Seed)
		if o.Result.Killed {
			fmt.Printf("target defeated at %s\n", o.Result.TimeToKill)
		}
		if err := o.Summary.WriteText(os.Stdout); err != nil {
			logger.Fatal("writing report", zap.Error(err))
		}
		return
	}
	a := batch.Summarize(outcomes)
	fmt.Printf("%d runs: dps mean %.0f min %.0f max %.0f, equilibrium uptime %.1f%%\n",
		a.Runs, a.MeanDPS, a.MinDPS, a.MaxDPS, 100*a.MeanUptime)
	if a.Kills > 0 {
		fmt.Printf("target defeated in %d runs, mean %s\n", a.Kills, a.MeanTimeToKill)
	}
}

func loadRegistry(cfg config.SkillsConfig) (*skill.Registry, error) {
	if cfg.File == "" {
		return skill.LoadEmbedded()
	}
	return skill.LoadFile(cfg.File)
}

// policyFactory validates the configured policy once and returns a factory
// giving every run its own instance. Lua policies get one VM per run.
func policyFactory(cfg config.PolicyConfig, reg *skill.Registry, logger *zap.Logger) (batch.PolicyFactory, error) {
	if cfg.Script == "" {
		if _, err := policy.NewPriority(reg, cfg.Priority); err != nil {
			return nil, err
		}
		return func() (sim.Policy, func(), error) {
			p, err := policy.NewPriority(reg, cfg.Priority)
			return p, func() {}, err
		}, nil
	}
	probe, err := scripting.LoadPolicy(cfg.Script, cfg.InstructionLimit, logger)
	if err != nil {
		return nil, err
	}
	probe.Close()
	return func() (sim.Policy, func(), error) {
		p, err := scripting.LoadPolicy(cfg.Script, cfg.InstructionLimit, logger)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	}, nil
}
