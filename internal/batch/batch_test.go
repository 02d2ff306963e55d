package batch_test

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/lumisim/internal/batch"
	"github.com/cory-johannsen/lumisim/internal/config"
	"github.com/cory-johannsen/lumisim/internal/game/skill"
	"github.com/cory-johannsen/lumisim/internal/policy"
	"github.com/cory-johannsen/lumisim/internal/report"
	"github.com/cory-johannsen/lumisim/internal/sim"
)

func priorityFactory(t *testing.T, reg *skill.Registry) batch.PolicyFactory {
	t.Helper()
	return func() (sim.Policy, func(), error) {
		p, err := policy.NewPriority(reg, nil)
		return p, func() {}, err
	}
}

func shortConfig(seed uint64) config.Config {
	cfg := config.Default()
	cfg.Simulation.Seed = seed
	cfg.Simulation.Duration = 10 * time.Second
	return cfg
}

func TestRun_SeedsAreSequentialAndReproducible(t *testing.T) {
	reg := skill.MustLoadEmbedded()
	opts := batch.Options{Runs: 4, Workers: 2, Registry: reg, Policy: priorityFactory(t, reg), Logger: zaptest.NewLogger(t)}

	a, err := batch.Run(context.Background(), shortConfig(100), opts)
	require.NoError(t, err)
	require.Len(t, a, 4)
	for i, o := range a {
		assert.Equal(t, uint64(100+i), o.Seed)
		assert.Equal(t, 10*time.Second, o.Result.Elapsed)
		assert.Greater(t, o.Summary.Total, 0.0)
	}

	b, err := batch.Run(context.Background(), shortConfig(100), opts)
	require.NoError(t, err)
	for i := range a {
		assert.Equal(t, a[i].Result.Total, b[i].Result.Total, "run %d", i)
	}
}

func TestRun_RandomBaseSeed_Logged(t *testing.T) {
	reg := skill.MustLoadEmbedded()
	core, logs := observer.New(zap.InfoLevel)
	out, err := batch.Run(context.Background(), shortConfig(0), batch.Options{
		Registry: reg, Policy: priorityFactory(t, reg), Logger: zap.New(core),
	})
	require.NoError(t, err)
	require.Len(t, out, 1)

	started := logs.FilterMessage("starting batch").All()
	require.Len(t, started, 1)
	assert.Equal(t, out[0].Seed, started[0].ContextMap()["base_seed"])
	assert.NotZero(t, out[0].Seed)
}

func TestRun_PolicyFactoryError(t *testing.T) {
	boom := errors.New("no policy")
	_, err := batch.Run(context.Background(), shortConfig(1), batch.Options{
		Runs:   2,
		Policy: func() (sim.Policy, func(), error) { return nil, nil, boom },
		Logger: zap.NewNop(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestRun_Cancelled(t *testing.T) {
	reg := skill.MustLoadEmbedded()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := batch.Run(ctx, shortConfig(1), batch.Options{
		Runs: 3, Registry: reg, Policy: priorityFactory(t, reg), Logger: zap.NewNop(),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummarize(t *testing.T) {
	out := []batch.Outcome{
		{Summary: report.Summary{DPS: 100, Elapsed: 10 * time.Second, EquilibriumUptime: 5 * time.Second}},
		{Summary: report.Summary{DPS: 300, Elapsed: 10 * time.Second}, Result: sim.Result{Killed: true, TimeToKill: 8 * time.Second}},
	}
	a := batch.Summarize(out)
	assert.Equal(t, 2, a.Runs)
	assert.Equal(t, 200.0, a.MeanDPS)
	assert.Equal(t, 100.0, a.MinDPS)
	assert.Equal(t, 300.0, a.MaxDPS)
	assert.InDelta(t, 0.25, a.MeanUptime, 1e-9)
	assert.Equal(t, 1, a.Kills)
	assert.Equal(t, 8*time.Second, a.MeanTimeToKill)

	assert.Equal(t, batch.Aggregate{}, batch.Summarize(nil))
}

func TestSignalContext_CancelsOnSignal(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx, stop := batch.SignalContext(context.Background(), zap.New(core))
	defer stop()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context not cancelled by signal")
	}
	assert.Eventually(t, func() bool {
		return logs.FilterMessage("received signal, shutting down").Len() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSignalContext_StopReleases(t *testing.T) {
	ctx, stop := batch.SignalContext(context.Background(), zap.NewNop())
	stop()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
