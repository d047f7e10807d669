package eval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mlcocdav/ctfbench/global"
	"github.com/mlcocdav/ctfbench/pkg/bundle"
	"github.com/mlcocdav/ctfbench/pkg/challenge"
	errs "github.com/mlcocdav/ctfbench/pkg/errors"
	"github.com/mlcocdav/ctfbench/pkg/fs"
	"github.com/mlcocdav/ctfbench/pkg/identity"
	"github.com/mlcocdav/ctfbench/pkg/provider"
	"github.com/mlcocdav/ctfbench/pkg/sandbox"
	"github.com/mlcocdav/ctfbench/sdk"
)

// Options configure a benchmark run.
type Options struct {
	Models     []string
	Challenges []challenge.Challenge
	Epochs     int
	Reducers   []Reducer
	Limits     Limits

	// MaxConcurrency bounds how many (model, challenge) samples run at once.
	// Epochs of one sample always run sequentially.
	MaxConcurrency int

	// ExecTimeout bounds one bash tool call in the sandbox.
	ExecTimeout time.Duration

	// DeploymentTimeout is the hard deadline given to each deployment, past
	// which the janitor may reclaim it.
	DeploymentTimeout time.Duration

	// BundleRef optionally maps a challenge to the OCI reference of its
	// bundle. Nil (or empty return) renders the built-in topology.
	BundleRef func(challenge.Challenge) string

	// FlagBase, when set, derives per-epoch flags from it with the identity
	// as seed, making the whole run reproducible. Empty means fresh random
	// flags every epoch.
	FlagBase string

	Policy   Policy
	Scorer   Scorer
	Provider *provider.Client
}

func (opts *Options) validate() error {
	if len(opts.Models) == 0 {
		return &errs.ErrValidationFailed{Reason: "at least one model is required"}
	}
	if len(opts.Challenges) == 0 {
		return &errs.ErrValidationFailed{Reason: "at least one challenge is required"}
	}
	if opts.Epochs <= 0 {
		return &errs.ErrValidationFailed{Reason: "epochs must be strictly positive"}
	}
	if opts.Provider == nil {
		return &errs.ErrValidationFailed{Reason: "a provider client is required"}
	}
	if err := opts.Limits.validate(); err != nil {
		return &errs.ErrValidationFailed{Reason: err.Error()}
	}
	return nil
}

// Runner fans a benchmark out: every (model, challenge) sample gets its
// epochs run in a dedicated sandbox, results are reduced then persisted.
type Runner struct {
	opts    Options
	tracker *Tracker
}

func NewRunner(opts Options) (*Runner, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 1
	}
	if opts.Scorer == nil {
		opts.Scorer = Includes{}
	}
	return &Runner{
		opts:    opts,
		tracker: &Tracker{},
	}, nil
}

// Tracker returns the live progress of the run.
func (r *Runner) Tracker() *Tracker {
	return r.tracker
}

type sample struct {
	model string
	chall challenge.Challenge
}

type sampleResult struct {
	index  int
	result TaskResult
}

// Run executes the whole benchmark and returns its report.
// Sample-level failures (a sandbox that won't start, a dead provider) are
// recorded in the report as failed epochs rather than aborting the run.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	ctx, span := global.Tracer.Start(ctx, "benchmark-run")
	defer span.End()

	samples := make([]sample, 0, len(r.opts.Models)*len(r.opts.Challenges))
	for _, model := range r.opts.Models {
		for _, chall := range r.opts.Challenges {
			samples = append(samples, sample{model: model, chall: chall})
		}
	}
	r.tracker.start(int64(len(samples) * r.opts.Epochs))

	rep := &Report{
		RunID:       identity.Compute("run", time.Now().Format(time.RFC3339Nano)),
		StartedAt:   time.Now(),
		Models:      r.opts.Models,
		Epochs:      r.opts.Epochs,
		MaxMessages: r.opts.Limits.MaxMessages,
		MaxAttempts: r.opts.Limits.MaxAttempts,
	}
	for _, chall := range r.opts.Challenges {
		rep.Challenges = append(rep.Challenges, chall.ID)
	}
	for _, red := range r.opts.Reducers {
		rep.Reducers = append(rep.Reducers, red.Name)
	}

	// Fan out with a semaphore, collect in submission order.
	sem := make(chan struct{}, r.opts.MaxConcurrency)
	resCh := make(chan sampleResult, len(samples))
	wg := &sync.WaitGroup{}
	for i, smp := range samples {
		wg.Add(1)
		go func(idx int, smp sample) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				resCh <- sampleResult{
					index: idx,
					result: TaskResult{
						Model:       smp.model,
						ChallengeID: smp.chall.ID,
					},
				}
				return
			}

			resCh <- sampleResult{
				index:  idx,
				result: r.runSample(ctx, smp),
			}
		}(i, smp)
	}
	wg.Wait()
	close(resCh)

	rep.Results = make([]TaskResult, len(samples))
	for res := range resCh {
		rep.Results[res.index] = res.result
	}

	rep.reduce(r.opts.Reducers)
	rep.FinishedAt = time.Now()
	if err := rep.Save(); err != nil {
		return nil, err
	}
	return rep, nil
}

func (r *Runner) runSample(ctx context.Context, smp sample) TaskResult {
	ctx = global.WithModel(ctx, smp.model)
	ctx = global.WithChallengeID(ctx, smp.chall.ID)
	logger := global.Log()

	res := TaskResult{
		Model:       smp.model,
		ChallengeID: smp.chall.ID,
		Epochs:      make([]EpochResult, 0, r.opts.Epochs),
	}

	ref := ""
	if r.opts.BundleRef != nil {
		ref = r.opts.BundleRef(smp.chall)
	}
	dir, err := bundle.Materialize(ctx, smp.chall, ref)
	if err != nil {
		logger.Error(ctx, "materializing bundle", zap.Error(err))
		for epoch := 0; epoch < r.opts.Epochs; epoch++ {
			res.Epochs = append(res.Epochs, EpochResult{
				Epoch: epoch,
				Error: err.Error(),
			})
			r.tracker.epoch(false, true)
		}
		return res
	}

	task := NewTask(smp.chall)
	for epoch := 0; epoch < r.opts.Epochs; epoch++ {
		epRes := r.runEpoch(global.WithEpoch(ctx, epoch), task, smp, dir, epoch)
		res.Epochs = append(res.Epochs, epRes)
		r.tracker.epoch(epRes.Score.Value >= 1, epRes.Error != "")
	}
	return res
}

func (r *Runner) runEpoch(ctx context.Context, task Task, smp sample, bundleDir string, epoch int) (epRes EpochResult) {
	ctx, span := global.Tracer.Start(ctx, "epoch")
	defer span.End()
	logger := global.Log()

	id := identity.Compute(smp.chall.ID, fmt.Sprintf("%s-%d", smp.model, epoch))
	ctx = global.WithIdentity(ctx, id)
	epRes = EpochResult{
		Epoch:    epoch,
		Identity: id,
	}

	flags := r.flagsFor(smp.chall, id)
	target := flags[len(flags)-1]

	depDir, err := renderDeployment(bundleDir, id, flags)
	if err != nil {
		epRes.Error = err.Error()
		return
	}

	dep := &fs.Deployment{
		Identity:    id,
		ChallengeID: smp.chall.ID,
		Model:       smp.model,
		Epoch:       epoch,
		Project:     "ctfbench-" + id,
		Dir:         depDir,
	}
	if r.opts.DeploymentTimeout > 0 {
		until := time.Now().Add(r.opts.DeploymentTimeout)
		dep.Until = &until

		// The deadline binds the epoch too, not only the janitor: past it
		// the sandbox may be reclaimed under the agent's feet.
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadlineCause(ctx, until, errs.ErrDeploymentExpired)
		defer cancel()
	}
	if err := dep.Save(); err != nil {
		epRes.Error = err.Error()
		return
	}

	sb := sandbox.New(dep.Project, depDir)
	if err := sb.Up(ctx); err != nil {
		// `compose up --wait` can fail with containers partially started,
		// so tear down before dropping the record.
		epRes.Error = multierr.Append(err, reclaim(ctx, sb, dep)).Error()
		return
	}
	defer func() {
		if err := reclaim(ctx, sb, dep); err != nil {
			logger.Error(ctx, "reclaiming deployment", zap.Error(err))
		}
	}()

	agent := &Agent{
		Provider:    r.opts.Provider,
		Sandbox:     sb,
		Policy:      r.opts.Policy,
		Scorer:      r.opts.Scorer,
		Limits:      r.opts.Limits,
		ExecTimeout: r.opts.ExecTimeout,
	}
	out, err := agent.Run(ctx, task, smp.model, target)
	epRes.Outcome = out
	if err != nil {
		epRes.Error = err.Error()
		return
	}

	logger.Info(ctx, "epoch completed",
		zap.Float64("score", out.Score.Value),
		zap.String("stopped", out.Stopped),
		zap.Int("messages", out.Messages),
		zap.Int("attempts", out.Attempts),
	)
	return
}

// teardowner is the reclaim-facing side of a sandbox.
type teardowner interface {
	Down(ctx context.Context) error
}

// reclaim tears a compose project down, then drops its deployment record.
// A failed teardown keeps the record so the janitor retries it later.
func reclaim(ctx context.Context, sb teardowner, dep *fs.Deployment) error {
	if err := sb.Down(ctx); err != nil {
		return err
	}
	return dep.Delete()
}

// flagsFor derives the per-epoch flags of a challenge. With a flag base the
// derivation is seeded by the identity hence reproducible; without, flags are
// fresh random values.
func (r *Runner) flagsFor(chall challenge.Challenge, id string) []string {
	flags := make([]string, 0, chall.FlagCount)
	for n := 1; n <= chall.FlagCount; n++ {
		if r.opts.FlagBase != "" {
			seed := fs.Hash(fmt.Sprintf("%s-%d", id, n))[:16]
			flags = append(flags, sdk.Flag(seed, r.opts.FlagBase))
			continue
		}
		flags = append(flags, sdk.RandomFlag(16))
	}
	return flags
}

// renderDeployment writes the per-epoch compose definition: the bundle
// topology with the epoch flags injected as environment.
func renderDeployment(bundleDir, id string, flags []string) (string, error) {
	raw, err := os.ReadFile(filepath.Join(bundleDir, challenge.ComposeFile))
	if err != nil {
		return "", &errs.ErrInternal{Sub: err}
	}
	cmp, err := challenge.ParseCompose(raw)
	if err != nil {
		return "", err
	}
	cmp.InjectFlags(flags)

	out, err := cmp.Marshal()
	if err != nil {
		return "", &errs.ErrInternal{Sub: err}
	}

	depDir := fs.DeploymentDirectory(id)
	if err := os.MkdirAll(depDir, os.ModePerm); err != nil {
		return "", &errs.ErrInternal{Sub: err}
	}
	if err := os.WriteFile(filepath.Join(depDir, challenge.ComposeFile), out, 0o600); err != nil {
		return "", &errs.ErrInternal{Sub: err}
	}
	return depDir, nil
}
