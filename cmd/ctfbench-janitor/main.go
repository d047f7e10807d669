package main

import (
	"context"
	"net/mail"
	"os"
	"sync"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/mlcocdav/ctfbench/global"
	"github.com/mlcocdav/ctfbench/pkg/fs"
	"github.com/mlcocdav/ctfbench/pkg/sandbox"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
	builtBy = ""
)

func main() {
	cmd := &cli.Command{
		Name:  "CTFBench-Janitor",
		Usage: "CTFBench-Janitor is an utility that reclaims outdated benchmark sandboxes.",
		Flags: []cli.Flag{
			cli.VersionFlag,
			cli.HelpFlag,
			&cli.StringFlag{
				Name:        "dir",
				Aliases:     []string{"d"},
				Sources:     cli.EnvVars("DIR"),
				Value:       "/tmp/ctfbench",
				Destination: &global.Conf.Directory,
				Usage:       "Define the volume the benchmark reads/writes deployments to.",
			},
			&cli.StringFlag{
				Name:        "log-level",
				Sources:     cli.EnvVars("LOG_LEVEL"),
				Value:       "info",
				Destination: &global.Conf.LogLevel,
				Usage:       "Use to specify the level of logging.",
			},
		},
		Action: run,
		Authors: []any{
			mail.Address{
				Name:    "mlcocdav",
				Address: "mlcocdav@users.noreply.github.com",
			},
		},
		Version: version,
		Metadata: map[string]any{
			"version": version,
			"commit":  commit,
			"date":    date,
			"builtBy": builtBy,
		},
	}

	ctx := context.Background()
	if err := cmd.Run(ctx, os.Args); err != nil {
		global.Log().Error(ctx, "fatal error",
			zap.Error(err),
		)
		os.Exit(1)
	}
}

func run(ctx context.Context, _ *cli.Command) error {
	logger := global.Log()

	ids, err := fs.ListDeployments()
	if err != nil {
		// Partial listings are still worth janitoring.
		logger.Error(ctx, "listing deployments", zap.Error(err))
	}

	now := time.Now()
	wg := &sync.WaitGroup{}
	for _, id := range ids {
		ctx := global.WithIdentity(ctx, id)

		dep, err := fs.LoadDeployment(id)
		if err != nil {
			logger.Error(ctx, "loading deployment", zap.Error(err))
			continue
		}
		ctx = global.WithChallengeID(ctx, dep.ChallengeID)

		// Don't janitor if the deployment has no deadline configured
		if dep.Until == nil {
			logger.Info(ctx, "skipping deployment with no deadline configured")
			continue
		}
		if !dep.Expired(now) {
			continue
		}

		logger.Info(ctx, "janitoring deployment")
		wg.Add(1)

		go func(dep *fs.Deployment) {
			defer wg.Done()

			if err := sandbox.New(dep.Project, dep.Dir).Down(ctx); err != nil {
				logger.Error(ctx, "tearing sandbox down",
					zap.Error(err),
				)
				return
			}
			if err := dep.Delete(); err != nil {
				logger.Error(ctx, "deleting deployment record",
					zap.Error(err),
				)
			}
		}(dep)
	}
	wg.Wait()
	return nil
}
