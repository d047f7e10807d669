package main

import (
	"context"
	"net/mail"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mlcocdav/ctfbench/global"
	"github.com/mlcocdav/ctfbench/pkg/bundle"
	"github.com/mlcocdav/ctfbench/pkg/challenge"
	"github.com/mlcocdav/ctfbench/pkg/fs"
	"github.com/mlcocdav/ctfbench/pkg/eval"
	"github.com/mlcocdav/ctfbench/pkg/provider"
	"github.com/mlcocdav/ctfbench/status"
)

var (
	Version = "dev"
	Commit  = ""
	Date    = ""
	BuiltBy = ""
)

func main() {
	cmd := &cli.Command{
		Name:  "CTFBench",
		Usage: "Offensive CTF benchmark for LLM agents, in sandboxes on demand",
		Flags: []cli.Flag{
			cli.VersionFlag,
			cli.HelpFlag,
			&cli.StringSliceFlag{
				Name:     "model",
				Aliases:  []string{"m"},
				Sources:  cli.EnvVars("MODEL"),
				Category: "run",
				Usage:    "Define a model to benchmark. Repeatable.",
			},
			&cli.StringSliceFlag{
				Name:     "challenges",
				Sources:  cli.EnvVars("CHALLENGES"),
				Category: "run",
				Usage:    "Define the challenges to run, by name. Default to all of them.",
			},
			&cli.IntFlag{
				Name:     "epochs",
				Sources:  cli.EnvVars("EPOCHS"),
				Category: "run",
				Value:    1,
				Usage:    "Define how many times each (model, challenge) sample is run.",
			},
			&cli.StringFlag{
				Name:     "epochs-reducer",
				Sources:  cli.EnvVars("EPOCHS_REDUCER"),
				Category: "run",
				Value:    "mean",
				Usage:    "Define how epoch scores fold into one, comma-separated (mean, median, max, pass_at_<k>). The first one is the headline.",
			},
			&cli.IntFlag{
				Name:     "max-messages",
				Sources:  cli.EnvVars("MAX_MESSAGES"),
				Category: "run",
				Value:    30,
				Usage:    "Define the maximum number of model turns per epoch.",
			},
			&cli.IntFlag{
				Name:     "max-attempts",
				Sources:  cli.EnvVars("MAX_ATTEMPTS"),
				Category: "run",
				Value:    1,
				Usage:    "Define the maximum number of flag submissions per epoch.",
			},
			&cli.IntFlag{
				Name:     "max-concurrency",
				Sources:  cli.EnvVars("MAX_CONCURRENCY"),
				Category: "run",
				Value:    1,
				Usage:    "Define how many samples run in parallel. Each one holds a full sandbox, size accordingly.",
			},
			&cli.DurationFlag{
				Name:     "exec-timeout",
				Sources:  cli.EnvVars("EXEC_TIMEOUT"),
				Category: "run",
				Value:    5 * time.Minute,
				Usage:    "Define the timeout of a single command in the sandbox.",
			},
			&cli.DurationFlag{
				Name:     "timeout",
				Sources:  cli.EnvVars("TIMEOUT"),
				Category: "run",
				Value:    2 * time.Hour,
				Usage:    "Define the hard deadline of each deployment, past which the janitor reclaims it.",
			},
			&cli.StringFlag{
				Name:     "flag-base",
				Sources:  cli.EnvVars("FLAG_BASE"),
				Category: "run",
				Usage:    "If set, derive per-epoch flags from this base for reproducible runs. Default to fresh random flags.",
			},
			&cli.StringFlag{
				Name:        "api.url",
				Sources:     cli.EnvVars("API_URL"),
				Category:    "provider",
				Value:       "http://localhost:4000/v1",
				Destination: &global.Conf.Provider.URL,
				Usage:       "Define the OpenAI-compatible API base URL to reach models through.",
			},
			&cli.StringFlag{
				Name:        "api.key",
				Sources:     cli.EnvVars("API_KEY"),
				Category:    "provider",
				Destination: &global.Conf.Provider.APIKey,
				Usage:       "Define the API key to authenticate to the provider with.",
			},
			&cli.IntFlag{
				Name:     "status.port",
				Sources:  cli.EnvVars("STATUS_PORT"),
				Category: "global",
				Value:    8080,
				Usage:    "Define the status server port to listen on (healthcheck and progress).",
			},
			&cli.StringFlag{
				Name:        "dir",
				Aliases:     []string{"d"},
				Sources:     cli.EnvVars("DIR"),
				Category:    "global",
				Value:       "/tmp/ctfbench",
				Destination: &global.Conf.Directory,
				Usage:       "Define the volume to read/write bundles, deployments and reports to. It should be sharded across replicas for HA.",
			},
			&cli.StringFlag{
				Name:        "cache",
				Sources:     cli.EnvVars("CACHE"),
				Category:    "global",
				Destination: &global.Conf.Cache,
				Usage: "Override the cache directory to store OCI layouts. Default to $HOME/.cache/ctfbench. " +
					"WARNING: do not touch if you are not sure of what you are doing !",
				TakesFile: true, // a directory actually
			},
			&cli.StringFlag{
				Name:     "log-level",
				Sources:  cli.EnvVars("LOG_LEVEL"),
				Category: "global",
				Value:    "info",
				Action: func(_ context.Context, _ *cli.Command, lvl string) error {
					_, err := zapcore.ParseLevel(lvl)
					return err
				},
				Destination: &global.Conf.LogLevel,
				Usage:       "Use to specify the level of logging.",
			},
			&cli.BoolFlag{
				Name:        "tracing",
				Sources:     cli.EnvVars("TRACING"),
				Category:    "global",
				Destination: &global.Conf.Otel.Tracing,
				Usage:       "If set, export OpenTelemetry signals over OTLP gRPC.",
			},
			&cli.StringFlag{
				Name:        "lock.kind",
				Sources:     cli.EnvVars("LOCK_KIND"),
				Category:    "lock",
				Value:       "local",
				Destination: &global.Conf.Lock.Kind,
				Usage:       "Define the lock kind to use (local, etcd). Use etcd when running replicas over a shared volume.",
			},
			&cli.StringFlag{
				Name:        "etcd.endpoint",
				Sources:     cli.EnvVars("ETCD_ENDPOINT"),
				Category:    "lock",
				Destination: &global.Conf.Lock.EtcdEndpoint,
				Usage:       "Define the etcd endpoint to reach for locks.",
			},
			&cli.StringFlag{
				Name:        "etcd.username",
				Sources:     cli.EnvVars("ETCD_USERNAME"),
				Category:    "lock",
				Destination: &global.Conf.Lock.EtcdUsername,
				Usage:       "If lock is etcd, define the username to use to connect to the etcd cluster.",
				Action: func(_ context.Context, cmd *cli.Command, _ string) error {
					if cmd.String("etcd.endpoint") == "" {
						return errors.New("must configure an etcd endpoint along credentials")
					}
					return nil
				},
			},
			&cli.StringFlag{
				Name:        "etcd.password",
				Sources:     cli.EnvVars("ETCD_PASSWORD"),
				Category:    "lock",
				Destination: &global.Conf.Lock.EtcdPassword,
				Usage:       "If lock is etcd, define the password to use to connect to the etcd cluster.",
				Action: func(_ context.Context, cmd *cli.Command, _ string) error {
					if cmd.String("etcd.endpoint") == "" {
						return errors.New("must configure an etcd endpoint along credentials")
					}
					return nil
				},
			},
			&cli.BoolFlag{
				Name:        "oci.insecure",
				Sources:     cli.EnvVars("OCI_INSECURE"),
				Category:    "bundle",
				Destination: &global.Conf.OCI.Insecure,
				Usage:       "If set to true, use HTTP rather than HTTPS.",
			},
			&cli.StringFlag{
				Name:        "oci.username",
				Sources:     cli.EnvVars("OCI_USERNAME"),
				Category:    "bundle",
				Destination: &global.Conf.OCI.Username,
				Usage:       `Configure the OCI registry username to pull bundles from.`,
			},
			&cli.StringFlag{
				Name:        "oci.password",
				Sources:     cli.EnvVars("OCI_PASSWORD"),
				Category:    "bundle",
				Destination: &global.Conf.OCI.Password,
				Usage:       `Configure the OCI registry password to pull bundles from.`,
			},
			&cli.StringFlag{
				Name:     "bundle.prefix",
				Sources:  cli.EnvVars("BUNDLE_PREFIX"),
				Category: "bundle",
				Usage:    "If set, pull each challenge bundle from <prefix>/<id>:latest rather than rendering the built-in topology.",
			},
		},
		Action: run,
		Authors: []any{
			mail.Address{
				Name:    "mlcocdav",
				Address: "mlcocdav@users.noreply.github.com",
			},
		},
		Version: Version,
		Metadata: map[string]any{
			"version": Version,
			"commit":  Commit,
			"date":    Date,
			"builtBy": BuiltBy,
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

func run(ctx context.Context, cmd *cli.Command) error {
	// Pre-flight global configuration
	global.Version = Version

	challs, err := challenge.Filter(cmd.StringSlice("challenges"))
	if err != nil {
		return err
	}
	reducers, err := eval.ParseReducers(cmd.String("epochs-reducer"))
	if err != nil {
		return err
	}

	// Set up OpenTelemetry
	otelShutdown, err := global.SetupOTelSDK(ctx)
	if err != nil {
		return err
	}
	// Handle shutdown properly so nothing leaks
	defer func() {
		err = multierr.Append(err, otelShutdown(context.WithoutCancel(ctx)))
	}()

	logger := global.Log()
	logger.Info(ctx, "starting benchmark",
		zap.Strings("models", cmd.StringSlice("model")),
		zap.Int("challenges", len(challs)),
		zap.Int("epochs", int(cmd.Int("epochs"))),
		zap.String("directory", global.Conf.Directory),
	)

	// Create context that listens for the interrupt signal from the OS
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create run directories
	for _, dir := range fs.Dirs() {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return errors.Wrapf(err, "during mkdir of %s", dir)
		}
	}

	var bundleRef func(challenge.Challenge) string
	if prefix := cmd.String("bundle.prefix"); prefix != "" {
		bundleRef = func(c challenge.Challenge) string {
			return bundle.Ref(prefix, c)
		}
	}

	runner, err := eval.NewRunner(eval.Options{
		Models:     cmd.StringSlice("model"),
		Challenges: challs,
		Epochs:     int(cmd.Int("epochs")),
		Reducers:   reducers,
		Limits: eval.Limits{
			MaxMessages: int(cmd.Int("max-messages")),
			MaxAttempts: int(cmd.Int("max-attempts")),
		},
		MaxConcurrency:    int(cmd.Int("max-concurrency")),
		ExecTimeout:       cmd.Duration("exec-timeout"),
		DeploymentTimeout: cmd.Duration("timeout"),
		BundleRef:         bundleRef,
		FlagBase:          cmd.String("flag-base"),
		Provider:          provider.NewClient(global.Conf.Provider.URL, global.Conf.Provider.APIKey),
	})
	if err != nil {
		return err
	}

	// Launch status server
	srv := status.NewServer(status.Options{
		Port:    int(cmd.Int("status.port")),
		Tracker: runner.Tracker(),
	})
	if err := srv.Run(ctx); err != nil {
		return err
	}

	rep, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info(ctx, "benchmark completed",
		zap.String("run_id", rep.RunID),
		zap.String("report", rep.Path()),
	)

	// Restore default behavior on the interrupt signal
	stop()
	ctx = context.WithoutCancel(ctx)
	if err := srv.Close(ctx); err != nil {
		logger.Error(ctx, "closing status server",
			zap.Error(err),
		)
	}
	if edp := cmd.String("etcd.endpoint"); edp != "" {
		if err := global.GetEtcdManager().Close(ctx); err != nil {
			logger.Error(ctx, "closing connection to etcd",
				zap.Error(err),
			)
		}
	}

	return nil
}
