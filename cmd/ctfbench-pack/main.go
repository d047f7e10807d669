package main

import (
	"context"
	"fmt"
	"net/mail"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/mlcocdav/ctfbench/global"
	"github.com/mlcocdav/ctfbench/pkg/bundle"
	"github.com/mlcocdav/ctfbench/pkg/challenge"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
	builtBy = ""
)

func main() {
	cmd := &cli.Command{
		Name:  "CTFBench-Pack",
		Usage: "CTFBench-Pack builds, verifies and distributes challenge bundles as OCI artifacts.",
		Flags: []cli.Flag{
			cli.VersionFlag,
			cli.HelpFlag,
			&cli.StringFlag{
				Name:        "cache",
				Sources:     cli.EnvVars("CACHE"),
				Destination: &global.Conf.Cache,
				Usage:       "Override the cache directory to store OCI layouts.",
				TakesFile:   true, // a directory actually
			},
			&cli.StringFlag{
				Name:        "log-level",
				Sources:     cli.EnvVars("LOG_LEVEL"),
				Value:       "info",
				Destination: &global.Conf.LogLevel,
				Usage:       "Use to specify the level of logging.",
			},
			&cli.BoolFlag{
				Name:        "oci.insecure",
				Sources:     cli.EnvVars("OCI_INSECURE"),
				Destination: &global.Conf.OCI.Insecure,
				Usage:       "If set to true, use HTTP rather than HTTPS.",
			},
			&cli.StringFlag{
				Name:        "oci.username",
				Sources:     cli.EnvVars("OCI_USERNAME"),
				Destination: &global.Conf.OCI.Username,
				Usage:       "Configure the OCI registry username.",
			},
			&cli.StringFlag{
				Name:        "oci.password",
				Sources:     cli.EnvVars("OCI_PASSWORD"),
				Destination: &global.Conf.OCI.Password,
				Usage:       "Configure the OCI registry password.",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "verify",
				Usage:     "Verify a bundle directory against its challenge definition.",
				ArgsUsage: "<challenge> <dir>",
				Action:    verify,
			},
			{
				Name:      "push",
				Usage:     "Verify then push a bundle directory to an OCI registry.",
				ArgsUsage: "<challenge> <dir> <ref>",
				Action:    push,
			},
			{
				Name:      "pull",
				Usage:     "Pull a bundle from an OCI registry and print its directory.",
				ArgsUsage: "<challenge> <ref>",
				Action:    pull,
			},
		},
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

func verify(_ context.Context, cmd *cli.Command) error {
	chall, dir, err := args2(cmd)
	if err != nil {
		return err
	}
	return bundle.Verify(dir, chall)
}

func push(ctx context.Context, cmd *cli.Command) error {
	chall, dir, err := args2(cmd)
	if err != nil {
		return err
	}
	ref := cmd.Args().Get(2)
	if ref == "" {
		return fmt.Errorf("missing OCI reference argument")
	}
	if err := bundle.Verify(dir, chall); err != nil {
		return err
	}
	return bundle.EncodeOCI(ctx, ref, dir,
		global.Conf.OCI.Insecure,
		global.Conf.OCI.Username,
		global.Conf.OCI.Password,
	)
}

func pull(ctx context.Context, cmd *cli.Command) error {
	chall, err := challenge.Get(cmd.Args().Get(0))
	if err != nil {
		return err
	}
	ref := cmd.Args().Get(1)
	if ref == "" {
		return fmt.Errorf("missing OCI reference argument")
	}
	dir, err := bundle.Materialize(ctx, chall, ref)
	if err != nil {
		return err
	}
	fmt.Println(dir)
	return nil
}

func args2(cmd *cli.Command) (challenge.Challenge, string, error) {
	chall, err := challenge.Get(cmd.Args().Get(0))
	if err != nil {
		return challenge.Challenge{}, "", err
	}
	dir := cmd.Args().Get(1)
	if dir == "" {
		return challenge.Challenge{}, "", fmt.Errorf("missing bundle directory argument")
	}
	return chall, dir, nil
}
