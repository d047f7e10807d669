package bundle

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mlcocdav/ctfbench/global"
	"github.com/mlcocdav/ctfbench/pkg/challenge"
	errs "github.com/mlcocdav/ctfbench/pkg/errors"
	"github.com/mlcocdav/ctfbench/pkg/fs"
	"github.com/mlcocdav/ctfbench/pkg/lock"
)

// lclose closes a lock and logs failures, as those should not interrupt the
// caller flow.
func lclose(ctx context.Context, l lock.RWLock) {
	if err := l.Close(); err != nil {
		global.Log().Error(ctx, "closing lock", zap.Error(err))
	}
}

// Ref builds the OCI reference a challenge bundle is distributed at under a
// registry prefix. It is built from the challenge ID, which is a valid
// reference path component, not from its display name.
func Ref(prefix string, chall challenge.Challenge) string {
	return prefix + "/" + chall.ID + ":latest"
}

// Materialize makes the bundle of a challenge available on disk and returns
// its directory.
//
// When ref is set, the bundle is pulled from the OCI registry (cached by
// digest). Otherwise the canonical topology is rendered from the built-in
// registry, so the benchmark runs out of the box with the prebuilt remote
// images.
//
// Concurrent samples of the same challenge contend on a writer lock, so the
// bundle is materialized once whatever the fan-out (and whatever the number
// of replicas when locks are etcd-backed).
func Materialize(ctx context.Context, chall challenge.Challenge, ref string) (string, error) {
	logger := global.Log()

	clock, err := lock.NewRWLock(ctx, "chall/"+fs.Hash(chall.ID))
	if err != nil {
		return "", &errs.ErrInternal{Sub: err}
	}
	defer lclose(ctx, clock)
	if err := clock.RWLock(ctx); err != nil {
		return "", &errs.ErrInternal{Sub: err}
	}
	defer func(l lock.RWLock) {
		if err := l.RWUnlock(ctx); err != nil {
			logger.Error(ctx, "bundle RW unlock", zap.Error(err))
		}
	}(clock)

	if ref != "" {
		dir, err := global.GetOCIManager().Load(ctx, ref)
		if err != nil {
			return "", err
		}
		b := &fs.Bundle{
			ChallengeID: chall.ID,
			Reference:   ref,
			Directory:   dir,
			Hash:        fs.Hash(ref),
		}
		if err := b.Save(); err != nil {
			return "", err
		}
		logger.Debug(ctx, "bundle pulled",
			zap.String("reference", ref),
			zap.String("dir", dir),
		)
		return dir, nil
	}

	// Render the canonical topology under the state directory.
	dir := fs.BundleDirectory(chall.ID)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return "", &errs.ErrInternal{Sub: err}
	}
	raw, err := challenge.Topology(chall).Marshal()
	if err != nil {
		return "", &errs.ErrInternal{Sub: err}
	}
	fpath := filepath.Join(dir, challenge.ComposeFile)
	if err := os.WriteFile(fpath, raw, 0o644); err != nil {
		return "", &errs.ErrInternal{Sub: err}
	}

	b := &fs.Bundle{
		ChallengeID: chall.ID,
		Directory:   dir,
		Hash:        fs.Hash(string(raw)),
	}
	if err := b.Save(); err != nil {
		return "", err
	}
	logger.Debug(ctx, "bundle rendered",
		zap.String("dir", dir),
	)
	return dir, nil
}

// Verify runs the packaging-integrity checks over a bundle directory:
//   - the compose definition exists, parses, and references only valid
//     images, with no flag placeholder deployed as-is;
//   - every Dockerfile placeholder is well-formed and covered by the
//     challenge flag count, so a private build can substitute them all.
func Verify(dir string, chall challenge.Challenge) error {
	b, err := os.ReadFile(filepath.Join(dir, challenge.ComposeFile))
	if err != nil {
		return &errs.ErrBundle{Sub: err}
	}
	if _, err := challenge.ParseCompose(b); err != nil {
		return err
	}
	if err := challenge.CheckNoPlaceholder(challenge.ComposeFile, string(b)); err != nil {
		return &errs.ErrBundle{Sub: err}
	}

	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || filepath.Base(path) != "Dockerfile" {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return &errs.ErrInternal{Sub: err}
		}
		for _, p := range challenge.Placeholders(string(content)) {
			covered := false
			for n := 1; n <= chall.FlagCount; n++ {
				if p == challenge.Placeholder(n) {
					covered = true
					break
				}
			}
			if !covered {
				return &errs.ErrValidationFailed{
					Reason: "placeholder " + p + " in " + path + " exceeds the " +
						chall.ID + " flag count",
				}
			}
		}
		return nil
	})
}
