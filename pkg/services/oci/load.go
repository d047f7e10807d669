package oci

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/file"
	"oras.land/oras-go/v2/registry/remote"

	"github.com/mlcocdav/ctfbench/pkg/challenge"
	errs "github.com/mlcocdav/ctfbench/pkg/errors"
)

type cacheEntry struct {
	name string
	dig  string
}

// Load a reference (a challenge bundle, distributed as an OCI artifact).
// It will also ensure its basic validity, i.e., that it carries a usable
// compose definition and that no flag placeholder leaks into it.
//
// Returns the directory it has been loaded into, ready to use, or an error.
func (mg *Manager) Load(
	ctx context.Context,
	ref string,
) (string, error) {
	// Lock this ref so only one call works on it in parallel
	// -> avoid duplicated OCI calls, and inconsistent filesystem operations
	l, _ := mg.locks.LoadOrStore(ref, &sync.Mutex{})
	lock := l.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	name, dig, err := mg.resolve(ref)
	if err != nil {
		return "", err
	}

	// Check if already loaded in cache
	dir := mg.digestDirectory(dig)
	_, err = os.Stat(dir)
	if err == nil {
		return dir, nil
	}
	if !os.IsNotExist(err) { // -> an error which is not "not found" -> there is a problem
		return "", &errs.ErrInternal{
			Sub: err,
		}
	}

	// Download the corresponding OCI artifact
	if err := mg.downloadOCI(ctx, ref, name, dir); err != nil {
		return "", err
	}

	// Validate it.
	// If there is an error, remove the directory such that a next call might
	// fix it (e.g., if a transient error).
	if err := Validate(dir); err != nil {
		return "", multierr.Append(err, os.RemoveAll(dir))
	}

	return dir, nil
}

func (mg *Manager) resolve(ref string) (name, dig string, err error) {
	if hit, ok := mg.digCache[ref]; ok {
		return hit.name, hit.dig, nil
	}

	name, dig, err = resolve(ref, mg.insecure, mg.username, mg.password)
	if err != nil {
		return
	}

	mg.digCache[ref] = &cacheEntry{
		name: name,
		dig:  dig,
	}
	return
}

func (mg *Manager) downloadOCI(ctx context.Context, ref, name, dir string) error {
	fst, err := file.New(dir)
	if err != nil {
		return &errs.ErrInternal{Sub: err}
	}
	defer func() {
		_ = fst.Close()
	}()

	repo, err := remote.NewRepository(ref)
	if err != nil {
		return err
	}
	repo.PlainHTTP = mg.insecure
	repo.Client = newClient(name, mg.username, mg.password)

	if _, err := oras.Copy(ctx,
		repo, ref, // remote artifact
		fst, ref, // filesystem copy
		oras.DefaultCopyOptions,
	); err != nil {
		return err
	}
	return nil
}

func (mg *Manager) digestDirectory(dig string) string {
	return filepath.Join(mg.cacheDir(), "oci", dig)
}

// Validate checks a bundle directory holds a usable challenge bundle: a
// parseable compose definition free of flag placeholders.
// Dockerfiles in the bundle are allowed to carry placeholders, that is the
// committed form; the compose definition is deployed as-is hence must not.
func Validate(dir string) error {
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
	return nil
}
