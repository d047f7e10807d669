package bundle

import (
	"context"
	"os"
	"path/filepath"

	"github.com/distribution/reference"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/pkg/errors"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/file"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/retry"
)

const (
	fileMediaType     = "application/vnd.mlcocdav.file"
	manifestMediaType = "application/vnd.mlcocdav.bundle"
)

// EncodeOCI packs a bundle directory and distributes it as an OCI artifact
// at the given reference. It is the opposite of [Materialize] with a ref.
func EncodeOCI(ctx context.Context, ref, dir string, insecure bool, username, password string) error {
	// Create a file store
	fst, err := file.New(dir)
	if err != nil {
		return err
	}
	defer func() {
		_ = fst.Close()
	}()

	// Add files to the file store
	fileDescriptors := []v1.Descriptor{}
	if err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		rel, _ := filepath.Rel(dir, path)
		fileDescriptor, err := fst.Add(ctx, rel, fileMediaType, "")
		if err != nil {
			return err
		}
		fileDescriptors = append(fileDescriptors, fileDescriptor)

		return nil
	}); err != nil {
		return err
	}

	// Pack the files and tag the packed manifest
	manifestDescriptor, err := oras.PackManifest(ctx, fst,
		oras.PackManifestVersion1_1,
		manifestMediaType,
		oras.PackManifestOptions{Layers: fileDescriptors},
	)
	if err != nil {
		return err
	}

	rr, err := reference.Parse(ref)
	if err != nil {
		return err
	}
	rt, ok := rr.(reference.Tagged)
	if !ok {
		return errors.New("invalid reference format, may miss a tag")
	}

	tag := rt.Tag()
	if err = fst.Tag(ctx, manifestDescriptor, tag); err != nil {
		return err
	}

	// Connect to the remote repository
	repo, err := remote.NewRepository(ref)
	if err != nil {
		return err
	}
	repo.PlainHTTP = insecure
	cli := &auth.Client{
		Client: retry.DefaultClient,
		Cache:  auth.NewCache(),
	}
	if username != "" && password != "" {
		cli.Credential = auth.StaticCredential(ref, auth.Credential{
			Username: username,
			Password: password,
		})
	}
	repo.Client = cli

	// Copy from the file store to the remote repository
	_, err = oras.Copy(ctx, fst, tag, repo, tag, oras.DefaultCopyOptions)
	return err
}
