package oci

import (
	"github.com/distribution/reference"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/crane"
	"github.com/pkg/errors"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/retry"
)

func newClient(ref, username, password string) *auth.Client {
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
	return cli
}

// resolve splits a reference into its repository name and the digest it
// points to, fetching the digest from upstream when the reference only
// carries a tag.
func resolve(ref string, insecure bool, username, password string) (name, dig string, err error) {
	rr, err := reference.Parse(ref)
	if err != nil {
		return "", "", err
	}
	r, ok := rr.(reference.Named)
	if !ok {
		return "", "", errors.New("invalid reference format, may miss a tag")
	}
	name = r.Name()

	if cref, ok := r.(reference.Canonical); ok {
		// Digest is already in the ref
		return name, cref.Digest().Encoded(), nil
	}

	opts := []crane.Option{}
	if insecure {
		opts = append(opts, crane.Insecure)
	}
	if username != "" && password != "" {
		opts = append(opts, crane.WithAuth(&authn.Basic{
			Username: username,
			Password: password,
		}))
	}
	dig, err = crane.Digest(ref, opts...)
	if err != nil {
		return "", "", err
	}
	return name, dig, nil
}
