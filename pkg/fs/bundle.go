package fs

import (
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	"github.com/mlcocdav/ctfbench/global"
	errs "github.com/mlcocdav/ctfbench/pkg/errors"
)

// Bundle is the internal model of a challenge bundle as it is stored on the
// filesystem (at `<global.Conf.Directory>/chall/<hash(id)>/info.json`).
type Bundle struct {
	ChallengeID string `json:"challenge_id"`
	// Reference is the OCI reference the bundle was loaded from, if any.
	Reference string `json:"reference,omitempty"`
	// Directory the bundle content (compose.yaml and auxiliary files) lives in.
	Directory string `json:"directory"`
	// Hash of the bundle content, for drift detection between verify runs.
	Hash string `json:"hash"`
}

func BundleDirectory(id string) string {
	return filepath.Join(global.Conf.Directory, challSubdir, Hash(id))
}

// CheckBundle returns an error if there is no registered bundle for the
// given challenge id.
func CheckBundle(id string) error {
	// Check both directory and the json file -> the bundle can be decoded in
	// parallel of an incoming query, but as it won't be complete, the json
	// file won't be ready.
	dir := BundleDirectory(id)
	if _, err := os.Stat(dir); err != nil {
		return &errs.ErrChallengeExist{
			ID:    id,
			Exist: false,
		}
	}
	fpath := filepath.Join(dir, infoFile)
	if _, err := os.Stat(fpath); err != nil {
		return &errs.ErrChallengeExist{
			ID:    id,
			Exist: false,
		}
	}
	return nil
}

func ListBundles() (ids []string, merr error) {
	dir, err := os.ReadDir(filepath.Join(global.Conf.Directory, challSubdir))
	if err != nil {
		return
	}
	for _, dfs := range dir {
		b := &Bundle{}
		if err := LoadJSON(filepath.Join(global.Conf.Directory, challSubdir, dfs.Name(), infoFile), b); err != nil {
			merr = multierr.Append(merr, err)
			continue
		}
		ids = append(ids, b.ChallengeID)
	}
	if merr != nil {
		return nil, merr
	}
	return
}

func LoadBundle(id string) (*Bundle, error) {
	if err := CheckBundle(id); err != nil {
		return nil, err
	}

	b := &Bundle{}
	if err := LoadJSON(filepath.Join(BundleDirectory(id), infoFile), b); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bundle) Save() error {
	return SaveJSON(filepath.Join(BundleDirectory(b.ChallengeID), infoFile), b)
}

func (b *Bundle) Delete() error {
	return os.RemoveAll(BundleDirectory(b.ChallengeID))
}
