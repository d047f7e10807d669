package fs

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"

	"github.com/mlcocdav/ctfbench/global"
	errs "github.com/mlcocdav/ctfbench/pkg/errors"
)

// Deployment records one live compose project, so a crashed run or the
// janitor can find and reclaim it
// (at `<global.Conf.Directory>/deployments/<hash(identity)>/info.json`).
type Deployment struct {
	Identity    string `json:"identity"`
	ChallengeID string `json:"challenge_id"`
	Model       string `json:"model"`
	Epoch       int    `json:"epoch"`

	// Project is the compose project name passed to `docker compose -p`.
	Project string `json:"project"`

	// Dir the compose definition was rendered to.
	Dir string `json:"dir"`

	// Until is the hard deadline past which the janitor reclaims the
	// deployment. Nil means reclaim is left to the owning run.
	Until *time.Time `json:"until,omitempty"`
}

func DeploymentDirectory(identity string) string {
	return filepath.Join(global.Conf.Directory, deploySubdir, Hash(identity))
}

// CheckDeployment returns an error if no deployment record exists for the
// given identity.
func CheckDeployment(identity string) error {
	fpath := filepath.Join(DeploymentDirectory(identity), infoFile)
	if _, err := os.Stat(fpath); err != nil {
		return &errs.ErrDeploymentExist{
			Identity: identity,
			Exist:    false,
		}
	}
	return nil
}

func ListDeployments() (identities []string, merr error) {
	dir, err := os.ReadDir(filepath.Join(global.Conf.Directory, deploySubdir))
	if err != nil {
		return
	}
	for _, dfs := range dir {
		d := &Deployment{}
		if err := LoadJSON(filepath.Join(global.Conf.Directory, deploySubdir, dfs.Name(), infoFile), d); err != nil {
			merr = multierr.Append(merr, err)
			continue
		}
		identities = append(identities, d.Identity)
	}
	if merr != nil {
		return nil, merr
	}
	return
}

func LoadDeployment(identity string) (*Deployment, error) {
	if err := CheckDeployment(identity); err != nil {
		return nil, err
	}

	d := &Deployment{}
	if err := LoadJSON(filepath.Join(DeploymentDirectory(identity), infoFile), d); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Deployment) Save() error {
	return SaveJSON(filepath.Join(DeploymentDirectory(d.Identity), infoFile), d)
}

func (d *Deployment) Delete() error {
	return os.RemoveAll(DeploymentDirectory(d.Identity))
}

// Expired reports whether the deployment outlived its deadline.
func (d *Deployment) Expired(now time.Time) bool {
	return d.Until != nil && now.After(*d.Until)
}
