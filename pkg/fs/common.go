package fs

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/mlcocdav/ctfbench/global"
	errs "github.com/mlcocdav/ctfbench/pkg/errors"
)

const (
	challSubdir  = "chall"
	deploySubdir = "deployments"
	reportSubdir = "reports"
	infoFile     = "info.json"
)

// Hash computes the hash of the given ID.
// It is used to get a standard identifier (both in size and format)
// while avoiding filesystem manipulation (e.g. path traversal).
func Hash(id string) string {
	h := md5.New()
	sum := h.Sum([]byte(id))
	return hex.EncodeToString(sum)
}

// Dirs returns the state directories a run writes under. Callers create them
// eagerly at startup so permission issues surface before any sample runs.
func Dirs() []string {
	return []string{
		filepath.Join(global.Conf.Directory, challSubdir),
		filepath.Join(global.Conf.Directory, deploySubdir),
		filepath.Join(global.Conf.Directory, reportSubdir),
	}
}

// ReportPath is where the report of a given run is stored.
func ReportPath(runID string) string {
	return filepath.Join(global.Conf.Directory, reportSubdir, Hash(runID)+".json")
}

// SaveJSON encodes v into the file at path, creating parents as needed.
func SaveJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return &errs.ErrInternal{Sub: err}
	}
	f, err := os.Create(path)
	if err != nil {
		return &errs.ErrInternal{Sub: err}
	}
	defer fclose(f)

	enc := json.NewEncoder(f)
	if err := enc.Encode(v); err != nil {
		return &errs.ErrInternal{Sub: err}
	}
	return nil
}

// LoadJSON decodes the file at path into v.
func LoadJSON(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return &errs.ErrInternal{Sub: err}
	}
	defer fclose(f)

	dec := json.NewDecoder(f)
	if err := dec.Decode(v); err != nil {
		return &errs.ErrInternal{Sub: err}
	}
	return nil
}

func fclose(f *os.File) {
	if err := f.Close(); err != nil {
		global.Log().Error(context.Background(), "failed to close state file",
			zap.Error(err),
			zap.String("file", f.Name()),
		)
	}
}
