package oci

import (
	"os"
	"path/filepath"
)

var (
	cacheDir = filepath.Join(os.Getenv("HOME"), ".cache", "ctfbench")
)

// cacheDir returns the cache directory in which to load bundles.
func (mg *Manager) cacheDir() string {
	if mg.cacheOverride != "" {
		return mg.cacheOverride
	}

	// guarantee that even if $HOME is "/root", "/home/someone", or nothing, it
	// catches that it should be an absolute path to avoid interpretations.
	if !filepath.IsAbs(cacheDir) {
		panic("cache directory is not absolute")
	}

	return cacheDir
}
