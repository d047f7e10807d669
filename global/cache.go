package global

import (
	"os"
	"path/filepath"
)

var (
	cacheDir = filepath.Join(os.Getenv("HOME"), ".cache", "ctfbench")
)

// CacheDir returns the cache directory, either configured or defaulted
// to $HOME/.cache/ctfbench.
func CacheDir() string {
	if Conf.Cache != "" {
		return Conf.Cache
	}

	// guarantee that even if $HOME is "/root", "/home/someone", or nothing, it
	// catches that it should be an absolute path to avoid interpretations.
	if !filepath.IsAbs(cacheDir) {
		panic("cache directory is not absolute")
	}

	return cacheDir
}
