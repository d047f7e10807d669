package oci

import (
	"sync"
)

// Manager pulls challenge bundles distributed as OCI artifacts and keeps them
// in a digest-addressed local cache, so a reference is downloaded once per
// digest whatever the number of runs using it.
type Manager struct {
	locks    *sync.Map
	digCache map[string]*cacheEntry

	insecure           bool
	username, password string

	cacheOverride string
}

func NewManager(
	insecure bool,
	username, password string,
	cacheOverride string,
) *Manager {
	return &Manager{
		locks:         &sync.Map{},
		digCache:      map[string]*cacheEntry{},
		insecure:      insecure,
		username:      username,
		password:      password,
		cacheOverride: cacheOverride,
	}
}
