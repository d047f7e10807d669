package global

import (
	"sync"

	"github.com/mlcocdav/ctfbench/pkg/services/etcd"
)

var (
	etcdInstance *etcd.Manager
	etcdOnce     sync.Once
)

func GetEtcdManager() *etcd.Manager {
	etcdOnce.Do(func() {
		etcdInstance = etcd.NewManager(etcd.Config{
			Endpoint: Conf.Lock.EtcdEndpoint,
			Username: Conf.Lock.EtcdUsername,
			Password: Conf.Lock.EtcdPassword,
			Logger:   Log().Sub,
		})
	})
	return etcdInstance
}
