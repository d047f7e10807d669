package etcd

import (
	"context"
	"sync"

	"github.com/sony/gobreaker/v2"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/concurrency"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// Manager maintains a single etcd client shared by every lock, recreating it
// when the connection broke, and shielding calls behind a circuit breaker so
// an etcd outage degrades fast instead of hanging every eval.
type Manager struct {
	mu     sync.RWMutex
	client *clientv3.Client
	config Config

	breaker *gobreaker.CircuitBreaker[any]
}

type Config struct {
	Endpoint string
	Username string
	Password string
	Logger   *zap.Logger

	CBOnStateChange func(name string, from, to gobreaker.State)
}

func NewManager(config Config) *Manager {
	return &Manager{
		config: config,
		breaker: gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:          "etcd circuit breaker",
			OnStateChange: config.CBOnStateChange,
		}),
	}
}

func (m *Manager) getClient(ctx context.Context) (*clientv3.Client, error) {
	m.mu.RLock()
	client := m.client
	m.mu.RUnlock()

	if client != nil {
		if _, err := client.Status(ctx, m.config.Endpoint); err == nil {
			return client, nil
		}
	}

	return m.recreateClient(ctx)
}

func (m *Manager) recreateClient(ctx context.Context) (*clientv3.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		if _, err := m.client.Status(ctx, m.config.Endpoint); err == nil {
			return m.client, nil
		}
		_ = m.client.Close()
		m.client = nil
	}

	cli, err := clientv3.New(clientv3.Config{
		Endpoints: []string{m.config.Endpoint},
		Username:  m.config.Username,
		Password:  m.config.Password,
		Logger:    m.config.Logger,
		DialOptions: []grpc.DialOption{
			grpc.WithStatsHandler(otelgrpc.NewClientHandler()), // propagate OTEL span info
		},
	})
	if err != nil {
		return nil, err
	}

	if _, err := cli.Status(ctx, m.config.Endpoint); err != nil {
		_ = cli.Close()
		return nil, err
	}

	m.client = cli
	return cli, nil
}

func (m *Manager) NewConcurrencySession(ctx context.Context) (*concurrency.Session, error) {
	s, err := m.breaker.Execute(func() (any, error) {
		cli, err := m.getClient(ctx)
		if err != nil {
			return nil, err
		}
		return concurrency.NewSession(cli, concurrency.WithContext(ctx))
	})
	if err != nil {
		return nil, err
	}
	return s.(*concurrency.Session), nil
}

func (m *Manager) Get(ctx context.Context, key string) (*clientv3.GetResponse, error) {
	res, err := m.breaker.Execute(func() (any, error) {
		cli, err := m.getClient(ctx)
		if err != nil {
			return nil, err
		}
		return cli.Get(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return res.(*clientv3.GetResponse), nil
}

func (m *Manager) Put(ctx context.Context, key, val string) error {
	_, err := m.breaker.Execute(func() (any, error) {
		cli, err := m.getClient(ctx)
		if err != nil {
			return nil, err
		}
		return cli.Put(ctx, key, val)
	})
	return err
}

func (m *Manager) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil {
		return nil
	}
	err := m.client.Close()
	m.client = nil
	return err
}
