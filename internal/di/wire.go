//go:build wireinject
// +build wireinject

package di

import (
	"GridPull/pkg/config"
	"GridPull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Storage shards
		ProvideIntervalShard,
		ProvideAbuseShard,
		ProvideShards,
		ProvideIntervalStore,
		ProvideAbuseStore,

		// Infrastructure clients
		ProvideUpstream,
		ProvidePublisher,
		ProvideCache,

		// Services
		ProvideTokenService,
		ProvideLimiter,

		// Use cases
		ProvideIngestor,
		ProvideQueryEngine,

		// HTTP surface
		ProvideHandler,
		ProvideMiddleware,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
