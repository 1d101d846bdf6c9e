//go:build wireinject
// +build wireinject

package di

import (
	"MacroPulse/pkg/config"
	"MacroPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCache,

		// Repositories
		ProvidePanelStore,
		ProvidePanelSource,
		ProvideSnapshotStore,
		ProvidePublisher,

		// Analysis engines
		ProvideSignalEngine,
		ProvideJudgmentEngine,
		ProvideCompositeScorer,
		ProvideForwardAnalyzer,

		// Use cases
		ProvideEvaluator,
		ProvideKafkaPanelHandler,

		// HTTP surface
		ProvideAPIHandler,
		ProvideWSHub,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
