//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/Florenz0707/NASSAV-sub000/internal/config"
	"github.com/google/wire"
	"github.com/sirupsen/logrus"
)

//go:generate go run github.com/google/wire/cmd/wire

// InitializeApp builds the application graph from configuration
func InitializeApp(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, func(), error) {
	panic(wire.Build(ProviderSet))
}
