//go:build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/janhq/jan-workspace/internal/domain"
	"github.com/janhq/jan-workspace/internal/infrastructure"
	"github.com/janhq/jan-workspace/internal/interfaces"
	"github.com/janhq/jan-workspace/internal/interfaces/httpserver/routes"
)

func CreateApplication() (*Application, error) {
	wire.Build(
		domain.ServiceProvider,
		infrastructure.InfrastructureProvider,
		routes.RouteProvider,
		interfaces.InterfacesProvider,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil
}
