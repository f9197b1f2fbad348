package interfaces

import (
	"github.com/google/wire"

	"github.com/janhq/jan-workspace/internal/interfaces/httpserver"
)

var InterfacesProvider = wire.NewSet(
	httpserver.NewHttpServer,
)
