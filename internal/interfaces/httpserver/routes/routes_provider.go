package routes

import (
	"github.com/google/wire"

	"github.com/janhq/jan-workspace/internal/domain/embedding"
	"github.com/janhq/jan-workspace/internal/domain/notification"
	"github.com/janhq/jan-workspace/internal/interfaces/httpserver/handlers/embeddinghandler"
	"github.com/janhq/jan-workspace/internal/interfaces/httpserver/handlers/notificationhandler"
	v1 "github.com/janhq/jan-workspace/internal/interfaces/httpserver/routes/v1"
)

var RouteProvider = wire.NewSet(
	// Handlers
	notificationhandler.NewNotificationHandler,
	wire.Bind(new(notificationhandler.Dispatcher), new(*notification.Service)),
	embeddinghandler.NewEmbeddingHandler,
	wire.Bind(new(embeddinghandler.Sweeper), new(*embedding.Sweeper)),
	wire.Bind(new(embeddinghandler.Processor), new(*embedding.Worker)),
	wire.Bind(new(embeddinghandler.Querier), new(*embedding.QueryService)),

	// Routes
	v1.NewV1Route,
)
