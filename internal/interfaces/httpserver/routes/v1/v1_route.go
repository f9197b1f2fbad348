package v1

import (
	"github.com/gin-gonic/gin"

	"github.com/janhq/jan-workspace/internal/interfaces/httpserver/handlers/embeddinghandler"
	"github.com/janhq/jan-workspace/internal/interfaces/httpserver/handlers/notificationhandler"
)

type V1Route struct {
	notification *notificationhandler.NotificationHandler
	embedding    *embeddinghandler.EmbeddingHandler
}

func NewV1Route(
	notification *notificationhandler.NotificationHandler,
	embedding *embeddinghandler.EmbeddingHandler,
) *V1Route {
	return &V1Route{
		notification,
		embedding,
	}
}

func (v1Route *V1Route) RegisterRouter(router gin.IRouter) {
	v1Router := router.Group("/v1")

	notifications := v1Router.Group("/notifications")
	notifications.POST("/dispatch", v1Route.notification.Dispatch)
	v1Router.POST("/messages/:message_id/notifications", v1Route.notification.DispatchMessage)

	// Sweep is also triggered by the in-process crontab; process is the push-mode queue target.
	embeddings := v1Router.Group("/embeddings")
	embeddings.POST("/sweep", v1Route.embedding.Sweep)
	embeddings.POST("/process", v1Route.embedding.Process)

	workspaces := v1Router.Group("/workspaces/:workspace_id")
	workspaces.GET("/search", v1Route.embedding.Search)
	workspaces.GET("/embedding-usage", v1Route.embedding.Usage)
}
