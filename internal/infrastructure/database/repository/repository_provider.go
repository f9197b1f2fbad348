package repository

import (
	"github.com/google/wire"

	"github.com/janhq/jan-workspace/internal/domain/embedding"
	"github.com/janhq/jan-workspace/internal/domain/mention"
	"github.com/janhq/jan-workspace/internal/domain/notification"
	"github.com/janhq/jan-workspace/internal/infrastructure/database/repository/embeddingrepo"
	"github.com/janhq/jan-workspace/internal/infrastructure/database/repository/notificationrepo"
)

var RepositoryProvider = wire.NewSet(
	notificationrepo.NewNotificationGormRepository,
	wire.Bind(new(notification.Repository), new(*notificationrepo.NotificationGormRepository)),
	wire.Bind(new(mention.MemberRepository), new(*notificationrepo.NotificationGormRepository)),

	embeddingrepo.NewEmbeddingGormRepository,
	wire.Bind(new(embedding.Repository), new(*embeddingrepo.EmbeddingGormRepository)),
	wire.Bind(new(embedding.MessageSearcher), new(*embeddingrepo.EmbeddingGormRepository)),
)
