package notificationrepo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/janhq/jan-workspace/internal/domain/mention"
	"github.com/janhq/jan-workspace/internal/domain/notification"
	"github.com/janhq/jan-workspace/internal/infrastructure/database"
	"github.com/janhq/jan-workspace/internal/infrastructure/database/dbschema"
	"github.com/janhq/jan-workspace/internal/infrastructure/database/transaction"
	"github.com/janhq/jan-workspace/internal/utils/platformerrors"
)

const insertBatchSize = 500

type NotificationGormRepository struct {
	db *transaction.Database
}

var (
	_ notification.Repository  = (*NotificationGormRepository)(nil)
	_ mention.MemberRepository = (*NotificationGormRepository)(nil)
)

func NewNotificationGormRepository(db *transaction.Database) *NotificationGormRepository {
	return &NotificationGormRepository{db: db}
}

// GetChannelName implements notification.Repository.
func (repo *NotificationGormRepository) GetChannelName(ctx context.Context, channelID string) (string, error) {
	var names []string
	err := repo.db.GetTx(ctx).
		Table("channels").
		Where("id = ?", channelID).
		Limit(1).
		Pluck("name", &names).Error
	if err != nil {
		return "", database.AsRepositoryError(ctx, err, "failed to load channel name")
	}
	if len(names) == 0 {
		return "", platformerrors.NewError(ctx, platformerrors.LayerRepository, platformerrors.ErrorTypeNotFound, "channel not found", nil)
	}
	return names[0], nil
}

// ListActiveChannelMemberIDs implements notification.Repository.
func (repo *NotificationGormRepository) ListActiveChannelMemberIDs(ctx context.Context, channelID string) ([]string, error) {
	var ids []string
	err := repo.db.GetTx(ctx).
		Table("channel_members AS cm").
		Joins("JOIN workspace_members AS wm ON wm.id = cm.workspace_member_id").
		Where("cm.channel_id = ? AND cm.left_at IS NULL AND wm.is_active", channelID).
		Order("cm.joined_at ASC, cm.workspace_member_id ASC").
		Pluck("cm.workspace_member_id", &ids).Error
	if err != nil {
		return nil, database.AsRepositoryError(ctx, err, "failed to list channel members")
	}
	return ids, nil
}

// ListActiveConversationMemberIDs implements notification.Repository.
func (repo *NotificationGormRepository) ListActiveConversationMemberIDs(ctx context.Context, conversationID string) ([]string, error) {
	var ids []string
	err := repo.db.GetTx(ctx).
		Table("conversation_members AS cm").
		Joins("JOIN workspace_members AS wm ON wm.id = cm.workspace_member_id").
		Where("cm.conversation_id = ? AND cm.left_at IS NULL AND wm.is_active", conversationID).
		Order("cm.joined_at ASC, cm.workspace_member_id ASC").
		Pluck("cm.workspace_member_id", &ids).Error
	if err != nil {
		return nil, database.AsRepositoryError(ctx, err, "failed to list conversation members")
	}
	return ids, nil
}

// GetMessageAuthorID implements notification.Repository. An author who is no longer an
// active member is reported as not found.
func (repo *NotificationGormRepository) GetMessageAuthorID(ctx context.Context, messageID string) (string, bool, error) {
	var ids []string
	err := activeAuthorQuery(repo.db.GetTx(ctx), messageID).Pluck("m.sender_id", &ids).Error
	if err != nil {
		return "", false, database.AsRepositoryError(ctx, err, "failed to load message author")
	}
	if len(ids) == 0 {
		return "", false, nil
	}
	return ids[0], true, nil
}

func activeAuthorQuery(tx *gorm.DB, messageID string) *gorm.DB {
	return tx.
		Table("messages AS m").
		Joins("JOIN workspace_members AS wm ON wm.id = m.sender_id AND wm.is_active").
		Where("m.id = ? AND m.deleted_at IS NULL", messageID).
		Limit(1)
}

// ListThreadParticipantIDs implements notification.Repository.
func (repo *NotificationGormRepository) ListThreadParticipantIDs(ctx context.Context, threadID string) ([]string, error) {
	var ids []string
	err := repo.db.GetTx(ctx).Raw(`
		SELECT m.sender_id
		FROM messages AS m
		JOIN workspace_members AS wm ON wm.id = m.sender_id
		WHERE (m.thread_id = ? OR m.parent_message_id = ? OR m.id = ?)
		  AND m.deleted_at IS NULL
		  AND wm.is_active
		GROUP BY m.sender_id
		ORDER BY MIN(m.created_at) ASC
	`, threadID, threadID, threadID).Scan(&ids).Error
	if err != nil {
		return nil, database.AsRepositoryError(ctx, err, "failed to list thread participants")
	}
	return ids, nil
}

// FindActiveMemberIDs implements mention.MemberRepository.
func (repo *NotificationGormRepository) FindActiveMemberIDs(ctx context.Context, workspaceID string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []string
	err := repo.db.GetTx(ctx).
		Table("workspace_members").
		Where("workspace_id = ? AND is_active AND id IN ?", workspaceID, ids).
		Pluck("id", &found).Error
	if err != nil {
		return nil, database.AsRepositoryError(ctx, err, "failed to resolve workspace members")
	}
	return found, nil
}

// CreateBatch implements notification.Repository. Rows that already exist for the same
// (recipient, message) pair are kept as they are, and the stored rows are returned in input
// order, so a retried dispatch sees the notifications of the first run.
func (repo *NotificationGormRepository) CreateBatch(ctx context.Context, notifications []*notification.Notification) ([]*notification.Notification, error) {
	if len(notifications) == 0 {
		return nil, nil
	}

	rows := make([]*dbschema.Notification, len(notifications))
	byMessage := make(map[string][]string)
	for i, n := range notifications {
		rows[i] = dbschema.NewSchemaNotification(n)
		byMessage[n.MessageID] = append(byMessage[n.MessageID], n.RecipientID)
	}

	var stored []*dbschema.Notification
	err := repo.db.Transaction(ctx, func(ctx context.Context) error {
		tx := repo.db.GetTx(ctx)
		if err := ignoreDuplicateNotifications(tx).CreateInBatches(rows, insertBatchSize).Error; err != nil {
			return err
		}
		for messageID, recipients := range byMessage {
			var found []*dbschema.Notification
			if err := storedNotificationsQuery(tx, messageID, recipients).Find(&found).Error; err != nil {
				return err
			}
			stored = append(stored, found...)
		}
		return nil
	})
	if err != nil {
		return nil, database.AsRepositoryError(ctx, err, "failed to insert notifications")
	}

	index := make(map[[2]string]*dbschema.Notification, len(stored))
	for _, row := range stored {
		index[[2]string{row.MessageID, row.RecipientID}] = row
	}
	created := make([]*notification.Notification, 0, len(notifications))
	for _, n := range notifications {
		if row, ok := index[[2]string{n.MessageID, n.RecipientID}]; ok {
			created = append(created, row.EtoD())
		}
	}
	return created, nil
}

func ignoreDuplicateNotifications(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "recipient_id"}, {Name: "message_id"}},
		DoNothing: true,
	})
}

func storedNotificationsQuery(tx *gorm.DB, messageID string, recipientIDs []string) *gorm.DB {
	return tx.
		Model(&dbschema.Notification{}).
		Where("message_id = ? AND recipient_id IN ?", messageID, recipientIDs)
}

// GetMessageEvent implements notification.Repository.
func (repo *NotificationGormRepository) GetMessageEvent(ctx context.Context, messageID string) (*notification.MessageEvent, error) {
	var row dbschema.MessageEventRow
	err := repo.db.GetTx(ctx).
		Table("messages AS m").
		Select("m.*, wm.display_name AS sender_name").
		Joins("LEFT JOIN workspace_members AS wm ON wm.id = m.sender_id").
		Where("m.id = ? AND m.deleted_at IS NULL", messageID).
		Take(&row).Error
	if err != nil {
		return nil, database.AsRepositoryError(ctx, err, "failed to load message")
	}
	return row.ToEvent(), nil
}
