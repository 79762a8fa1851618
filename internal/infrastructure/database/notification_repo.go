package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"signupd/internal/domain"
	"signupd/internal/domain/entities"
	"signupd/internal/ports/output"
)

var _ output.NotificationRepository = (*NotificationRepository)(nil)

const notificationColumns = `id, message_id, participant_id, type, instance_id, event_id, title, body, read_at, created_at`

type NotificationRepository struct {
	q querier
}

func NewNotificationRepository(q querier) *NotificationRepository {
	return &NotificationRepository{q: q}
}

func scanNotification(row pgx.Row) (entities.Notification, error) {
	var (
		n                   entities.Notification
		id                  int64
		typ                 string
		instanceID, eventID pgtype.Int8
		readAt              pgtype.Timestamptz
	)
	err := row.Scan(&id, &n.MessageID, &n.ParticipantID, &typ, &instanceID, &eventID, &n.Title, &n.Body, &readAt, &n.CreatedAt)
	if err != nil {
		return entities.Notification{}, err
	}
	n.ID = uint(id)
	n.Type = entities.MessageType(typ)
	n.InstanceID = pgtypeInt8ToUint(instanceID)
	n.EventID = pgtypeInt8ToUint(eventID)
	n.ReadAt = pgtypeTimestamptzToTime(readAt)
	return n, nil
}

// Create stores a notification once per message and participant. Redelivery
// of the same message returns the existing row's id.
func (r *NotificationRepository) Create(ctx context.Context, n *entities.Notification) error {
	row := r.q.QueryRow(ctx,
		`INSERT INTO notifications (message_id, participant_id, type, instance_id, event_id, title, body, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()))
		 ON CONFLICT (message_id, participant_id) DO UPDATE SET message_id = EXCLUDED.message_id
		 RETURNING id, created_at`,
		n.MessageID, n.ParticipantID, string(n.Type), nullInt8(n.InstanceID), nullInt8(n.EventID),
		n.Title, n.Body, nullTimestamptz(n.CreatedAt),
	)
	var id int64
	if err := row.Scan(&id, &n.CreatedAt); err != nil {
		return classify(err, nil, "create notification")
	}
	n.ID = uint(id)
	return nil
}

// FindByParticipant lists a participant's notifications, newest first.
func (r *NotificationRepository) FindByParticipant(ctx context.Context, participantID string, unreadOnly bool) ([]entities.Notification, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE participant_id = $1 AND (NOT $2::boolean OR read_at IS NULL)
		 ORDER BY created_at DESC, id DESC`,
		participantID, unreadOnly)
	if err != nil {
		return nil, classify(err, nil, "find notifications")
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entities.Notification, error) {
		return scanNotification(row)
	})
	if err != nil {
		return nil, classify(err, nil, "scan notifications")
	}
	return out, nil
}

// MarkRead sets read_at once; marking an already read notification is a no-op.
func (r *NotificationRepository) MarkRead(ctx context.Context, id uint, participantID string, at time.Time) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE notifications SET read_at = COALESCE(read_at, $3) WHERE id = $1 AND participant_id = $2`,
		int64(id), participantID, at)
	if err != nil {
		return classify(err, nil, "mark notification read")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}
