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

var _ output.EventRepository = (*EventRepository)(nil)

const eventColumns = `id, creator_id, title, description, status, scheduled_publish_date, created_at, updated_at`

type EventRepository struct {
	q querier
}

func NewEventRepository(q querier) *EventRepository {
	return &EventRepository{q: q}
}

func scanEvent(row pgx.Row) (entities.Event, error) {
	var (
		e           entities.Event
		id          int64
		status      string
		scheduledAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &e.CreatorID, &e.Title, &e.Description, &status, &scheduledAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return entities.Event{}, err
	}
	e.ID = uint(id)
	e.Status = entities.EventStatus(status)
	e.ScheduledPublishDate = pgtypeTimestamptzToTime(scheduledAt)
	return e, nil
}

func (r *EventRepository) Create(ctx context.Context, event *entities.Event) error {
	row := r.q.QueryRow(ctx,
		`INSERT INTO events (creator_id, title, description, status, scheduled_publish_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()), COALESCE($7, now()))
		 RETURNING id, created_at, updated_at`,
		event.CreatorID, event.Title, event.Description, string(event.Status),
		nullTimestamptz(event.ScheduledPublishDate), nullTimestamptz(event.CreatedAt), nullTimestamptz(event.UpdatedAt),
	)
	var id int64
	if err := row.Scan(&id, &event.CreatedAt, &event.UpdatedAt); err != nil {
		return classify(err, nil, "create event")
	}
	event.ID = uint(id)
	return nil
}

func (r *EventRepository) FindByID(ctx context.Context, id uint) (*entities.Event, error) {
	e, err := scanEvent(r.q.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, int64(id)))
	if err != nil {
		return nil, classify(err, domain.ErrEventNotFound, "get event by id")
	}
	return &e, nil
}

// FindDueForPublish returns scheduled events whose publication date is not
// after now, oldest first.
func (r *EventRepository) FindDueForPublish(ctx context.Context, now time.Time, limit int) ([]entities.Event, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE status = 'SCHEDULED' AND scheduled_publish_date <= $1
		 ORDER BY scheduled_publish_date, id
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, classify(err, nil, "find events due for publish")
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entities.Event, error) {
		return scanEvent(row)
	})
	if err != nil {
		return nil, classify(err, nil, "scan events")
	}
	return out, nil
}

func (r *EventRepository) Update(ctx context.Context, event *entities.Event) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE events
		 SET title = $2, description = $3, status = $4, scheduled_publish_date = $5, updated_at = COALESCE($6, now())
		 WHERE id = $1`,
		int64(event.ID), event.Title, event.Description, string(event.Status),
		nullTimestamptz(event.ScheduledPublishDate), nullTimestamptz(event.UpdatedAt),
	)
	if err != nil {
		return classify(err, nil, "update event")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}
