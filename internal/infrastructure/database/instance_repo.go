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

var _ output.InstanceRepository = (*InstanceRepository)(nil)

const instanceColumns = `id, event_id, start_date, end_date, student_capacity, parent_capacity,
	enabled, waitlist_enabled, status, cancelled_at, created_at, updated_at`

type InstanceRepository struct {
	q querier
}

func NewInstanceRepository(q querier) *InstanceRepository {
	return &InstanceRepository{q: q}
}

func scanInstance(row pgx.Row) (entities.Instance, error) {
	var (
		i                       entities.Instance
		id, eventID             int64
		studentCap, parentCap   int32
		status                  string
		start, end, cancelledAt pgtype.Timestamptz
	)
	err := row.Scan(&id, &eventID, &start, &end, &studentCap, &parentCap,
		&i.Enabled, &i.WaitlistEnabled, &status, &cancelledAt, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return entities.Instance{}, err
	}
	i.ID = uint(id)
	i.EventID = uint(eventID)
	i.StartDate = pgtypeTimestamptzToTime(start)
	i.EndDate = pgtypeTimestamptzToTime(end)
	i.StudentCapacity = int(studentCap)
	i.ParentCapacity = int(parentCap)
	i.Status = entities.InstanceStatus(status)
	i.CancelledAt = pgtypeTimestamptzToTime(cancelledAt)
	return i, nil
}

func (r *InstanceRepository) Create(ctx context.Context, instance *entities.Instance) error {
	row := r.q.QueryRow(ctx,
		`INSERT INTO event_instances (event_id, start_date, end_date, student_capacity, parent_capacity,
		     enabled, waitlist_enabled, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, COALESCE($9, now()), COALESCE($10, now()))
		 RETURNING id, created_at, updated_at`,
		int64(instance.EventID), nullTimestamptz(instance.StartDate), nullTimestamptz(instance.EndDate),
		int32(instance.StudentCapacity), int32(instance.ParentCapacity),
		instance.Enabled, instance.WaitlistEnabled, string(instance.Status),
		nullTimestamptz(instance.CreatedAt), nullTimestamptz(instance.UpdatedAt),
	)
	var id int64
	if err := row.Scan(&id, &instance.CreatedAt, &instance.UpdatedAt); err != nil {
		return classify(err, nil, "create instance")
	}
	instance.ID = uint(id)
	return nil
}

func (r *InstanceRepository) FindByID(ctx context.Context, id uint) (*entities.Instance, error) {
	i, err := scanInstance(r.q.QueryRow(ctx, `SELECT `+instanceColumns+` FROM event_instances WHERE id = $1`, int64(id)))
	if err != nil {
		return nil, classify(err, domain.ErrInstanceNotFound, "get instance by id")
	}
	return &i, nil
}

// FindByIDForUpdate takes the row lock that serialises every capacity decision
// on the instance. It must run inside a transaction.
func (r *InstanceRepository) FindByIDForUpdate(ctx context.Context, id uint) (*entities.Instance, error) {
	i, err := scanInstance(r.q.QueryRow(ctx,
		`SELECT `+instanceColumns+` FROM event_instances WHERE id = $1 FOR UPDATE`, int64(id)))
	if err != nil {
		return nil, classify(err, domain.ErrInstanceNotFound, "lock instance")
	}
	return &i, nil
}

func (r *InstanceRepository) FindStartedActive(ctx context.Context, now time.Time, limit int) ([]entities.Instance, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+instanceColumns+` FROM event_instances
		 WHERE status = 'ACTIVE' AND enabled AND start_date IS NOT NULL AND start_date <= $1
		 ORDER BY start_date, id
		 LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, classify(err, nil, "find started instances")
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entities.Instance, error) {
		return scanInstance(row)
	})
	if err != nil {
		return nil, classify(err, nil, "scan instances")
	}
	return out, nil
}

func (r *InstanceRepository) Update(ctx context.Context, instance *entities.Instance) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE event_instances
		 SET start_date = $2, end_date = $3, student_capacity = $4, parent_capacity = $5,
		     enabled = $6, waitlist_enabled = $7, status = $8, cancelled_at = $9,
		     updated_at = COALESCE($10, now())
		 WHERE id = $1`,
		int64(instance.ID), nullTimestamptz(instance.StartDate), nullTimestamptz(instance.EndDate),
		int32(instance.StudentCapacity), int32(instance.ParentCapacity),
		instance.Enabled, instance.WaitlistEnabled, string(instance.Status),
		nullTimestamptz(instance.CancelledAt), nullTimestamptz(instance.UpdatedAt),
	)
	if err != nil {
		return classify(err, nil, "update instance")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInstanceNotFound
	}
	return nil
}
