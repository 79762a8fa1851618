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

var _ output.SignupRepository = (*SignupRepository)(nil)

const signupColumns = `id, instance_id, participant_id, role, status, signup_date,
	waitlist_notified_at, cancelled_at, created_at, updated_at`

type SignupRepository struct {
	q querier
}

func NewSignupRepository(q querier) *SignupRepository {
	return &SignupRepository{q: q}
}

func scanSignup(row pgx.Row) (entities.Signup, error) {
	var (
		s                       entities.Signup
		id, instanceID          int64
		role, status            string
		notifiedAt, cancelledAt pgtype.Timestamptz
	)
	err := row.Scan(&id, &instanceID, &s.ParticipantID, &role, &status, &s.SignupDate,
		&notifiedAt, &cancelledAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return entities.Signup{}, err
	}
	s.ID = uint(id)
	s.InstanceID = uint(instanceID)
	s.Role = entities.Role(role)
	s.Status = entities.SignupStatus(status)
	s.WaitlistNotifiedAt = pgtypeTimestamptzToTime(notifiedAt)
	s.CancelledAt = pgtypeTimestamptzToTime(cancelledAt)
	return s, nil
}

func collectSignups(rows pgx.Rows, op string) ([]entities.Signup, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entities.Signup, error) {
		return scanSignup(row)
	})
	if err != nil {
		return nil, classify(err, nil, op)
	}
	return out, nil
}

func statusStrings(statuses []entities.SignupStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// Create inserts a signup. A second row for the same participant and instance
// violates the unique index and comes back as domain.ErrTransient, so the
// retried transaction observes the winner and answers ErrSignupExists.
func (r *SignupRepository) Create(ctx context.Context, signup *entities.Signup) error {
	row := r.q.QueryRow(ctx,
		`INSERT INTO signups (instance_id, participant_id, role, status, signup_date,
		     waitlist_notified_at, cancelled_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()), COALESCE($9, now()))
		 RETURNING id, created_at, updated_at`,
		int64(signup.InstanceID), signup.ParticipantID, string(signup.Role), string(signup.Status), signup.SignupDate,
		nullTimestamptz(signup.WaitlistNotifiedAt), nullTimestamptz(signup.CancelledAt),
		nullTimestamptz(signup.CreatedAt), nullTimestamptz(signup.UpdatedAt),
	)
	var id int64
	if err := row.Scan(&id, &signup.CreatedAt, &signup.UpdatedAt); err != nil {
		return classify(err, nil, "create signup")
	}
	signup.ID = uint(id)
	return nil
}

func (r *SignupRepository) FindByID(ctx context.Context, id uint) (*entities.Signup, error) {
	s, err := scanSignup(r.q.QueryRow(ctx, `SELECT `+signupColumns+` FROM signups WHERE id = $1`, int64(id)))
	if err != nil {
		return nil, classify(err, domain.ErrSignupNotFound, "get signup by id")
	}
	return &s, nil
}

func (r *SignupRepository) FindByInstanceAndParticipant(ctx context.Context, instanceID uint, participantID string) (*entities.Signup, error) {
	s, err := scanSignup(r.q.QueryRow(ctx,
		`SELECT `+signupColumns+` FROM signups WHERE instance_id = $1 AND participant_id = $2`,
		int64(instanceID), participantID))
	if err != nil {
		return nil, classify(err, domain.ErrSignupNotFound, "get signup by participant")
	}
	return &s, nil
}

func (r *SignupRepository) FindByInstance(ctx context.Context, instanceID uint) ([]entities.Signup, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+signupColumns+` FROM signups WHERE instance_id = $1 ORDER BY signup_date, id`,
		int64(instanceID))
	if err != nil {
		return nil, classify(err, nil, "find signups by instance")
	}
	return collectSignups(rows, "scan signups")
}

func (r *SignupRepository) FindByInstanceAndStatus(ctx context.Context, instanceID uint, status entities.SignupStatus) ([]entities.Signup, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+signupColumns+` FROM signups
		 WHERE instance_id = $1 AND status = $2
		 ORDER BY signup_date, id`,
		int64(instanceID), string(status))
	if err != nil {
		return nil, classify(err, nil, "find signups by status")
	}
	return collectSignups(rows, "scan signups")
}

func (r *SignupRepository) FindWaitlisted(ctx context.Context, instanceID uint, role entities.Role, limit int) ([]entities.Signup, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx,
		`SELECT `+signupColumns+` FROM signups
		 WHERE instance_id = $1 AND role = $2 AND status = 'WAITLIST'
		 ORDER BY signup_date, id
		 LIMIT $3`,
		int64(instanceID), string(role), limit)
	if err != nil {
		return nil, classify(err, nil, "find waitlisted")
	}
	return collectSignups(rows, "scan waitlisted")
}

func (r *SignupRepository) FindExpiredOffers(ctx context.Context, cutoff time.Time, limit int) ([]entities.Signup, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+signupColumns+` FROM signups
		 WHERE status = 'WAITLIST_PENDING' AND waitlist_notified_at < $1
		 ORDER BY waitlist_notified_at, id
		 LIMIT $2`,
		cutoff, limit)
	if err != nil {
		return nil, classify(err, nil, "find expired offers")
	}
	return collectSignups(rows, "scan expired offers")
}

func (r *SignupRepository) CountByInstanceRoleStatus(ctx context.Context, instanceID uint, role entities.Role, statuses ...entities.SignupStatus) (int, error) {
	var n int64
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM signups WHERE instance_id = $1 AND role = $2 AND status = ANY($3)`,
		int64(instanceID), string(role), statusStrings(statuses),
	).Scan(&n)
	if err != nil {
		return 0, classify(err, nil, "count signups")
	}
	return int(n), nil
}

func (r *SignupRepository) Update(ctx context.Context, signup *entities.Signup) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE signups
		 SET role = $2, status = $3, signup_date = $4, waitlist_notified_at = $5, cancelled_at = $6,
		     updated_at = COALESCE($7, now())
		 WHERE id = $1`,
		int64(signup.ID), string(signup.Role), string(signup.Status), signup.SignupDate,
		nullTimestamptz(signup.WaitlistNotifiedAt), nullTimestamptz(signup.CancelledAt), nullTimestamptz(signup.UpdatedAt),
	)
	if err != nil {
		return classify(err, nil, "update signup")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSignupNotFound
	}
	return nil
}

func (r *SignupRepository) Delete(ctx context.Context, id uint) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM signups WHERE id = $1`, int64(id))
	if err != nil {
		return classify(err, nil, "delete signup")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSignupNotFound
	}
	return nil
}
