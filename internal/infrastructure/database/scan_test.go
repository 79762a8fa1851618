package database

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signupd/internal/domain/entities"
)

// fakeRow copies its values into Scan's destinations the way pgx does for
// exact type matches.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(r.values))
	}
	for i, v := range r.values {
		target := reflect.ValueOf(dest[i]).Elem()
		value := reflect.ValueOf(v)
		if !value.Type().AssignableTo(target.Type()) {
			return fmt.Errorf("scan column %d: cannot assign %T to %s", i, v, target.Type())
		}
		target.Set(value)
	}
	return nil
}

var (
	created  = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	notified = created.Add(time.Hour)
)

func TestScanSignup(t *testing.T) {
	tests := []struct {
		name       string
		notifiedAt pgtype.Timestamptz
		cancelled  pgtype.Timestamptz
		status     entities.SignupStatus
	}{
		{"null timestamps", pgtype.Timestamptz{}, pgtype.Timestamptz{}, entities.StatusWaitlist},
		{"pending offer", nullTimestamptz(notified), pgtype.Timestamptz{}, entities.StatusWaitlistPending},
		{"cancelled", pgtype.Timestamptz{}, nullTimestamptz(notified), entities.StatusCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := fakeRow{values: []any{
				int64(42), int64(7), "s1", string(entities.RoleParent), string(tt.status), created,
				tt.notifiedAt, tt.cancelled, created, notified,
			}}
			s, err := scanSignup(row)
			require.NoError(t, err)
			assert.Equal(t, entities.Signup{
				ID:                 42,
				InstanceID:         7,
				ParticipantID:      "s1",
				Role:               entities.RoleParent,
				Status:             tt.status,
				SignupDate:         created,
				WaitlistNotifiedAt: pgtypeTimestamptzToTime(tt.notifiedAt),
				CancelledAt:        pgtypeTimestamptzToTime(tt.cancelled),
				CreatedAt:          created,
				UpdatedAt:          notified,
			}, s)
			assert.Equal(t, tt.notifiedAt.Valid, !s.WaitlistNotifiedAt.IsZero())
			assert.Equal(t, tt.cancelled.Valid, !s.CancelledAt.IsZero())
		})
	}
}

func TestScanInstance(t *testing.T) {
	tests := []struct {
		name  string
		start pgtype.Timestamptz
		want  time.Time
	}{
		{"unscheduled", pgtype.Timestamptz{}, time.Time{}},
		{"scheduled", nullTimestamptz(notified), notified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := fakeRow{values: []any{
				int64(3), int64(1), tt.start, tt.start, int32(20), int32(5),
				true, false, string(entities.InstanceActive), pgtype.Timestamptz{}, created, created,
			}}
			i, err := scanInstance(row)
			require.NoError(t, err)
			assert.Equal(t, uint(3), i.ID)
			assert.Equal(t, uint(1), i.EventID)
			assert.Equal(t, tt.want, i.StartDate)
			assert.Equal(t, tt.want, i.EndDate)
			assert.Equal(t, 20, i.Capacity(entities.RoleStudent))
			assert.Equal(t, 5, i.Capacity(entities.RoleParent))
			assert.True(t, i.Enabled)
			assert.False(t, i.WaitlistEnabled)
			assert.Equal(t, entities.InstanceActive, i.Status)
			assert.True(t, i.CancelledAt.IsZero())
		})
	}
}

func TestScanEvent(t *testing.T) {
	row := fakeRow{values: []any{
		int64(9), "admin", "Open day", "", string(entities.EventScheduled), nullTimestamptz(notified), created, created,
	}}
	e, err := scanEvent(row)
	require.NoError(t, err)
	assert.Equal(t, uint(9), e.ID)
	assert.Equal(t, entities.EventScheduled, e.Status)
	assert.Equal(t, notified, e.ScheduledPublishDate)
	assert.True(t, e.PublishDue(notified))
}

func TestScanNotification(t *testing.T) {
	tests := []struct {
		name     string
		instance pgtype.Int8
		readAt   pgtype.Timestamptz
	}{
		{"unread event notice", pgtype.Int8{}, pgtype.Timestamptz{}},
		{"read instance notice", nullInt8(7), nullTimestamptz(notified)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := fakeRow{values: []any{
				int64(5), "m1", "s1", string(entities.MsgOfferIssued), tt.instance, nullInt8(2),
				"Spot available", "body", tt.readAt, created,
			}}
			n, err := scanNotification(row)
			require.NoError(t, err)
			assert.Equal(t, uint(5), n.ID)
			assert.Equal(t, entities.MsgOfferIssued, n.Type)
			assert.Equal(t, pgtypeInt8ToUint(tt.instance), n.InstanceID)
			assert.Equal(t, uint(2), n.EventID)
			assert.Equal(t, tt.readAt.Valid, n.IsRead())
		})
	}
}

func TestScanErrors(t *testing.T) {
	boom := errors.New("conn closed")
	scanners := map[string]func(fakeRow) error{
		"signup":       func(r fakeRow) error { _, err := scanSignup(r); return err },
		"instance":     func(r fakeRow) error { _, err := scanInstance(r); return err },
		"event":        func(r fakeRow) error { _, err := scanEvent(r); return err },
		"notification": func(r fakeRow) error { _, err := scanNotification(r); return err },
	}
	for name, scan := range scanners {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, scan(fakeRow{err: boom}), boom)
			assert.Error(t, scan(fakeRow{values: []any{int64(1)}}), "column count mismatch")
		})
	}
}
