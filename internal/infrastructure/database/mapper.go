package database

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// nullTimestamptz maps the zero time to SQL NULL.
func nullTimestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

// pgtypeTimestamptzToTime returns t.Time when Valid, else zero time.
func pgtypeTimestamptzToTime(t pgtype.Timestamptz) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time
}

// nullInt8 maps a zero id to SQL NULL.
func nullInt8(id uint) pgtype.Int8 {
	if id == 0 {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: int64(id), Valid: true}
}

func pgtypeInt8ToUint(v pgtype.Int8) uint {
	if !v.Valid {
		return 0
	}
	return uint(v.Int64)
}
