package services

import (
	"errors"
	"strings"

	mysql "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// Sentinel errors returned by the allocation engine. Controllers match them
// with errors.Is; callers may see them wrapped with context.
var (
	ErrDuplicateBooking        = errors.New("duplicate_booking")
	ErrCapacityExhausted       = errors.New("capacity_exhausted")
	ErrIncompatibleGender      = errors.New("incompatible_gender")
	ErrNotFound                = errors.New("not_found")
	ErrNoPoolConfigured        = errors.New("no_pool_configured")
	ErrRefreshInProgress       = errors.New("refresh_in_progress")
	ErrInvalidRequest          = errors.New("invalid_request")
	ErrInvalidTransition       = errors.New("invalid_transition")
	ErrParticipantNotConfirmed = errors.New("participant_not_confirmed")
	ErrPoolInUse               = errors.New("pool_in_use")
)

const mysqlDuplicateEntry = 1062

// isDuplicateKeyError detects a unique index violation from MySQL or SQLite.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}

// rejectionReason is the sentinel's code, used as a metric label.
func rejectionReason(err error) string {
	for _, s := range []error{
		ErrDuplicateBooking,
		ErrCapacityExhausted,
		ErrIncompatibleGender,
		ErrNotFound,
		ErrNoPoolConfigured,
		ErrRefreshInProgress,
		ErrInvalidRequest,
		ErrInvalidTransition,
		ErrParticipantNotConfirmed,
		ErrPoolInUse,
	} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal"
}
