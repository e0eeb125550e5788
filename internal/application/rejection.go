package application

import (
	"errors"

	"github.com/sanosuguru/go-amenity-reservation/internal/domain/directory"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/space"
)

// RejectionKind は拒否理由の分類
type RejectionKind string

const (
	KindNotFound        RejectionKind = "not_found"
	KindPolicyViolation RejectionKind = "policy_violation"
	KindConflict        RejectionKind = "conflict"
	KindState           RejectionKind = "state"
	KindInvalidInput    RejectionKind = "invalid_input"
)

// Rejection は呼び出し側に返す拒否コード
type Rejection struct {
	Code string
	Kind RejectionKind
}

type rejectionRule struct {
	err       error
	rejection Rejection
}

// 先頭から順に errors.Is で照合する
var rejectionRules = []rejectionRule{
	{reservation.ErrReservationNotFound, Rejection{"RESERVATION_NOT_FOUND", KindNotFound}},
	{space.ErrSpaceNotFound, Rejection{"SPACE_NOT_FOUND", KindNotFound}},
	{space.ErrAvailabilityNotFound, Rejection{"AVAILABILITY_NOT_FOUND", KindNotFound}},
	{space.ErrBlockNotFound, Rejection{"BLOCK_NOT_FOUND", KindNotFound}},
	{directory.ErrUnitNotFound, Rejection{"UNIT_NOT_FOUND", KindNotFound}},
	{directory.ErrResidentNotFound, Rejection{"RESIDENT_NOT_FOUND", KindNotFound}},

	{reservation.ErrSpaceInactive, Rejection{"SPACE_INACTIVE", KindPolicyViolation}},
	{reservation.ErrUnitInactive, Rejection{"UNIT_INACTIVE", KindPolicyViolation}},
	{reservation.ErrResidentInactive, Rejection{"RESIDENT_INACTIVE", KindPolicyViolation}},
	{reservation.ErrUnitAccessBlocked, Rejection{"UNIT_ACCESS_BLOCKED", KindPolicyViolation}},
	{reservation.ErrOutsideAvailability, Rejection{"OUTSIDE_AVAILABILITY", KindPolicyViolation}},
	{reservation.ErrBelowMinimumAdvance, Rejection{"BELOW_MINIMUM_ADVANCE", KindPolicyViolation}},
	{reservation.ErrAboveMaximumAdvance, Rejection{"ABOVE_MAXIMUM_ADVANCE", KindPolicyViolation}},
	{reservation.ErrDurationExceedsMax, Rejection{"DURATION_EXCEEDS_MAX", KindPolicyViolation}},
	{reservation.ErrCapacityExceeded, Rejection{"CAPACITY_EXCEEDED", KindPolicyViolation}},
	{reservation.ErrMonthlyLimitExceeded, Rejection{"MONTHLY_LIMIT_EXCEEDED", KindPolicyViolation}},

	{reservation.ErrOverlappingReservation, Rejection{"OVERLAPPING_RESERVATION", KindConflict}},
	{reservation.ErrSpaceBlocked, Rejection{"SPACE_BLOCKED", KindConflict}},
	{reservation.ErrSpaceBusy, Rejection{"SPACE_BUSY", KindConflict}},

	{reservation.ErrInvalidTransition, Rejection{"INVALID_TRANSITION", KindState}},
	{space.ErrSpaceAlreadyInactive, Rejection{"SPACE_ALREADY_INACTIVE", KindState}},

	{reservation.ErrInvalidTimeRange, Rejection{"INVALID_TIME_RANGE", KindInvalidInput}},
	{reservation.ErrInvalidGuestCount, Rejection{"INVALID_GUEST_COUNT", KindInvalidInput}},
	{reservation.ErrInvalidStatus, Rejection{"INVALID_STATUS", KindInvalidInput}},
	{reservation.ErrSpaceIDRequired, Rejection{"SPACE_ID_REQUIRED", KindInvalidInput}},
	{reservation.ErrUnitIDRequired, Rejection{"UNIT_ID_REQUIRED", KindInvalidInput}},
	{reservation.ErrResidentIDRequired, Rejection{"RESIDENT_ID_REQUIRED", KindInvalidInput}},
	{reservation.ErrTitleRequired, Rejection{"TITLE_REQUIRED", KindInvalidInput}},
	{reservation.ErrActorRequired, Rejection{"ACTOR_REQUIRED", KindInvalidInput}},
	{reservation.ErrReasonRequired, Rejection{"REASON_REQUIRED", KindInvalidInput}},
	{space.ErrSpaceNameRequired, Rejection{"SPACE_NAME_REQUIRED", KindInvalidInput}},
	{space.ErrSpaceIDRequired, Rejection{"SPACE_ID_REQUIRED", KindInvalidInput}},
	{space.ErrInvalidCapacity, Rejection{"INVALID_CAPACITY", KindInvalidInput}},
	{space.ErrInvalidMaxDuration, Rejection{"INVALID_MAX_DURATION", KindInvalidInput}},
	{space.ErrInvalidAdvancePolicy, Rejection{"INVALID_ADVANCE_POLICY", KindInvalidInput}},
	{space.ErrInvalidSlotDuration, Rejection{"INVALID_SLOT_DURATION", KindInvalidInput}},
	{space.ErrInvalidDayOfWeek, Rejection{"INVALID_DAY_OF_WEEK", KindInvalidInput}},
	{space.ErrInvalidWindow, Rejection{"INVALID_WINDOW", KindInvalidInput}},
	{space.ErrInvalidBlockRange, Rejection{"INVALID_BLOCK_RANGE", KindInvalidInput}},
	{space.ErrBlockReasonRequired, Rejection{"BLOCK_REASON_REQUIRED", KindInvalidInput}},
	{space.ErrBlockCreatorRequired, Rejection{"BLOCK_CREATOR_REQUIRED", KindInvalidInput}},
	{space.ErrRuleKeyRequired, Rejection{"RULE_KEY_REQUIRED", KindInvalidInput}},
	{space.ErrInvalidRuleValue, Rejection{"INVALID_RULE_VALUE", KindInvalidInput}},
}

// Classify はエラーを拒否コードに分類する
// ドメインの既知のエラーでなければ ok=false（内部エラー）
func Classify(err error) (Rejection, bool) {
	if err == nil {
		return Rejection{}, false
	}
	for _, r := range rejectionRules {
		if errors.Is(err, r.err) {
			return r.rejection, true
		}
	}
	return Rejection{}, false
}

// rejectionLabel はメトリクス用のラベルを返す
func rejectionLabel(err error) string {
	if r, ok := Classify(err); ok {
		return r.Code
	}
	return "error"
}
