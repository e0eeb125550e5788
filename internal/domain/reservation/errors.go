package reservation

import "errors"

// Reservation ドメインのエラー定義
var (
	ErrReservationNotFound = errors.New("予約が見つかりません")
	ErrInvalidTransition   = errors.New("予約の状態遷移が不正です")
	ErrInvalidStatus       = errors.New("予約の状態が不正です")

	ErrSpaceIDRequired    = errors.New("施設IDは必須です")
	ErrUnitIDRequired     = errors.New("住戸IDは必須です")
	ErrResidentIDRequired = errors.New("居住者IDは必須です")
	ErrTitleRequired      = errors.New("予約タイトルは必須です")
	ErrInvalidTimeRange   = errors.New("終了時刻は開始時刻より後である必要があります")
	ErrInvalidGuestCount  = errors.New("利用人数は1以上である必要があります")
	ErrActorRequired      = errors.New("操作者IDは必須です")
	ErrReasonRequired     = errors.New("理由は必須です")
)

// 予約受付（アドミッション）の拒否理由
var (
	ErrSpaceInactive          = errors.New("施設は現在予約を受け付けていません")
	ErrUnitInactive           = errors.New("住戸が無効です")
	ErrResidentInactive       = errors.New("居住者が無効です")
	ErrUnitAccessBlocked      = errors.New("住戸は施設の利用を制限されています")
	ErrOutsideAvailability    = errors.New("予約時間が施設の利用可能時間外です")
	ErrBelowMinimumAdvance    = errors.New("予約の受付期限を過ぎています")
	ErrAboveMaximumAdvance    = errors.New("予約受付期間より先の日時は予約できません")
	ErrDurationExceedsMax     = errors.New("最大利用時間を超えています")
	ErrCapacityExceeded       = errors.New("利用人数が施設の定員を超えています")
	ErrMonthlyLimitExceeded   = errors.New("住戸の月間予約上限に達しています")
	ErrOverlappingReservation = errors.New("指定の時間帯は既に予約されています")
	ErrSpaceBlocked           = errors.New("指定の時間帯は施設が利用停止中です")
	ErrSpaceBusy              = errors.New("施設が他の予約処理中です")
)
