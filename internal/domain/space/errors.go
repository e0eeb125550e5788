package space

import "errors"

// Space ドメインのエラー定義
var (
	ErrSpaceNotFound        = errors.New("施設が見つかりません")
	ErrSpaceNameRequired    = errors.New("施設名は必須です")
	ErrSpaceIDRequired      = errors.New("施設IDは必須です")
	ErrInvalidCapacity      = errors.New("定員は1以上である必要があります")
	ErrInvalidMaxDuration   = errors.New("最大利用時間は1時間以上である必要があります")
	ErrInvalidAdvancePolicy = errors.New("予約受付期間の設定は0以上である必要があります")
	ErrInvalidSlotDuration  = errors.New("予約枠の長さは0以上である必要があります")
	ErrSpaceAlreadyInactive = errors.New("施設は既に無効化されています")

	ErrAvailabilityNotFound = errors.New("利用可能時間帯が見つかりません")
	ErrInvalidDayOfWeek     = errors.New("曜日は0〜6である必要があります")
	ErrInvalidWindow        = errors.New("利用可能時間帯の終了は開始より後である必要があります")

	ErrBlockNotFound        = errors.New("利用停止期間が見つかりません")
	ErrInvalidBlockRange    = errors.New("利用停止期間の終了は開始より後である必要があります")
	ErrBlockReasonRequired  = errors.New("利用停止理由は必須です")
	ErrBlockCreatorRequired = errors.New("利用停止の登録者は必須です")

	ErrRuleKeyRequired  = errors.New("ルールキーは必須です")
	ErrInvalidRuleValue = errors.New("ルールの値が不正です")
)
