package reservation

import (
	"fmt"
	"sort"
	"strings"
)

// Status は予約の状態を表す
type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusConfirmed       Status = "confirmed"
	StatusRejected        Status = "rejected"
	StatusCanceled        Status = "canceled"
	StatusInProgress      Status = "in_progress"
	StatusCompleted       Status = "completed"
	StatusNoShow          Status = "no_show"
)

// Action は状態遷移を引き起こす操作
type Action string

const (
	ActionApprove    Action = "approve"
	ActionReject     Action = "reject"
	ActionCancel     Action = "cancel"
	ActionCheckIn    Action = "check_in"
	ActionComplete   Action = "complete"
	ActionMarkNoShow Action = "mark_no_show"
)

// transitions は (状態, 操作) → 遷移先 の表。表に無い組み合わせはすべて不正な遷移
var transitions = map[Status]map[Action]Status{
	StatusPendingApproval: {
		ActionApprove: StatusConfirmed,
		ActionReject:  StatusRejected,
		ActionCancel:  StatusCanceled,
	},
	StatusConfirmed: {
		ActionCancel:  StatusCanceled,
		ActionCheckIn: StatusInProgress,
	},
	StatusInProgress: {
		ActionComplete:   StatusCompleted,
		ActionMarkNoShow: StatusNoShow,
	},
	StatusRejected:  {},
	StatusCanceled:  {},
	StatusCompleted: {},
	StatusNoShow:    {},
}

// actionTargets は各操作が本来目指す遷移先（エラー報告用）
var actionTargets = map[Action]Status{
	ActionApprove:    StatusConfirmed,
	ActionReject:     StatusRejected,
	ActionCancel:     StatusCanceled,
	ActionCheckIn:    StatusInProgress,
	ActionComplete:   StatusCompleted,
	ActionMarkNoShow: StatusNoShow,
}

// BlockingStatuses は枠を占有する状態（重複判定・空き枠判定の対象）
var BlockingStatuses = []Status{StatusPendingApproval, StatusConfirmed, StatusInProgress}

// QuotaStatuses は月間予約上限のカウント対象となる状態
var QuotaStatuses = []Status{StatusPendingApproval, StatusConfirmed, StatusInProgress, StatusCompleted}

// NextStatus は遷移表を引いて遷移先を返す
func NextStatus(from Status, action Action) (Status, error) {
	next, ok := transitions[from][action]
	if !ok {
		return "", &TransitionError{
			Current:   from,
			Action:    action,
			Attempted: actionTargets[action],
			Allowed:   AllowedTargets(from),
		}
	}
	return next, nil
}

// AllowedTargets は from から遷移可能な状態を名前順で返す
func AllowedTargets(from Status) []Status {
	targets := make([]Status, 0, len(transitions[from]))
	for _, s := range transitions[from] {
		targets = append(targets, s)
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
	return targets
}

// IsValid は既知の状態かを返す
func (s Status) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal は以降の遷移が無い状態かを返す
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// BlocksSlot は枠を占有する状態かを返す
func (s Status) BlocksSlot() bool {
	return containsStatus(BlockingStatuses, s)
}

// CountsTowardQuota は月間上限のカウント対象かを返す
func (s Status) CountsTowardQuota() bool {
	return containsStatus(QuotaStatuses, s)
}

func (s Status) String() string { return string(s) }

// ParseStatus は文字列を Status に変換する
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidStatus, v)
	}
	return s, nil
}

func containsStatus(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// TransitionError は遷移表に無い操作を試みたことを表す
type TransitionError struct {
	Current   Status
	Action    Action
	Attempted Status
	Allowed   []Status
}

func (e *TransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	return fmt.Sprintf("%s: %s から %s への遷移はできません（操作: %s, 遷移可能: [%s]）",
		ErrInvalidTransition.Error(), e.Current, e.Attempted, e.Action, strings.Join(allowed, ", "))
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}
