// Package directory は予約エンジンが参照する外部コラボレーター（住戸・居住者・管理規約）の
// 最小限のインターフェースを定義する
package directory

import (
	"context"
	"errors"
)

var (
	ErrUnitNotFound     = errors.New("住戸が見つかりません")
	ErrResidentNotFound = errors.New("居住者が見つかりません")
)

// Unit は住戸を表す
type Unit struct {
	ID     string
	Number string
	Active bool
}

func (u *Unit) IsActive() bool { return u.Active }

// Resident は居住者を表す
type Resident struct {
	ID     string
	UnitID string
	Name   string
	Active bool
}

func (r *Resident) IsActive() bool { return r.Active }

// UnitDirectory は住戸を参照する
// 見つからない場合は ErrUnitNotFound を返す
type UnitDirectory interface {
	FindUnit(ctx context.Context, id string) (*Unit, error)
}

// ResidentDirectory は居住者を参照する
// 見つからない場合は ErrResidentNotFound を返す
type ResidentDirectory interface {
	FindResident(ctx context.Context, id string) (*Resident, error)
}

// AccessBlockChecker は管理規約違反等による住戸の利用制限を確認する
type AccessBlockChecker interface {
	HasActiveAccessBlock(ctx context.Context, unitID string) (bool, error)
}
