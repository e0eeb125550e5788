package reservation

import (
	"context"

	"github.com/sanosuguru/go-amenity-reservation/internal/domain/timeslot"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/transaction"
)

// ConflictIndex は施設単位の予約重複判定を提供する
// FindOverlapping は同じトランザクションで LockSpace を取得した後に呼ぶこと
// ロックを保持している間、同じ施設への他の受付・承認は待たされる
type ConflictIndex interface {
	// LockSpace は施設単位の排他ロックをトランザクション終了まで取得する
	// 取得できない場合は ErrSpaceBusy を返す
	LockSpace(ctx context.Context, tx transaction.Tx, spaceID string) error

	// FindOverlapping は区間と重なる枠占有中（pending_approval, confirmed, in_progress）の予約を返す
	// excludeID が空でなければその予約を除外する
	FindOverlapping(ctx context.Context, tx transaction.Tx, spaceID string, within timeslot.Interval, excludeID string) ([]*Reservation, error)
}

// ListFilter は住戸別の予約一覧の絞り込み条件
type ListFilter struct {
	UnitID   string
	Statuses []Status
	Within   *timeslot.Interval
	Limit    int
	Offset   int
}

// Repository は予約リポジトリのインターフェース
type Repository interface {
	ConflictIndex

	// Create は新しい予約を作成する（トランザクション必須）
	Create(ctx context.Context, tx transaction.Tx, reservation *Reservation) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Reservation, error)

	// GetByIDForUpdate はIDから予約を行ロック付きで取得する（トランザクション必須）
	GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Reservation, error)

	// Update は予約を更新する（トランザクション必須）
	Update(ctx context.Context, tx transaction.Tx, reservation *Reservation) error

	// List は条件に合う予約を開始時刻順に取得する
	List(ctx context.Context, filter ListFilter) ([]*Reservation, error)

	// CountByUnit は施設における住戸の予約のうち、開始時刻が区間内かつ指定状態のものを数える
	CountByUnit(ctx context.Context, tx transaction.Tx, spaceID, unitID string, within timeslot.Interval, statuses []Status) (int, error)

	// ListBlockingInRange は区間と重なる枠占有中の予約を取得する（ロック不要の読み取り）
	ListBlockingInRange(ctx context.Context, spaceID string, within timeslot.Interval) ([]*Reservation, error)
}
