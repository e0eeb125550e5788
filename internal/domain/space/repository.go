package space

import (
	"context"

	"github.com/sanosuguru/go-amenity-reservation/internal/domain/timeslot"
)

// Repository は施設リポジトリのインターフェース
// 利用可能時間帯・利用停止期間・ルールは予約処理から見て読み取り中心の設定
type Repository interface {
	// Create は新しい施設を作成する
	Create(ctx context.Context, space *Space) error

	// GetByID はIDから施設を取得する
	GetByID(ctx context.Context, id string) (*Space, error)

	// Update は施設を更新する
	Update(ctx context.Context, space *Space) error

	// ListAvailability は施設の利用可能時間帯を全件取得する
	ListAvailability(ctx context.Context, spaceID string) ([]*Availability, error)

	// AddAvailability は利用可能時間帯を追加する
	AddAvailability(ctx context.Context, a *Availability) error

	// DeleteAvailability は利用可能時間帯を削除する
	DeleteAvailability(ctx context.Context, spaceID, availabilityID string) error

	// ListBlocks は区間と重なる利用停止期間を取得する
	ListBlocks(ctx context.Context, spaceID string, within timeslot.Interval) ([]*Block, error)

	// AddBlock は利用停止期間を追加する
	AddBlock(ctx context.Context, b *Block) error

	// DeleteBlock は利用停止期間を削除する
	DeleteBlock(ctx context.Context, spaceID, blockID string) error

	// ListRules は施設のルールを取得する
	ListRules(ctx context.Context, spaceID string) (Rules, error)

	// UpsertRule はルールを作成または更新する
	UpsertRule(ctx context.Context, r *Rule) error
}
