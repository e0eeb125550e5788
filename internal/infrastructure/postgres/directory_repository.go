package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-amenity-reservation/internal/domain/directory"
)

// DirectoryRepository は住戸・居住者・利用制限を参照する
type DirectoryRepository struct{ db *sqlx.DB }

func NewDirectoryRepository(db *sqlx.DB) *DirectoryRepository { return &DirectoryRepository{db: db} }

func (r *DirectoryRepository) FindUnit(ctx context.Context, id string) (*directory.Unit, error) {
	query, args, err := psql.Select("id", "number", "active").From("units").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("住戸取得クエリの構築に失敗: %w", err)
	}
	var u directory.Unit
	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&u.ID, &u.Number, &u.Active); err != nil {
		if isNotFound(err) {
			return nil, directory.ErrUnitNotFound
		}
		return nil, fmt.Errorf("住戸取得に失敗: %w", err)
	}
	return &u, nil
}

func (r *DirectoryRepository) FindResident(ctx context.Context, id string) (*directory.Resident, error) {
	query, args, err := psql.Select("id", "unit_id", "name", "active").From("residents").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("居住者取得クエリの構築に失敗: %w", err)
	}
	var res directory.Resident
	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&res.ID, &res.UnitID, &res.Name, &res.Active); err != nil {
		if isNotFound(err) {
			return nil, directory.ErrResidentNotFound
		}
		return nil, fmt.Errorf("居住者取得に失敗: %w", err)
	}
	return &res, nil
}

// HasActiveAccessBlock は現在有効な利用制限があるかを返す
func (r *DirectoryRepository) HasActiveAccessBlock(ctx context.Context, unitID string) (bool, error) {
	query, args, err := psql.Select("1").From("unit_access_blocks").
		Where(sq.Eq{"unit_id": unitID}).
		Where("starts_at <= NOW()").
		Where(sq.Or{sq.Eq{"ends_at": nil}, sq.Expr("ends_at > NOW()")}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("利用制限クエリの構築に失敗: %w", err)
	}
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("利用制限の確認に失敗: %w", err)
	}
	return exists, nil
}

var (
	_ directory.UnitDirectory      = (*DirectoryRepository)(nil)
	_ directory.ResidentDirectory  = (*DirectoryRepository)(nil)
	_ directory.AccessBlockChecker = (*DirectoryRepository)(nil)
)
