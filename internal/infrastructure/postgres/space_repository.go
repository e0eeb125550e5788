package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-amenity-reservation/internal/domain/space"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/timeslot"
)

var spaceColumns = []string{
	"id", "name", "capacity", "requires_approval", "max_duration_hours", "max_advance_days",
	"min_advance_hours", "cancellation_deadline_hours", "slot_duration_minutes", "status",
	"created_at", "updated_at",
}

type spaceRow struct {
	ID                        string    `db:"id"`
	Name                      string    `db:"name"`
	Capacity                  int       `db:"capacity"`
	RequiresApproval          bool      `db:"requires_approval"`
	MaxDurationHours          *int      `db:"max_duration_hours"`
	MaxAdvanceDays            int       `db:"max_advance_days"`
	MinAdvanceHours           int       `db:"min_advance_hours"`
	CancellationDeadlineHours int       `db:"cancellation_deadline_hours"`
	SlotDurationMinutes       int       `db:"slot_duration_minutes"`
	Status                    string    `db:"status"`
	CreatedAt                 time.Time `db:"created_at"`
	UpdatedAt                 time.Time `db:"updated_at"`
}

func (r *spaceRow) toEntity() *space.Space {
	return &space.Space{
		ID: r.ID, Name: r.Name, Capacity: r.Capacity, RequiresApproval: r.RequiresApproval,
		MaxDurationHours: r.MaxDurationHours, MaxAdvanceDays: r.MaxAdvanceDays,
		MinAdvanceHours: r.MinAdvanceHours, CancellationDeadlineHours: r.CancellationDeadlineHours,
		SlotDurationMinutes: r.SlotDurationMinutes, Status: space.Status(r.Status),
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

type availabilityRow struct {
	ID          string    `db:"id"`
	SpaceID     string    `db:"space_id"`
	DayOfWeek   int       `db:"day_of_week"`
	StartMinute int       `db:"start_minute"`
	EndMinute   int       `db:"end_minute"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r *availabilityRow) toEntity() *space.Availability {
	return &space.Availability{
		ID: r.ID, SpaceID: r.SpaceID, DayOfWeek: time.Weekday(r.DayOfWeek),
		StartTime: timeslot.ClockTime(r.StartMinute), EndTime: timeslot.ClockTime(r.EndMinute),
		CreatedAt: r.CreatedAt,
	}
}

type blockRow struct {
	ID        string    `db:"id"`
	SpaceID   string    `db:"space_id"`
	StartAt   time.Time `db:"start_at"`
	EndAt     time.Time `db:"end_at"`
	Reason    string    `db:"reason"`
	CreatedBy string    `db:"created_by"`
	Notes     *string   `db:"notes"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *blockRow) toEntity() *space.Block {
	return &space.Block{
		ID: r.ID, SpaceID: r.SpaceID, StartAt: r.StartAt, EndAt: r.EndAt,
		Reason: r.Reason, CreatedBy: r.CreatedBy, Notes: r.Notes, CreatedAt: r.CreatedAt,
	}
}

type ruleRow struct {
	SpaceID   string    `db:"space_id"`
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

// SpaceRepository は施設リポジトリのPostgreSQL実装
type SpaceRepository struct{ db *sqlx.DB }

func NewSpaceRepository(db *sqlx.DB) *SpaceRepository { return &SpaceRepository{db: db} }

func (r *SpaceRepository) Create(ctx context.Context, s *space.Space) error {
	query, args, err := psql.Insert("spaces").
		Columns("name", "capacity", "requires_approval", "max_duration_hours", "max_advance_days",
			"min_advance_hours", "cancellation_deadline_hours", "slot_duration_minutes", "status",
			"created_at", "updated_at").
		Values(s.Name, s.Capacity, s.RequiresApproval, s.MaxDurationHours, s.MaxAdvanceDays,
			s.MinAdvanceHours, s.CancellationDeadlineHours, s.SlotDurationMinutes, string(s.Status),
			s.CreatedAt, s.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("施設作成クエリの構築に失敗: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&s.ID); err != nil {
		return fmt.Errorf("施設作成に失敗: %w", err)
	}
	return nil
}

func (r *SpaceRepository) GetByID(ctx context.Context, id string) (*space.Space, error) {
	query, args, err := psql.Select(spaceColumns...).From("spaces").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("施設取得クエリの構築に失敗: %w", err)
	}
	var row spaceRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return nil, space.ErrSpaceNotFound
		}
		return nil, fmt.Errorf("施設取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *SpaceRepository) Update(ctx context.Context, s *space.Space) error {
	s.UpdatedAt = time.Now()
	query, args, err := psql.Update("spaces").
		SetMap(map[string]interface{}{
			"name":                        s.Name,
			"capacity":                    s.Capacity,
			"requires_approval":           s.RequiresApproval,
			"max_duration_hours":          s.MaxDurationHours,
			"max_advance_days":            s.MaxAdvanceDays,
			"min_advance_hours":           s.MinAdvanceHours,
			"cancellation_deadline_hours": s.CancellationDeadlineHours,
			"slot_duration_minutes":       s.SlotDurationMinutes,
			"status":                      string(s.Status),
			"updated_at":                  s.UpdatedAt,
		}).
		Where(sq.Eq{"id": s.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("施設更新クエリの構築に失敗: %w", err)
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if pqCode(err) == codeInvalidText {
			return space.ErrSpaceNotFound
		}
		return fmt.Errorf("施設更新に失敗: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return space.ErrSpaceNotFound
	}
	return nil
}

func (r *SpaceRepository) ListAvailability(ctx context.Context, spaceID string) ([]*space.Availability, error) {
	query, args, err := psql.Select("id", "space_id", "day_of_week", "start_minute", "end_minute", "created_at").
		From("space_availability").
		Where(sq.Eq{"space_id": spaceID}).
		OrderBy("day_of_week", "start_minute").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("利用可能時間帯クエリの構築に失敗: %w", err)
	}
	var rows []availabilityRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("利用可能時間帯の取得に失敗: %w", err)
	}
	result := make([]*space.Availability, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

func (r *SpaceRepository) AddAvailability(ctx context.Context, a *space.Availability) error {
	query, args, err := psql.Insert("space_availability").
		Columns("space_id", "day_of_week", "start_minute", "end_minute", "created_at").
		Values(a.SpaceID, int(a.DayOfWeek), int(a.StartTime), int(a.EndTime), a.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("利用可能時間帯追加クエリの構築に失敗: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&a.ID); err != nil {
		if code := pqCode(err); code == codeForeignKeyViolation || code == codeInvalidText {
			return space.ErrSpaceNotFound
		}
		return fmt.Errorf("利用可能時間帯の追加に失敗: %w", err)
	}
	return nil
}

func (r *SpaceRepository) DeleteAvailability(ctx context.Context, spaceID, availabilityID string) error {
	return r.deleteChild(ctx, "space_availability", spaceID, availabilityID, space.ErrAvailabilityNotFound)
}

func (r *SpaceRepository) ListBlocks(ctx context.Context, spaceID string, within timeslot.Interval) ([]*space.Block, error) {
	query, args, err := psql.Select("id", "space_id", "start_at", "end_at", "reason", "created_by", "notes", "created_at").
		From("space_blocks").
		Where(sq.Eq{"space_id": spaceID}).
		Where(sq.Lt{"start_at": within.End}).
		Where(sq.Gt{"end_at": within.Start}).
		OrderBy("start_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("利用停止期間クエリの構築に失敗: %w", err)
	}
	var rows []blockRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("利用停止期間の取得に失敗: %w", err)
	}
	result := make([]*space.Block, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

func (r *SpaceRepository) AddBlock(ctx context.Context, b *space.Block) error {
	query, args, err := psql.Insert("space_blocks").
		Columns("space_id", "start_at", "end_at", "reason", "created_by", "notes", "created_at").
		Values(b.SpaceID, b.StartAt, b.EndAt, b.Reason, b.CreatedBy, b.Notes, b.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("利用停止期間追加クエリの構築に失敗: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&b.ID); err != nil {
		if code := pqCode(err); code == codeForeignKeyViolation || code == codeInvalidText {
			return space.ErrSpaceNotFound
		}
		return fmt.Errorf("利用停止期間の追加に失敗: %w", err)
	}
	return nil
}

func (r *SpaceRepository) DeleteBlock(ctx context.Context, spaceID, blockID string) error {
	return r.deleteChild(ctx, "space_blocks", spaceID, blockID, space.ErrBlockNotFound)
}

func (r *SpaceRepository) ListRules(ctx context.Context, spaceID string) (space.Rules, error) {
	query, args, err := psql.Select("space_id", "key", "value", "updated_at").
		From("space_rules").
		Where(sq.Eq{"space_id": spaceID}).
		OrderBy("key").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("ルールクエリの構築に失敗: %w", err)
	}
	var rows []ruleRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("ルールの取得に失敗: %w", err)
	}
	rules := make(space.Rules, len(rows))
	for i, row := range rows {
		rules[i] = &space.Rule{SpaceID: row.SpaceID, Key: row.Key, Value: row.Value, UpdatedAt: row.UpdatedAt}
	}
	return rules, nil
}

func (r *SpaceRepository) UpsertRule(ctx context.Context, rule *space.Rule) error {
	query, args, err := psql.Insert("space_rules").
		Columns("space_id", "key", "value", "updated_at").
		Values(rule.SpaceID, rule.Key, rule.Value, rule.UpdatedAt).
		Suffix("ON CONFLICT (space_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("ルール更新クエリの構築に失敗: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if code := pqCode(err); code == codeForeignKeyViolation || code == codeInvalidText {
			return space.ErrSpaceNotFound
		}
		return fmt.Errorf("ルールの更新に失敗: %w", err)
	}
	return nil
}

func (r *SpaceRepository) deleteChild(ctx context.Context, table, spaceID, id string, notFound error) error {
	query, args, err := psql.Delete(table).Where(sq.Eq{"id": id, "space_id": spaceID}).ToSql()
	if err != nil {
		return fmt.Errorf("削除クエリの構築に失敗: %w", err)
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if pqCode(err) == codeInvalidText {
			return notFound
		}
		return fmt.Errorf("%s の削除に失敗: %w", table, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound
	}
	return nil
}

var _ space.Repository = (*SpaceRepository)(nil)
