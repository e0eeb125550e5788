package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-amenity-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/space"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/timeslot"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-amenity-reservation/internal/pkg/logger"
)

// DefaultLockTimeout は施設ロック待ちの既定の上限
const DefaultLockTimeout = 3 * time.Second

var reservationColumns = []string{
	"id", "space_id", "unit_id", "resident_id", "title", "start_at", "end_at", "expected_guests", "notes", "status",
	"approved_by", "approved_at", "rejected_by", "rejected_at", "rejection_reason",
	"canceled_by", "canceled_at", "cancellation_reason", "late_cancellation",
	"checked_in_at", "completed_at", "no_show_by", "no_show_at", "created_at", "updated_at",
}

var blockingStatuses = statusStrings(reservation.BlockingStatuses)

type reservationRow struct {
	ID                 string     `db:"id"`
	SpaceID            string     `db:"space_id"`
	UnitID             string     `db:"unit_id"`
	ResidentID         string     `db:"resident_id"`
	Title              string     `db:"title"`
	StartAt            time.Time  `db:"start_at"`
	EndAt              time.Time  `db:"end_at"`
	ExpectedGuests     int        `db:"expected_guests"`
	Notes              *string    `db:"notes"`
	Status             string     `db:"status"`
	ApprovedBy         *string    `db:"approved_by"`
	ApprovedAt         *time.Time `db:"approved_at"`
	RejectedBy         *string    `db:"rejected_by"`
	RejectedAt         *time.Time `db:"rejected_at"`
	RejectionReason    *string    `db:"rejection_reason"`
	CanceledBy         *string    `db:"canceled_by"`
	CanceledAt         *time.Time `db:"canceled_at"`
	CancellationReason *string    `db:"cancellation_reason"`
	LateCancellation   bool       `db:"late_cancellation"`
	CheckedInAt        *time.Time `db:"checked_in_at"`
	CompletedAt        *time.Time `db:"completed_at"`
	NoShowBy           *string    `db:"no_show_by"`
	NoShowAt           *time.Time `db:"no_show_at"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

func (r *reservationRow) toEntity() *reservation.Reservation {
	return &reservation.Reservation{
		ID: r.ID, SpaceID: r.SpaceID, UnitID: r.UnitID, ResidentID: r.ResidentID,
		Title: r.Title, StartAt: r.StartAt, EndAt: r.EndAt, ExpectedGuests: r.ExpectedGuests,
		Notes: r.Notes, Status: reservation.Status(r.Status),
		ApprovedBy: r.ApprovedBy, ApprovedAt: r.ApprovedAt,
		RejectedBy: r.RejectedBy, RejectedAt: r.RejectedAt, RejectionReason: r.RejectionReason,
		CanceledBy: r.CanceledBy, CanceledAt: r.CanceledAt, CancellationReason: r.CancellationReason,
		LateCancellation: r.LateCancellation,
		CheckedInAt:      r.CheckedInAt, CompletedAt: r.CompletedAt,
		NoShowBy: r.NoShowBy, NoShowAt: r.NoShowAt,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

// ReservationRepository は予約リポジトリのPostgreSQL実装
// 施設ロックは spaces の行ロックで表す
type ReservationRepository struct {
	db          *sqlx.DB
	lockTimeout time.Duration
}

func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db, lockTimeout: DefaultLockTimeout}
}

// WithLockTimeout は施設ロック待ちの上限を設定する
func (r *ReservationRepository) WithLockTimeout(d time.Duration) *ReservationRepository {
	if d > 0 {
		r.lockTimeout = d
	}
	return r
}

// LockSpace は spaces の行を FOR UPDATE でロックする
// lock_timeout やデッドロックで負けた場合は一度だけ再試行し、それでも取れなければ ErrSpaceBusy を返す
func (r *ReservationRepository) LockSpace(ctx context.Context, tx transaction.Tx, spaceID string) error {
	stx, err := requireTx(tx)
	if err != nil {
		return err
	}
	if _, err := stx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("lock_timeout の設定に失敗: %w", err)
	}

	const maxAttempts = 2
	for attempt := 1; ; attempt++ {
		err = r.lockSpaceOnce(ctx, stx, spaceID)
		if err == nil || !isLockContention(err) {
			return err
		}
		if attempt >= maxAttempts {
			logger.Warn("施設ロックを取得できませんでした", logger.SpaceID(spaceID), zap.Error(err))
			return reservation.ErrSpaceBusy
		}
		logger.Debug("施設ロック待ちで競合したため再試行します", logger.SpaceID(spaceID), zap.Error(err))
	}
}

// lockSpaceOnce は失敗してもトランザクションを継続できるようセーブポイント内でロックを取る
func (r *ReservationRepository) lockSpaceOnce(ctx context.Context, stx *sqlx.Tx, spaceID string) error {
	if _, err := stx.ExecContext(ctx, "SAVEPOINT space_lock"); err != nil {
		return fmt.Errorf("セーブポイント作成に失敗: %w", err)
	}
	var id string
	err := stx.GetContext(ctx, &id, "SELECT id FROM spaces WHERE id = $1 FOR UPDATE", spaceID)
	if err != nil {
		if _, rbErr := stx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT space_lock"); rbErr != nil {
			return fmt.Errorf("セーブポイントへのロールバックに失敗: %w", rbErr)
		}
		if isNotFound(err) {
			return space.ErrSpaceNotFound
		}
		if isLockContention(err) {
			return err
		}
		return fmt.Errorf("施設ロックに失敗: %w", err)
	}
	if _, err := stx.ExecContext(ctx, "RELEASE SAVEPOINT space_lock"); err != nil {
		return fmt.Errorf("セーブポイント解放に失敗: %w", err)
	}
	return nil
}

func (r *ReservationRepository) FindOverlapping(ctx context.Context, tx transaction.Tx, spaceID string, within timeslot.Interval, excludeID string) ([]*reservation.Reservation, error) {
	stx, err := requireTx(tx)
	if err != nil {
		return nil, err
	}
	b := overlapQuery(spaceID, within)
	if excludeID != "" {
		b = b.Where(sq.NotEq{"id": excludeID})
	}
	return r.selectRows(ctx, stx, b)
}

func (r *ReservationRepository) Create(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	stx, err := requireTx(tx)
	if err != nil {
		return err
	}
	row := fromEntity(res)
	query, args, err := psql.Insert("reservations").Columns(reservationColumns...).Values(row.values()...).ToSql()
	if err != nil {
		return fmt.Errorf("予約作成クエリの構築に失敗: %w", err)
	}
	if _, err := stx.ExecContext(ctx, query, args...); err != nil {
		if pqCode(err) == codeExclusionViolation {
			return reservation.ErrOverlappingReservation
		}
		return fmt.Errorf("予約作成に失敗: %w", err)
	}
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	return r.get(ctx, r.db, psql.Select(reservationColumns...).From("reservations").Where(sq.Eq{"id": id}))
}

func (r *ReservationRepository) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*reservation.Reservation, error) {
	stx, err := requireTx(tx)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, stx, psql.Select(reservationColumns...).From("reservations").Where(sq.Eq{"id": id}).Suffix("FOR UPDATE"))
}

func (r *ReservationRepository) Update(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	stx, err := requireTx(tx)
	if err != nil {
		return err
	}
	vals := fromEntity(res).values()
	set := make(map[string]interface{}, len(reservationColumns))
	for i, col := range reservationColumns {
		if col == "id" || col == "created_at" {
			continue
		}
		set[col] = vals[i]
	}
	query, args, err := psql.Update("reservations").SetMap(set).Where(sq.Eq{"id": res.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("予約更新クエリの構築に失敗: %w", err)
	}
	result, err := stx.ExecContext(ctx, query, args...)
	if err != nil {
		if pqCode(err) == codeExclusionViolation {
			return reservation.ErrOverlappingReservation
		}
		return fmt.Errorf("予約更新に失敗: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return reservation.ErrReservationNotFound
	}
	return nil
}

func (r *ReservationRepository) List(ctx context.Context, f reservation.ListFilter) ([]*reservation.Reservation, error) {
	b := psql.Select(reservationColumns...).From("reservations").
		Where(sq.Eq{"unit_id": f.UnitID}).
		OrderBy("start_at", "id")
	if len(f.Statuses) > 0 {
		b = b.Where(sq.Eq{"status": statusStrings(f.Statuses)})
	}
	if f.Within != nil {
		b = b.Where(sq.Lt{"start_at": f.Within.End}).Where(sq.Gt{"end_at": f.Within.Start})
	}
	if f.Limit > 0 {
		b = b.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		b = b.Offset(uint64(f.Offset))
	}
	return r.selectRows(ctx, r.db, b)
}

func (r *ReservationRepository) CountByUnit(ctx context.Context, tx transaction.Tx, spaceID, unitID string, within timeslot.Interval, statuses []reservation.Status) (int, error) {
	stx, err := requireTx(tx)
	if err != nil {
		return 0, err
	}
	query, args, err := psql.Select("COUNT(*)").From("reservations").
		Where(sq.Eq{"space_id": spaceID, "unit_id": unitID, "status": statusStrings(statuses)}).
		Where(sq.GtOrEq{"start_at": within.Start}).
		Where(sq.Lt{"start_at": within.End}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("予約件数クエリの構築に失敗: %w", err)
	}
	var n int
	if err := stx.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("予約件数の取得に失敗: %w", err)
	}
	return n, nil
}

func (r *ReservationRepository) ListBlockingInRange(ctx context.Context, spaceID string, within timeslot.Interval) ([]*reservation.Reservation, error) {
	return r.selectRows(ctx, r.db, overlapQuery(spaceID, within))
}

// overlapQuery は半開区間 [start, end) 同士の重なりを start < other.end AND end > other.start で判定する
func overlapQuery(spaceID string, within timeslot.Interval) sq.SelectBuilder {
	return psql.Select(reservationColumns...).From("reservations").
		Where(sq.Eq{"space_id": spaceID, "status": blockingStatuses}).
		Where(sq.Lt{"start_at": within.End}).
		Where(sq.Gt{"end_at": within.Start}).
		OrderBy("start_at")
}

func (r *ReservationRepository) get(ctx context.Context, q sqlx.QueryerContext, b sq.SelectBuilder) (*reservation.Reservation, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("予約取得クエリの構築に失敗: %w", err)
	}
	var row reservationRow
	if err := sqlx.GetContext(ctx, q, &row, query, args...); err != nil {
		if isNotFound(err) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *ReservationRepository) selectRows(ctx context.Context, q sqlx.QueryerContext, b sq.SelectBuilder) ([]*reservation.Reservation, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("予約一覧クエリの構築に失敗: %w", err)
	}
	var rows []reservationRow
	if err := sqlx.SelectContext(ctx, q, &rows, query, args...); err != nil {
		if pqCode(err) == codeInvalidText {
			return []*reservation.Reservation{}, nil
		}
		return nil, fmt.Errorf("予約一覧の取得に失敗: %w", err)
	}
	result := make([]*reservation.Reservation, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

func fromEntity(res *reservation.Reservation) *reservationRow {
	return &reservationRow{
		ID: res.ID, SpaceID: res.SpaceID, UnitID: res.UnitID, ResidentID: res.ResidentID,
		Title: res.Title, StartAt: res.StartAt, EndAt: res.EndAt, ExpectedGuests: res.ExpectedGuests,
		Notes: res.Notes, Status: string(res.Status),
		ApprovedBy: res.ApprovedBy, ApprovedAt: res.ApprovedAt,
		RejectedBy: res.RejectedBy, RejectedAt: res.RejectedAt, RejectionReason: res.RejectionReason,
		CanceledBy: res.CanceledBy, CanceledAt: res.CanceledAt, CancellationReason: res.CancellationReason,
		LateCancellation: res.LateCancellation,
		CheckedInAt:      res.CheckedInAt, CompletedAt: res.CompletedAt,
		NoShowBy: res.NoShowBy, NoShowAt: res.NoShowAt,
		CreatedAt: res.CreatedAt, UpdatedAt: res.UpdatedAt,
	}
}

// values は reservationColumns と同じ順序で値を返す
func (r *reservationRow) values() []interface{} {
	return []interface{}{
		r.ID, r.SpaceID, r.UnitID, r.ResidentID, r.Title, r.StartAt, r.EndAt, r.ExpectedGuests, r.Notes, r.Status,
		r.ApprovedBy, r.ApprovedAt, r.RejectedBy, r.RejectedAt, r.RejectionReason,
		r.CanceledBy, r.CanceledAt, r.CancellationReason, r.LateCancellation,
		r.CheckedInAt, r.CompletedAt, r.NoShowBy, r.NoShowAt, r.CreatedAt, r.UpdatedAt,
	}
}

func statusStrings(statuses []reservation.Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

var _ reservation.Repository = (*ReservationRepository)(nil)
