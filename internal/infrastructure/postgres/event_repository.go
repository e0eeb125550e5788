package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"

	"github.com/sanosuguru/go-amenity-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/transaction"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// OutboxEvent は未配信の予約イベント
type OutboxEvent struct {
	ID            string    `db:"id"`
	ReservationID string    `db:"reservation_id"`
	Type          string    `db:"event_type"`
	Payload       []byte    `db:"payload"`
	OccurredAt    time.Time `db:"occurred_at"`
}

// EventRepository は予約イベントを reservation_events（アウトボックス）に保存する
// 状態変更と同じトランザクションで書き込み、配信はワーカーが行う
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository はEventRepositoryを作成する
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Publish はイベントをアウトボックスに追記する
func (r *EventRepository) Publish(ctx context.Context, tx transaction.Tx, events []reservation.Event) error {
	if len(events) == 0 {
		return nil
	}
	stx, err := requireTx(tx)
	if err != nil {
		return err
	}

	b := psql.Insert("reservation_events").Columns("id", "reservation_id", "event_type", "payload", "occurred_at")
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("イベントのエンコードに失敗: %w", err)
		}
		b = b.Values(e.ID, e.ReservationID, string(e.Type), payload, e.OccurredAt)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("イベント保存クエリの構築に失敗: %w", err)
	}
	if _, err := stx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("イベント保存に失敗: %w", err)
	}
	return nil
}

// FetchPending は未配信のイベントを発生順に最大 limit 件ロックして取得する
// 他のワーカーがロック中の行は読み飛ばす
func (r *EventRepository) FetchPending(ctx context.Context, tx transaction.Tx, limit int) ([]OutboxEvent, error) {
	stx, err := requireTx(tx)
	if err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id", "reservation_id", "event_type", "payload", "occurred_at").
		From("reservation_events").
		Where(sq.Eq{"published_at": nil}).
		OrderBy("occurred_at", "id").
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("未配信イベントクエリの構築に失敗: %w", err)
	}
	var events []OutboxEvent
	if err := stx.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("未配信イベントの取得に失敗: %w", err)
	}
	return events, nil
}

// MarkPublished はイベントを配信済みにする
func (r *EventRepository) MarkPublished(ctx context.Context, tx transaction.Tx, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	stx, err := requireTx(tx)
	if err != nil {
		return err
	}
	query, args, err := psql.Update("reservation_events").
		Set("published_at", at).
		Where(sq.Eq{"id": ids}).
		ToSql()
	if err != nil {
		return fmt.Errorf("配信済み更新クエリの構築に失敗: %w", err)
	}
	if _, err := stx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("配信済み更新に失敗: %w", err)
	}
	return nil
}

// ListByReservation は予約のイベント履歴を発生順に返す
func (r *EventRepository) ListByReservation(ctx context.Context, reservationID string) ([]reservation.Event, error) {
	query, args, err := psql.Select("payload").
		From("reservation_events").
		Where(sq.Eq{"reservation_id": reservationID}).
		OrderBy("occurred_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("イベント履歴クエリの構築に失敗: %w", err)
	}
	var payloads [][]byte
	if err := r.db.SelectContext(ctx, &payloads, query, args...); err != nil {
		if pqCode(err) == codeInvalidText {
			return []reservation.Event{}, nil
		}
		return nil, fmt.Errorf("イベント履歴の取得に失敗: %w", err)
	}
	events := make([]reservation.Event, 0, len(payloads))
	for _, p := range payloads {
		var e reservation.Event
		if err := json.Unmarshal(p, &e); err != nil {
			return nil, fmt.Errorf("イベントのデコードに失敗: %w", err)
		}
		events = append(events, e)
	}
	return events, nil
}
