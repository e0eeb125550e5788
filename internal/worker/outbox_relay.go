package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-amenity-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-amenity-reservation/internal/infrastructure/postgres"
	"github.com/sanosuguru/go-amenity-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-amenity-reservation/internal/pkg/metrics"
)

// maxBatchesPerTick は1回の起動で処理するバッチ数の上限
const maxBatchesPerTick = 10

// OutboxStore は未配信イベントの取得と配信済み更新を行う
type OutboxStore interface {
	FetchPending(ctx context.Context, tx transaction.Tx, limit int) ([]postgres.OutboxEvent, error)
	MarkPublished(ctx context.Context, tx transaction.Tx, ids []string, at time.Time) error
}

// Broadcaster はイベントを下流へ配信する
type Broadcaster interface {
	Broadcast(ctx context.Context, payload []byte) error
}

// OutboxRelay はアウトボックスの未配信イベントを定期的に配信するワーカー
// 配信は少なくとも1回（at-least-once）で、発生順を保つ
type OutboxRelay struct {
	txManager   transaction.Manager
	store       OutboxStore
	broadcaster Broadcaster
	interval    time.Duration
	batchSize   int
	metrics     *metrics.Metrics
	now         func() time.Time
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// NewOutboxRelay は新しいリレーを作成
func NewOutboxRelay(
	txm transaction.Manager,
	store OutboxStore,
	b Broadcaster,
	interval time.Duration,
	batchSize int,
) *OutboxRelay {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxRelay{
		txManager:   txm,
		store:       store,
		broadcaster: b,
		interval:    interval,
		batchSize:   batchSize,
		now:         time.Now,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
}

// WithMetrics はメトリクスの記録先を設定する
func (r *OutboxRelay) WithMetrics(m *metrics.Metrics) *OutboxRelay {
	r.metrics = m
	return r
}

// Start はリレーを開始
func (r *OutboxRelay) Start(ctx context.Context) {
	logger.Info("アウトボックスリレー開始",
		zap.Duration("interval", r.interval),
		zap.Int("batch_size", r.batchSize),
	)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer close(r.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("アウトボックスリレー停止（コンテキストキャンセル）")
			return
		case <-r.stopCh:
			logger.Info("アウトボックスリレー停止（シグナル受信）")
			return
		case <-ticker.C:
			r.drain(ctx)
		}
	}
}

// Stop はリレーを停止
func (r *OutboxRelay) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

// drain は未配信イベントが尽きるか上限に達するまでバッチを処理する
func (r *OutboxRelay) drain(ctx context.Context) {
	for i := 0; i < maxBatchesPerTick; i++ {
		n, err := r.relayOnce(ctx)
		if err != nil {
			logger.Error("アウトボックス配信失敗", zap.Error(err))
			return
		}
		if n < r.batchSize {
			return
		}
	}
}

// relayOnce は1バッチを配信し、配信済みにした件数を返す
// 配信に失敗したイベント以降は次回に持ち越す（件数がバッチ未満になるため drain も止まる）
func (r *OutboxRelay) relayOnce(ctx context.Context) (int, error) {
	published := 0
	err := transaction.Run(ctx, r.txManager, func(tx transaction.Tx) error {
		events, err := r.store.FetchPending(ctx, tx, r.batchSize)
		if err != nil {
			return err
		}

		ids := make([]string, 0, len(events))
		for _, e := range events {
			if err := r.broadcaster.Broadcast(ctx, e.Payload); err != nil {
				r.metrics.ObserveOutbox("failed", 1)
				logger.Warn("イベント配信に失敗、次回再試行します",
					zap.String("event_id", e.ID),
					zap.String("event_type", e.Type),
					zap.Error(err),
				)
				break
			}
			ids = append(ids, e.ID)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := r.store.MarkPublished(ctx, tx, ids, r.now()); err != nil {
			return err
		}
		published = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.metrics.ObserveOutbox("published", published)
	if published > 0 {
		logger.Debug("イベントを配信", zap.Int("count", published))
	}
	return published, nil
}

// LogBroadcaster は配信先が無い構成でイベントをログに出力する
type LogBroadcaster struct{}

func (LogBroadcaster) Broadcast(ctx context.Context, payload []byte) error {
	logger.Info("予約イベント", zap.ByteString("payload", payload))
	return nil
}
