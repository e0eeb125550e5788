package logger

import "go.uber.org/zap"

// 予約処理のログで共通に使うフィールド

func SpaceID(id string) zap.Field {
	return zap.String("space_id", id)
}

func ReservationID(id string) zap.Field {
	return zap.String("reservation_id", id)
}

func UnitID(id string) zap.Field {
	return zap.String("unit_id", id)
}

// ActorID は操作者。空の場合は出力しない
func ActorID(id string) zap.Field {
	if id == "" {
		return zap.Skip()
	}
	return zap.String("actor_id", id)
}

// Rejection は予約拒否のコード
func Rejection(code string) zap.Field {
	return zap.String("rejection", code)
}
