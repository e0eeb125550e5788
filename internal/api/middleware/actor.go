package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// HeaderActorID は操作者（居住者・管理者）のIDを運ぶヘッダー
const HeaderActorID = "X-User-ID"

const actorContextKey = "actor_id"

// RequireActor は X-User-ID ヘッダーを必須とし、操作者IDをコンテキストに格納する
func RequireActor() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := strings.TrimSpace(c.Request().Header.Get(HeaderActorID))
			if actor == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "ユーザーIDが必要です")
			}
			c.Set(actorContextKey, actor)
			return next(c)
		}
	}
}

// ActorID はコンテキストの操作者IDを返す
// RequireActor を通っていない場合はヘッダーを直接参照する
func ActorID(c echo.Context) string {
	if v, ok := c.Get(actorContextKey).(string); ok {
		return v
	}
	return strings.TrimSpace(c.Request().Header.Get(HeaderActorID))
}
