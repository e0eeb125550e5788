package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-amenity-reservation/internal/application"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-amenity-reservation/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    int         `json:"code,omitempty"`
	Reason  string      `json:"reason,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// TransitionDetails は不正な状態遷移の詳細
type TransitionDetails struct {
	CurrentStatus   string   `json:"current_status"`
	AttemptedStatus string   `json:"attempted_status"`
	Action          string   `json:"action"`
	AllowedStatuses []string `json:"allowed_statuses"`
}

var kindStatus = map[application.RejectionKind]int{
	application.KindNotFound:        http.StatusNotFound,
	application.KindPolicyViolation: http.StatusUnprocessableEntity,
	application.KindConflict:        http.StatusConflict,
	application.KindState:           http.StatusConflict,
	application.KindInvalidInput:    http.StatusBadRequest,
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
// ドメインエラーは拒否コードに分類してステータスを決める
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, resp := toErrorResponse(err)

	if code >= 500 {
		logger.Error("サーバーエラー",
			zap.Int("status", code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, resp)
	}
	if err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}

func toErrorResponse(err error) (int, ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		message := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			message = m
		}
		return he.Code, ErrorResponse{Error: message, Code: he.Code}
	}

	if rej, ok := application.Classify(err); ok {
		code := kindStatus[rej.Kind]
		resp := ErrorResponse{Error: err.Error(), Code: code, Reason: rej.Code}

		var te *reservation.TransitionError
		if errors.As(err, &te) {
			resp.Details = transitionDetails(te)
		}
		return code, resp
	}

	return http.StatusInternalServerError, ErrorResponse{
		Error: "内部サーバーエラー",
		Code:  http.StatusInternalServerError,
	}
}

func transitionDetails(te *reservation.TransitionError) TransitionDetails {
	allowed := make([]string, len(te.Allowed))
	for i, s := range te.Allowed {
		allowed[i] = string(s)
	}
	return TransitionDetails{
		CurrentStatus:   string(te.Current),
		AttemptedStatus: string(te.Attempted),
		Action:          string(te.Action),
		AllowedStatuses: allowed,
	}
}
