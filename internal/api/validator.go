package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-amenity-reservation/internal/domain/timeslot"
)

// CustomValidator はEcho用のカスタムバリデーター
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator は新しいバリデーターを作成する
// clocktime タグは HH:MM 形式の時刻（24:00 を含む）を検証する
func NewValidator() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("clocktime", func(fl validator.FieldLevel) bool {
		_, err := timeslot.ParseClockTime(fl.Field().String())
		return err == nil
	})
	return &CustomValidator{validator: v}
}

// Validate はリクエストのバリデーションを実行する
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
