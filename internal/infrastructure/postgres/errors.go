package postgres

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// PostgreSQL のエラーコード
const (
	codeLockNotAvailable    = "55P03"
	codeDeadlockDetected    = "40P01"
	codeExclusionViolation  = "23P01"
	codeForeignKeyViolation = "23503"
	codeInvalidText         = "22P02"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// isLockContention はロック待ちで負けたエラーかを返す
func isLockContention(err error) bool {
	switch pqCode(err) {
	case codeLockNotAvailable, codeDeadlockDetected:
		return true
	}
	return false
}

// isNotFound は行が無い、または UUID として解釈できない ID による検索失敗かを返す
func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || pqCode(err) == codeInvalidText
}
