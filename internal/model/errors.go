package model

import (
	"errors"
	"fmt"
)

// ErrUserNotFound は指定されたユーザーが在席データに存在しないことを示す。
// HTTP層では本文なしの404に変換される。
var ErrUserNotFound = errors.New("user not found")

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: data, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeDataUnavailable = "DATA_UNAVAILABLE"
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeRateLimited     = "RATE_LIMIT_EXCEEDED"
)

// NewDataUnavailableError は在席データファイルを読めない場合のエラーを生成する。
// 原因の詳細はログにのみ記録する。
func NewDataUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeDataUnavailable,
		Message:  "在席データを読み込めませんでした。",
		Category: "data",
		Action:   "DATA_CSVの設定とファイルの存在を確認してください。",
	}
}

// NewInternalError は汎用の内部エラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
