package apperror

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound は参照先（データセットのインデックスやドキュメント）が存在しない場合のエラー
	ErrNotFound = errors.New("not found")

	// ErrValidation は入力が不正な場合のエラー（必須項目の欠落、未対応の拡張子など）
	ErrValidation = errors.New("validation error")

	// ErrExternal は外部機能（テキスト抽出、Embedding、ベクトル検索、テキスト生成）の失敗を表す
	ErrExternal = errors.New("external capability error")

	// ErrStorage は永続化の読み書きに失敗した場合のエラー
	ErrStorage = errors.New("storage error")
)

// Error は操作名とエラー種別を保持するエラー
type Error struct {
	Kind error  // ErrNotFound / ErrValidation / ErrExternal / ErrStorage
	Op   string // 操作名
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NotFound は ErrNotFound 種別のエラーを作成します
func NotFound(op string, format string, args ...any) error {
	return &Error{Kind: ErrNotFound, Op: op, Err: fmt.Errorf(format, args...)}
}

// Validation は ErrValidation 種別のエラーを作成します
func Validation(op string, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Op: op, Err: fmt.Errorf(format, args...)}
}

// External は外部機能のエラーをラップします
func External(op string, err error) error {
	return &Error{Kind: ErrExternal, Op: op, Err: err}
}

// Storage は永続化エラーをラップします
func Storage(op string, err error) error {
	return &Error{Kind: ErrStorage, Op: op, Err: err}
}

// KindOf はエラーの種別を返します。種別が判別できない場合は nil を返します
func KindOf(err error) error {
	for _, kind := range []error{ErrNotFound, ErrValidation, ErrExternal, ErrStorage} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
