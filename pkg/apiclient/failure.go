package apiclient

import (
	"errors"
	"fmt"
)

// FailureKind 失敗の分類
type FailureKind string

const (
	// FailureTransport ネットワーク到達不能・不正なレスポンス
	FailureTransport FailureKind = "transport"
	// FailureApplication 2xx以外のステータス（エラーボディの有無を問わない）
	FailureApplication FailureKind = "application"
)

// Failure is the uniform error returned by every Client call.
type Failure struct {
	Kind    FailureKind
	Message string
	Status  int // application failures only
	Err     error
}

func (f *Failure) Error() string { return f.Message }

// Detail エラーボディ由来のメッセージにはステータスコードを付加
func (f *Failure) Detail() string {
	if f.Kind == FailureApplication && f.Message != statusMessage(f.Status) {
		return fmt.Sprintf("%s (status: %d)", f.Message, f.Status)
	}
	return f.Message
}

func statusMessage(status int) string {
	return fmt.Sprintf("HTTP error! status: %d", status)
}

func (f *Failure) Unwrap() error { return f.Err }

// AsFailure errからFailureを取り出す（Failureでなければtransport扱いに包む）
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: FailureTransport, Message: err.Error(), Err: err}
}

func transportFailure(format string, err error) *Failure {
	return &Failure{
		Kind:    FailureTransport,
		Message: fmt.Sprintf(format, err),
		Err:     err,
	}
}
