package trading

import (
	"errors"
	"fmt"
)

// Kind 为交易错误类别。
type Kind uint8

const (
	// KindValidation 输入参数不合法，调用方修正后可重试。
	KindValidation Kind = iota + 1
	// KindConnection 会话未就绪，重新初始化后可恢复。
	KindConnection
	// KindOrder 订单在场所侧失败（签名、提交、查询、撤单）。
	KindOrder
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConnection:
		return "connection"
	case KindOrder:
		return "order"
	default:
		return "unknown"
	}
}

var (
	// ErrTrading 为所有交易领域错误的根。
	ErrTrading = errors.New("trading error")
	// ErrValidation 对应 KindValidation。
	ErrValidation = fmt.Errorf("%w: validation", ErrTrading)
	// ErrConnection 对应 KindConnection。
	ErrConnection = fmt.Errorf("%w: connection", ErrTrading)
	// ErrOrder 对应 KindOrder。
	ErrOrder = fmt.Errorf("%w: order", ErrTrading)
)

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindConnection:
		return ErrConnection
	case KindOrder:
		return ErrOrder
	default:
		return ErrTrading
	}
}

// Error 是带类别的交易错误，可通过 errors.Is 匹配 ErrTrading 及对应类别哨兵。
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

// NewError 创建交易错误。
func NewError(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// Validationf 创建校验类错误。
func Validationf(op, format string, args ...interface{}) *Error {
	return NewError(KindValidation, op, fmt.Sprintf(format, args...), nil)
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%s error: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s error [%s]: %s", e.Kind, e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 使 errors.Is(err, ErrTrading) 与 errors.Is(err, ErrValidation) 等同时成立。
func (e *Error) Is(target error) bool {
	return target == ErrTrading || target == e.Kind.sentinel()
}

// KindOf 提取错误链中的交易错误类别。
func KindOf(err error) (Kind, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return 0, false
}

// IsValidation 判断是否为校验错误。
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsConnection 判断是否为会话未就绪错误。
func IsConnection(err error) bool {
	return errors.Is(err, ErrConnection)
}

// APIError 表示场所返回的业务错误（非 2xx 或 success=false）。
type APIError struct {
	StatusCode int
	Message    string
	Path       string
}

func (e *APIError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("venue api error: status=%d message=%s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("venue api error: %s status=%d message=%s", e.Path, e.StatusCode, e.Message)
}

// AsAPIError 提取错误链中的场所错误。
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
