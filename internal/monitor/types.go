package monitor

import (
	"encoding/json"
	"time"

	"polymarket-execution/internal/trading"
)

// EventType 表示执行事件类型。
type EventType string

const (
	EventOrderPlaced   EventType = "order_placed"
	EventOrderFailed   EventType = "order_failed"
	EventOrderRejected EventType = "order_rejected"
	EventOrderCanceled EventType = "order_canceled"
	EventError         EventType = "error"
)

// Event 为从执行日志读出的一条记录。
type Event struct {
	ID        int64           `json:"id"`
	Type      EventType       `json:"type"`
	AttemptID string          `json:"attempt_id,omitempty"`
	TokenID   string          `json:"token_id,omitempty"`
	OrderID   string          `json:"order_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// OutcomePayload 记录一次下单尝试。
type OutcomePayload struct {
	AttemptID string       `json:"attempt_id"`
	TokenID   string       `json:"token_id"`
	Side      trading.Side `json:"side"`
	Price     float64      `json:"price"`
	Size      float64      `json:"size"`
	Notional  float64      `json:"notional"`
	Success   bool         `json:"success"`
	OrderID   string       `json:"order_id,omitempty"`
	Status    string       `json:"status,omitempty"`
	ElapsedMs int64        `json:"elapsed_ms"`
	ErrorKind string       `json:"error_kind,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// CancelPayload 记录撤单结果。
type CancelPayload struct {
	OrderID  string `json:"order_id"`
	Canceled bool   `json:"canceled"`
}

// ErrorPayload 记录异常。
type ErrorPayload struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Filter 控制 ListEvents 的检索条件，零值表示不过滤。
type Filter struct {
	Type    EventType
	TokenID string
	Limit   int
}

func newOutcomePayload(o trading.Outcome) OutcomePayload {
	p := OutcomePayload{
		AttemptID: o.AttemptID,
		TokenID:   o.Request.TokenID,
		Side:      o.Request.Side,
		Price:     o.Request.Price,
		Size:      o.Request.Size,
		Notional:  o.Request.Notional(),
		Success:   o.Success,
		OrderID:   o.OrderID,
		Status:    o.Status,
		ElapsedMs: o.ElapsedMillis(),
	}
	if o.Err != nil {
		p.Error = o.Err.Error()
		if kind, ok := o.Kind(); ok {
			p.ErrorKind = kind.String()
		}
	}
	return p
}

func outcomeEventType(o trading.Outcome) EventType {
	switch {
	case o.Success:
		return EventOrderPlaced
	case o.Err != nil && trading.IsValidation(o.Err):
		return EventOrderRejected
	default:
		return EventOrderFailed
	}
}
