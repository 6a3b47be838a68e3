package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"polymarket-execution/internal/execution"
	"polymarket-execution/internal/store"
	"polymarket-execution/internal/trading"
)

const schema = `
CREATE TABLE IF NOT EXISTS execution_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	attempt_id TEXT NOT NULL DEFAULT '',
	token_id TEXT NOT NULL DEFAULT '',
	order_id TEXT NOT NULL DEFAULT '',
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_execution_events_type ON execution_events(event_type)`,
	`CREATE INDEX IF NOT EXISTS idx_execution_events_token ON execution_events(token_id)`,
}

// Service 负责持久化执行事件，实现 execution.Recorder。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

var _ execution.Recorder = (*Service)(nil)

// NewService 初始化执行日志，创建所需表结构。
func NewService(ctx context.Context, st *store.Store, logger *zap.Logger) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("monitor: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := st.Migrate(ctx, append([]string{schema}, indexes...)...); err != nil {
		return nil, fmt.Errorf("monitor: 初始化表失败: %w", err)
	}

	return &Service{
		db:     st.DB(),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

type record struct {
	typ       EventType
	attemptID string
	tokenID   string
	orderID   string
	at        time.Time
	payload   interface{}
}

func (s *Service) insert(ctx context.Context, r record) error {
	payload, err := json.Marshal(r.payload)
	if err != nil {
		return fmt.Errorf("monitor: 序列化事件失败: %w", err)
	}
	if r.at.IsZero() {
		r.at = s.now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO execution_events (event_type, attempt_id, token_id, order_id, payload, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		string(r.typ), r.attemptID, r.tokenID, r.orderID, string(payload), r.at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("monitor: 写入事件失败: %w", err)
	}
	return nil
}

// RecordOutcome 记录一次下单尝试，写入失败只告警。
func (s *Service) RecordOutcome(ctx context.Context, outcome trading.Outcome) {
	err := s.insert(ctx, record{
		typ:       outcomeEventType(outcome),
		attemptID: outcome.AttemptID,
		tokenID:   outcome.Request.TokenID,
		orderID:   outcome.OrderID,
		at:        outcome.At,
		payload:   newOutcomePayload(outcome),
	})
	if err != nil {
		s.logger.Warn("记录执行事件失败", zap.String("attempt_id", outcome.AttemptID), zap.Error(err))
	}
}

// RecordCancel 记录撤单结果。
func (s *Service) RecordCancel(ctx context.Context, orderID string, canceled bool) {
	err := s.insert(ctx, record{
		typ:     EventOrderCanceled,
		orderID: orderID,
		payload: CancelPayload{OrderID: orderID, Canceled: canceled},
	})
	if err != nil {
		s.logger.Warn("记录撤单事件失败", zap.String("order_id", orderID), zap.Error(err))
	}
}

// RecordError 记录异常。
func (s *Service) RecordError(ctx context.Context, msg string, err error, ctxMap map[string]interface{}) {
	payload := ErrorPayload{Message: msg, Context: ctxMap}
	if err != nil {
		payload.Error = err.Error()
	}
	if recErr := s.insert(ctx, record{typ: EventError, payload: payload}); recErr != nil {
		s.logger.Warn("记录异常事件失败", zap.Error(recErr))
	}
}

// ListEvents 按条件检索最近事件，按写入顺序倒序返回。
func (s *Service) ListEvents(ctx context.Context, filter Filter) ([]Event, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, event_type, attempt_id, token_id, order_id, payload, created_at FROM execution_events WHERE 1=1`
	args := make([]interface{}, 0, 3)
	if filter.Type != "" {
		query += ` AND event_type = ?`
		args = append(args, string(filter.Type))
	}
	if filter.TokenID != "" {
		query += ` AND token_id = ?`
		args = append(args, filter.TokenID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monitor: 查询事件失败: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var (
			ev      Event
			typ     string
			payload string
			created string
		)
		if scanErr := rows.Scan(&ev.ID, &typ, &ev.AttemptID, &ev.TokenID, &ev.OrderID, &payload, &created); scanErr != nil {
			return nil, fmt.Errorf("monitor: 解析事件失败: %w", scanErr)
		}

		ts, parseErr := time.Parse(time.RFC3339Nano, created)
		if parseErr != nil {
			s.logger.Warn("事件时间格式无效", zap.Int64("id", ev.ID), zap.String("created_at", created))
		}
		ev.Type = EventType(typ)
		ev.Timestamp = ts
		ev.Payload = json.RawMessage(payload)
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monitor: 遍历事件失败: %w", err)
	}

	return events, nil
}
