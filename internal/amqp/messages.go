package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"expense-tracker/internal/core"
	"expense-tracker/internal/metrics"

	"github.com/shopspring/decimal"
)

// Default queue names.
const (
	LimitAlertsQueue     = "limit_alerts"
	SummaryRequestsQueue = "summary_requests"
)

// LimitAlertMessage reports the exceeded limits of one user.
type LimitAlertMessage struct {
	Username    string               `json:"username"`
	Scope       string               `json:"scope"`
	Exceeded    []core.ExceededLimit `json:"exceeded"`
	TotalExcess decimal.Decimal      `json:"totalExcess"`
	GeneratedAt time.Time            `json:"generatedAt"`
}

// NewLimitAlertMessage builds an alert, computing the total excess.
func NewLimitAlertMessage(username, scope string, exceeded []core.ExceededLimit, at time.Time) *LimitAlertMessage {
	return &LimitAlertMessage{
		Username:    username,
		Scope:       scope,
		Exceeded:    exceeded,
		TotalExcess: metrics.TotalExcess(exceeded),
		GeneratedAt: at,
	}
}

// SummaryRequestMessage carries everything an external generator needs to
// write a user's financial summary.
type SummaryRequestMessage struct {
	Username         string               `json:"username"`
	RequestedAt      time.Time            `json:"requestedAt"`
	ExpenseGroups    []core.CategoryGroup `json:"expenseGroups"`
	IncomeCategories []string             `json:"incomeCategories"`
	Metrics          metrics.Snapshot     `json:"metrics"`
	Exceeded         []core.ExceededLimit `json:"limitsReport"`
	Transactions     []core.Transaction   `json:"transactions"`
}

func decode[T any](data []byte) (*T, error) {
	var msg T
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func LimitAlertFromJSON(data []byte) (*LimitAlertMessage, error) {
	return decode[LimitAlertMessage](data)
}

func SummaryRequestFromJSON(data []byte) (*SummaryRequestMessage, error) {
	return decode[SummaryRequestMessage](data)
}

// Publisher sends typed messages to their queues over a Client.
type Publisher struct {
	client       *Client
	alertQueue   string
	summaryQueue string
}

func NewPublisher(client *Client, alertQueue, summaryQueue string) *Publisher {
	return &Publisher{client: client, alertQueue: alertQueue, summaryQueue: summaryQueue}
}

func (p *Publisher) PublishLimitAlert(ctx context.Context, msg *LimitAlertMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return p.client.Publish(ctx, p.alertQueue, body)
}

func (p *Publisher) PublishSummaryRequest(ctx context.Context, msg *SummaryRequestMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return p.client.Publish(ctx, p.summaryQueue, body)
}

// ConsumeLimitAlerts decodes alert deliveries for handler. Malformed bodies
// are reported as handler errors.
func (c *Client) ConsumeLimitAlerts(ctx context.Context, queue string, handler func(context.Context, *LimitAlertMessage) error) error {
	return c.Consume(ctx, queue, func(ctx context.Context, body []byte) error {
		msg, err := LimitAlertFromJSON(body)
		if err != nil {
			return fmt.Errorf("decode limit alert: %w", err)
		}
		return handler(ctx, msg)
	})
}
