package endpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// AlertRule is a detection rule that raises alerts.
type AlertRule struct {
	ID          int    `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Severity    string `json:"severity,omitempty"`
	Enabled     bool   `json:"enabled"`
	Query       string `json:"query,omitempty"`
	CreatedBy   string `json:"createdBy,omitempty"`
	CreateDate  string `json:"createDate,omitempty"`
	UpdatedBy   string `json:"updatedBy,omitempty"`
	UpdateDate  string `json:"updateDate,omitempty"`
}

// AlertRulePage is one page of ListAlertRules results.
type AlertRulePage struct {
	Entities   []AlertRule `json:"entities"`
	TotalCount int         `json:"totalCount"`
}

// AlertRuleQuery selects a page of alert rules. Zero Take and empty strings are omitted.
type AlertRuleQuery struct {
	Skip   int
	Take   int
	Sort   string
	Filter string
}

func (q AlertRuleQuery) params() map[string]any {
	return map[string]any{
		"skip":   q.Skip,
		"take":   positive(q.Take),
		"sort":   nonEmpty(q.Sort),
		"filter": nonEmpty(q.Filter),
	}
}

// ListAlertRules returns one page of alert rules.
func (c *Client) ListAlertRules(ctx context.Context, query AlertRuleQuery) (*AlertRulePage, error) {
	page, err := do[AlertRulePage](ctx, c, http.MethodGet, uriAlertRules, query.params(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert rules: %w", err)
	}
	return &page, nil
}

// GetAlertRule returns the alert rule with the given ID.
func (c *Client) GetAlertRule(ctx context.Context, id int) (*AlertRule, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid alert rule ID %d", id)
	}

	rule, err := do[AlertRule](ctx, c, http.MethodGet, alertRulePath(id), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get alert rule %d: %w", id, err)
	}
	return &rule, nil
}

// CreateAlertRule creates rule and returns it as stored by the appliance.
func (c *Client) CreateAlertRule(ctx context.Context, rule AlertRule) (*AlertRule, error) {
	if rule.Name == "" {
		return nil, errors.New("alert rule name is required")
	}
	rule.ID = 0

	created, err := do[AlertRule](ctx, c, http.MethodPost, uriAlertRules, nil, rule)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert rule %q: %w", rule.Name, err)
	}

	c.http.Logger.Info("Created alert rule", zap.Int("id", created.ID), zap.String("name", created.Name))
	return &created, nil
}

// UpdateAlertRule replaces the alert rule identified by rule.ID.
func (c *Client) UpdateAlertRule(ctx context.Context, rule AlertRule) (*AlertRule, error) {
	if rule.ID <= 0 {
		return nil, fmt.Errorf("invalid alert rule ID %d", rule.ID)
	}
	if rule.Name == "" {
		return nil, errors.New("alert rule name is required")
	}

	updated, err := do[AlertRule](ctx, c, http.MethodPut, alertRulePath(rule.ID), nil, rule)
	if err != nil {
		return nil, fmt.Errorf("failed to update alert rule %d: %w", rule.ID, err)
	}
	return &updated, nil
}

// DeleteAlertRule deletes the alert rule with the given ID.
func (c *Client) DeleteAlertRule(ctx context.Context, id int) error {
	if id <= 0 {
		return fmt.Errorf("invalid alert rule ID %d", id)
	}

	if _, err := do[json.RawMessage](ctx, c, http.MethodDelete, alertRulePath(id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete alert rule %d: %w", id, err)
	}

	c.http.Logger.Info("Deleted alert rule", zap.Int("id", id))
	return nil
}

func alertRulePath(id int) string {
	return fmt.Sprintf("%s/%d", uriAlertRules, id)
}
