package endpoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Alert status values accepted by UpdateAlertStatus.
const (
	AlertStatusNew        = "New"
	AlertStatusInProgress = "InProgress"
	AlertStatusClosed     = "Closed"
)

// Alert is one alert raised on a monitored endpoint.
type Alert struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Severity       string `json:"severity"`
	Status         string `json:"status,omitempty"`
	Source         string `json:"source,omitempty"`
	RuleID         int    `json:"ruleId,omitempty"`
	EndpointID     string `json:"endpointId,omitempty"`
	EndpointName   string `json:"endpointName,omitempty"`
	ArtifactName   string `json:"artifactName,omitempty"`
	CreateDate     string `json:"createDate,omitempty"`
	InsertionDate  string `json:"insertionDate,omitempty"`
	AckDate        string `json:"ackDate,omitempty"`
	IntelName      string `json:"intelName,omitempty"`
	ValidatedDate  string `json:"validatedDate,omitempty"`
	ParentEventIDs []int  `json:"parentEventIds,omitempty"`
}

// AlertPage is one page of ListAlerts results.
type AlertPage struct {
	Entities   []Alert `json:"entities"`
	TotalCount int     `json:"totalCount"`
}

// AlertQuery selects a page of alerts. Zero Take and empty strings are omitted; nil dates are
// not sent.
type AlertQuery struct {
	Skip        int
	Take        int
	Sort        string // e.g. "createDate Descending"
	FacetSearch string
	StartDate   *time.Time
	EndDate     *time.Time
}

func (q AlertQuery) params() map[string]any {
	return map[string]any{
		"skip":        q.Skip,
		"take":        positive(q.Take),
		"sort":        nonEmpty(q.Sort),
		"facetSearch": nonEmpty(q.FacetSearch),
		"startDate":   q.StartDate,
		"endDate":     q.EndDate,
	}
}

// ListAlerts returns one page of alerts matching query.
func (c *Client) ListAlerts(ctx context.Context, query AlertQuery) (*AlertPage, error) {
	if query.StartDate != nil && query.EndDate != nil && query.EndDate.Before(*query.StartDate) {
		return nil, errors.New("end date is before start date")
	}

	page, err := do[AlertPage](ctx, c, http.MethodGet, uriAlertsList, query.params(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	return &page, nil
}

// GetAlert returns the alert with the given ID.
func (c *Client) GetAlert(ctx context.Context, id int) (*Alert, error) {
	if id <= 0 {
		return nil, fmt.Errorf("invalid alert ID %d", id)
	}

	alert, err := do[Alert](ctx, c, http.MethodGet, fmt.Sprintf("%s/%d", uriAlerts, id), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get alert %d: %w", id, err)
	}
	return &alert, nil
}

// UpdateAlertStatus sets the status of every alert in ids. comment is optional.
func (c *Client) UpdateAlertStatus(ctx context.Context, ids []int, status, comment string) error {
	if err := validateIDs(ids); err != nil {
		return err
	}
	if status == "" {
		return errors.New("status is required")
	}

	params := map[string]any{
		"alertIds": ids,
		"status":   status,
		"comment":  nonEmpty(comment),
	}
	if err := c.Post(ctx, uriAlertsUpdateStatus, params, nil); err != nil {
		return fmt.Errorf("failed to update alert status: %w", err)
	}

	c.http.Logger.Info("Updated alert status", zap.Ints("alertIds", ids), zap.String("status", status))
	return nil
}

// DeleteAlerts deletes every alert in ids.
func (c *Client) DeleteAlerts(ctx context.Context, ids []int) error {
	if err := validateIDs(ids); err != nil {
		return err
	}

	if err := c.Post(ctx, uriAlertsDelete, map[string]any{"alertIds": ids}, nil); err != nil {
		return fmt.Errorf("failed to delete alerts: %w", err)
	}

	c.http.Logger.Info("Deleted alerts", zap.Ints("alertIds", ids))
	return nil
}

func validateIDs(ids []int) error {
	if len(ids) == 0 {
		return errors.New("at least one alert ID is required")
	}
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("invalid alert ID %d", id)
		}
	}
	return nil
}

// nonEmpty returns nil for "" so SanitizeParams drops it.
func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func positive(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}
