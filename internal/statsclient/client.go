// Package statsclient implements points.StatisticsProvider against the
// external attendance statistics service (JSON over HTTP).
package statsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/AuroraPeakLabs/points/pkg/points"
	"go.uber.org/zap"
)

const (
	statisticsPath    = "/v1/statistics"
	defaultTimeout    = 10 * time.Second
	requestDateLayout = "2006-01-02"
)

// Client queries the statistics service one batch at a time.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(client *Client) {
		if httpClient != nil {
			client.httpClient = httpClient
		}
	}
}

// WithLogger wires request logging.
func WithLogger(logger *zap.Logger) Option {
	return func(client *Client) {
		if logger != nil {
			client.logger = logger
		}
	}
}

// New returns a Client for the given base URL.
func New(baseURL string, options ...Option) *Client {
	client := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, option := range options {
		if option != nil {
			option(client)
		}
	}
	return client
}

type statisticsRequest struct {
	UserIDs []string `json:"userIds"`
	From    string   `json:"from"`
	To      string   `json:"to"`
}

type statisticsResponse struct {
	Results []statisticsResult `json:"results"`
}

type statisticsResult struct {
	UserID               string `json:"userId"`
	TotalDays            int64  `json:"totalDays"`
	LateDays             int64  `json:"lateDays"`
	TotalOvertimeMinutes int64  `json:"totalOvertimeMinutes"`
	MorningPresentDays   int64  `json:"morningPresentDays"`
	AfternoonPresentDays int64  `json:"afternoonPresentDays"`
}

// GetStatistics fetches counters for one batch of at most
// points.StatisticsBatchLimit users. Users without data for the range may be
// absent from the result.
func (client *Client) GetStatistics(ctx context.Context, userIDs []points.UserID, dateRange points.DateRange) ([]points.Statistics, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	if len(userIDs) > points.StatisticsBatchLimit {
		return nil, fmt.Errorf("%w: %d user ids exceed the batch limit of %d", points.ErrInvalidRequest, len(userIDs), points.StatisticsBatchLimit)
	}

	rawIDs := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		rawIDs = append(rawIDs, userID.String())
	}
	payload, err := json.Marshal(statisticsRequest{
		UserIDs: rawIDs,
		From:    dateRange.From.Format(requestDateLayout),
		To:      dateRange.To.Format(requestDateLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("encode statistics request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, client.baseURL+statisticsPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build statistics request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := client.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("statistics request: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		client.logger.Warn("statistics request rejected",
			zap.Int("status", response.StatusCode),
			zap.Int("batch_size", len(userIDs)))
		return nil, fmt.Errorf("statistics request failed: %s", response.Status)
	}

	var decoded statisticsResponse
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode statistics response: %w", err)
	}

	statistics := make([]points.Statistics, 0, len(decoded.Results))
	for _, result := range decoded.Results {
		userID, err := points.NewUserID(result.UserID)
		if err != nil {
			return nil, fmt.Errorf("statistics response: %w", err)
		}
		statistics = append(statistics, points.Statistics{
			UserID:               userID,
			TotalDays:            result.TotalDays,
			LateDays:             result.LateDays,
			TotalOvertimeMinutes: result.TotalOvertimeMinutes,
			MorningPresentDays:   result.MorningPresentDays,
			AfternoonPresentDays: result.AfternoonPresentDays,
		})
	}
	client.logger.Debug("statistics batch fetched",
		zap.Int("requested", len(userIDs)),
		zap.Int("returned", len(statistics)))
	return statistics, nil
}
