// Package directory looks up user display data (id -> email) from the user
// service. The ledger only needs it for report and leave-request enrichment;
// lookups tolerate unknown ids by omitting them.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Member is a directory entry.
type Member struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Client resolves user ids to directory entries.
type Client interface {
	// FindMany returns entries for the ids it knows; unknown ids are simply
	// absent from the result.
	FindMany(ctx context.Context, ids []string) ([]Member, error)
}

// HTTPClient is the user-service implementation of Client.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPClient creates a directory client against the user service.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// FindMany fetches directory entries for the given ids.
func (c *HTTPClient) FindMany(ctx context.Context, ids []string) ([]Member, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/users?ids=%s", c.baseURL, url.QueryEscape(strings.Join(ids, ",")))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build directory request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("Directory lookup failed", zap.Error(err))
		return nil, fmt.Errorf("directory lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Directory lookup returned non-OK status", zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("directory lookup returned status %d", resp.StatusCode)
	}

	var members []Member
	if err := json.NewDecoder(resp.Body).Decode(&members); err != nil {
		return nil, fmt.Errorf("failed to decode directory response: %w", err)
	}
	return members, nil
}

// EmailIndex builds an id -> email map from a lookup result.
func EmailIndex(members []Member) map[string]string {
	index := make(map[string]string, len(members))
	for _, m := range members {
		index[m.ID] = m.Email
	}
	return index
}
