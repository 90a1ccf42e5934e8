package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/BartekS5/steampulse/pkg/models"
)

// ErrNoPayload means the detail API answered but declared the app unavailable.
var ErrNoPayload = errors.New("app details not available")

type appDetailsEnvelope struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data"`
}

// AppDetails fetches the detail payload of one app and classifies the outcome.
// It never returns an error; the result carries the classification instead.
func (c *Client) AppDetails(ctx context.Context, id models.AppID) models.DetailResult {
	q := url.Values{}
	q.Set("appids", id.String())
	q.Set("cc", c.cc)
	q.Set("l", c.lang)
	u := c.storeBase + "/api/appdetails?" + q.Encode()

	body, status, err := c.doGET(ctx, u, "application/json")
	if err != nil {
		return models.TransportFailure(err)
	}

	switch {
	case status == http.StatusTooManyRequests:
		return models.RateLimited()
	case status != http.StatusOK:
		return models.TransportFailure(fmt.Errorf("%w: %w", models.ErrTransport, &StatusError{Code: status, URL: u}))
	}

	return ParseAppDetails(body, id)
}

// ParseAppDetails decodes the {"<id>": {"success": .., "data": {..}}} envelope.
func ParseAppDetails(body []byte, id models.AppID) models.DetailResult {
	var envelope map[string]appDetailsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return models.FormatFailure(fmt.Errorf("%w: app %s: %v", models.ErrFormat, id, err))
	}

	entry, ok := envelope[id.String()]
	if !ok {
		return models.FormatFailure(fmt.Errorf("%w: app %s missing from response", models.ErrFormat, id))
	}
	if !entry.Success || entry.Data == nil {
		return models.FormatFailure(fmt.Errorf("%w: app %s: %w", models.ErrFormat, id, ErrNoPayload))
	}

	return models.Success(entry.Data)
}
