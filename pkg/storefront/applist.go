package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/BartekS5/steampulse/pkg/models"
)

// AppListPageSize is the largest page the app list service hands out.
const AppListPageSize = 50000

var (
	ErrMissingAPIKey = errors.New("STEAM_API_KEY not set")
	ErrForbidden     = errors.New("API key is invalid or has no permissions")
)

type appListResponse struct {
	Response struct {
		Apps []models.AppSummary `json:"apps"`
	} `json:"response"`
}

// AppListPage fetches games only (no DLC, no software) with appid > lastAppID.
func (c *Client) AppListPage(ctx context.Context, lastAppID models.AppID, pageSize int) ([]models.AppSummary, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("include_games", "true")
	q.Set("include_dlc", "false")
	q.Set("include_software", "false")
	q.Set("max_results", strconv.Itoa(pageSize))
	q.Set("last_appid", lastAppID.String())
	u := c.apiBase + "/IStoreService/GetAppList/v1/?" + q.Encode()

	body, status, err := c.doGET(ctx, u, "application/json")
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusForbidden:
		return nil, ErrForbidden
	case status != http.StatusOK:
		// the key is part of the query string, keep it out of the error
		return nil, &StatusError{Code: status, URL: c.apiBase + "/IStoreService/GetAppList/v1/"}
	}

	var out appListResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: app list: %v", models.ErrFormat, err)
	}

	return out.Response.Apps, nil
}

// FetchAppList pages through the whole catalog using the last app id as cursor.
// It stops on an empty page or a page shorter than pageSize. When a later page
// fails, the apps collected so far are returned together with the error.
func (c *Client) FetchAppList(ctx context.Context, pageSize int, progress func(total int)) ([]models.AppSummary, error) {
	if pageSize <= 0 {
		pageSize = AppListPageSize
	}

	var all []models.AppSummary
	var last models.AppID

	for {
		apps, err := c.AppListPage(ctx, last, pageSize)
		if err != nil {
			return all, fmt.Errorf("app list page after appid %d: %w", last, err)
		}
		if len(apps) == 0 {
			break
		}

		all = append(all, apps...)
		last = apps[len(apps)-1].AppID
		if progress != nil {
			progress(len(all))
		}

		if len(apps) < pageSize {
			break
		}
	}

	return all, nil
}
