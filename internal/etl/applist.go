package etl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BartekS5/steampulse/pkg/logger"
	"github.com/BartekS5/steampulse/pkg/models"
)

var ErrEmptyAppList = errors.New("app list is empty")

// AppListSource pages through the full catalog.
type AppListSource interface {
	FetchAppList(ctx context.Context, pageSize int, progress func(total int)) ([]models.AppSummary, error)
}

// ExportAppList downloads the whole catalog and writes it to path as
// {"applist":{"apps":[...]}}. It returns the number of apps written.
// A failure after at least one page still saves what was collected.
func ExportAppList(ctx context.Context, src AppListSource, pageSize int, path string) (int, error) {
	apps, err := src.FetchAppList(ctx, pageSize, func(total int) {
		logger.Info("fetched app list page", "total", total)
	})
	if err != nil {
		if len(apps) == 0 || ctx.Err() != nil {
			return 0, err
		}
		logger.Warn("app list download stopped early, saving partial list", "apps", len(apps), "error", err)
	}
	if len(apps) == 0 {
		return 0, ErrEmptyAppList
	}

	var doc models.AppList
	doc.AppList.Apps = apps

	data, err := json.Marshal(doc)
	if err != nil {
		return 0, err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return 0, fmt.Errorf("save app list to %s: %w", path, err)
	}

	logger.Infof("Saved %d apps to %s", len(apps), path)
	return len(apps), nil
}
