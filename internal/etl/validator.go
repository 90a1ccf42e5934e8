package etl

import (
	"fmt"

	"github.com/BartekS5/steampulse/pkg/models"
	"github.com/BartekS5/steampulse/pkg/utils"
)

// Validator checks records right before they are committed.
type Validator struct {
	Kind string
}

func NewValidator() *Validator {
	return &Validator{Kind: models.GameKind}
}

// ValidateRecord checks the ingestion metadata and the payload type.
func (v *Validator) ValidateRecord(rec models.Record) error {
	if _, err := utils.RecordAppID(rec); err != nil {
		return fmt.Errorf("missing or invalid %s: %w", models.FieldSteamID, err)
	}
	if s, ok := rec[models.FieldIngestedAt].(string); !ok || s == "" {
		return fmt.Errorf("missing required field: %s", models.FieldIngestedAt)
	}
	if v.Kind != "" && rec.Kind() != v.Kind {
		return fmt.Errorf("unexpected record type %q", rec.Kind())
	}
	return nil
}

// ValidateBatch rejects a batch containing an invalid record or the same app twice.
func (v *Validator) ValidateBatch(records []models.Record) error {
	seen := make(map[models.AppID]struct{}, len(records))
	for i, rec := range records {
		if err := v.ValidateRecord(rec); err != nil {
			return fmt.Errorf("%w: record %d: %v", ErrInvalidBatch, i, err)
		}
		id, _ := utils.RecordAppID(rec)
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate %s %d", ErrInvalidBatch, models.FieldSteamID, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
