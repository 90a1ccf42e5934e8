package etl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/steampulse/pkg/models"
)

func TestTransformer_KeepsOnlyGames(t *testing.T) {
	tr := NewTransformer()

	for _, kind := range []string{"dlc", "demo", "music", "video", "mod", "advertising", "series", "episode", "hardware", ""} {
		_, ok := tr.Transform(1, map[string]interface{}{"type": kind})
		assert.False(t, ok, "kind %q must be filtered", kind)
	}

	_, ok := tr.Transform(1, map[string]interface{}{"name": "no type"})
	assert.False(t, ok)

	_, ok = tr.Transform(1, nil)
	assert.False(t, ok)
}

func TestTransformer_EnrichesWithoutMutatingPayload(t *testing.T) {
	tr := &Transformer{Kind: models.GameKind, Now: func() time.Time {
		return time.Date(2024, 3, 5, 10, 30, 0, 500, time.FixedZone("IST", 19800))
	}}
	payload := map[string]interface{}{"type": "game", "name": "Portal 2"}

	rec, ok := tr.Transform(620, payload)
	require.True(t, ok)

	assert.Equal(t, 620, rec[models.FieldSteamID])
	assert.Equal(t, "2024-03-05T05:00:00.0000005Z", rec[models.FieldIngestedAt])
	assert.Equal(t, "Portal 2", rec["name"])
	assert.NotContains(t, payload, models.FieldSteamID)
}

func TestValidator(t *testing.T) {
	v := NewValidator()
	now := time.Now()
	game := map[string]interface{}{"type": models.GameKind}

	assert.NoError(t, v.ValidateRecord(models.NewRecord(game, 1, now)))
	assert.Error(t, v.ValidateRecord(models.Record{"type": models.GameKind, "ingested_at": "x"}))
	assert.Error(t, v.ValidateRecord(models.Record{"type": models.GameKind, "steam_id": 1}))
	assert.Error(t, v.ValidateRecord(models.NewRecord(map[string]interface{}{"type": "dlc"}, 1, now)))

	assert.NoError(t, v.ValidateBatch(nil))
	assert.NoError(t, v.ValidateBatch([]models.Record{models.NewRecord(game, 1, now), models.NewRecord(game, 2, now)}))

	err := v.ValidateBatch([]models.Record{models.NewRecord(game, 1, now), models.NewRecord(game, 1, now)})
	assert.ErrorIs(t, err, ErrInvalidBatch)
}
