package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/steampulse/pkg/models"
)

func TestParseAppID(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		want    models.AppID
		wantErr bool
	}{
		{"plain", "730", 730, false},
		{"padded", " 570 ", 570, false},
		{"empty", "", 0, true},
		{"not a number", "abc", 0, true},
		{"zero", "0", 0, true},
		{"negative", "-4", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAppID(tt.token)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecordAppID(t *testing.T) {
	id, err := RecordAppID(models.Record{"steam_id": float64(440)})
	require.NoError(t, err)
	assert.Equal(t, models.AppID(440), id)

	id, err = RecordAppID(models.Record{"steam_id": int32(10)})
	require.NoError(t, err)
	assert.Equal(t, models.AppID(10), id)

	id, err = RecordAppID(models.Record{"steam_id": json.Number("20")})
	require.NoError(t, err)
	assert.Equal(t, models.AppID(20), id)

	_, err = RecordAppID(models.Record{"name": "x"})
	assert.Error(t, err)

	_, err = RecordAppID(models.Record{"steam_id": 1.5})
	assert.Error(t, err)
}
