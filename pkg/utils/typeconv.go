package utils

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/BartekS5/steampulse/pkg/models"
)

// ParseAppID parses one raw identifier token as scraped from a page.
func ParseAppID(token string) (models.AppID, error) {
	id, err := ConvertToInt(strings.TrimSpace(token))
	if err != nil {
		return 0, fmt.Errorf("parse app id %q: %w", token, err)
	}
	if id <= 0 {
		return 0, fmt.Errorf("parse app id %q: must be positive", token)
	}
	return models.AppID(id), nil
}

// RecordAppID extracts the steam_id field of a record regardless of how it was decoded.
func RecordAppID(rec models.Record) (models.AppID, error) {
	v, ok := rec[models.FieldSteamID]
	if !ok || v == nil {
		return 0, fmt.Errorf("record has no %s", models.FieldSteamID)
	}
	id, err := ConvertToInt(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", models.FieldSteamID, err)
	}
	return models.AppID(id), nil
}

// ConvertToInt handles the numeric shapes produced by JSON, BSON and SQL drivers.
func ConvertToInt(val interface{}) (int, error) {
	switch v := val.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("cannot convert non-integral %v to int", v)
		}
		return int(v), nil
	case json.Number:
		i, err := v.Int64()
		return int(i), err
	case string:
		return strconv.Atoi(v)
	case []byte:
		return strconv.Atoi(string(v))
	default:
		return 0, fmt.Errorf("cannot convert %T to int", val)
	}
}
