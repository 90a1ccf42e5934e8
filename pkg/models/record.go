package models

import (
	"fmt"
	"time"
)

// GameKind is the only payload type kept by the detail fetcher.
const GameKind = "game"

// Field names added to every record on ingestion.
const (
	FieldIngestedAt = "ingested_at"
	FieldSteamID    = "steam_id"
	FieldType       = "type"
)

// AppID identifies one catalog entry.
type AppID int

func (id AppID) String() string {
	return fmt.Sprintf("%d", int(id))
}

// Record is a detail payload plus the ingestion metadata.
// It is kept as a generic document so unknown storefront fields survive untouched.
type Record map[string]interface{}

// NewRecord copies payload and stamps it with the ingestion time and the app id.
func NewRecord(payload map[string]interface{}, id AppID, ingestedAt time.Time) Record {
	rec := make(Record, len(payload)+2)
	for k, v := range payload {
		rec[k] = v
	}
	rec[FieldIngestedAt] = ingestedAt.Format(time.RFC3339Nano)
	rec[FieldSteamID] = int(id)
	return rec
}

// Kind returns the declared payload type, or "" when missing.
func (r Record) Kind() string {
	k, _ := r[FieldType].(string)
	return k
}

// AppSummary is one entry of the bulk app list.
type AppSummary struct {
	AppID AppID  `json:"appid"`
	Name  string `json:"name"`
}

// AppList mirrors the document layout written by the bulk list export.
type AppList struct {
	AppList struct {
		Apps []AppSummary `json:"apps"`
	} `json:"applist"`
}

// Checkpoint is the persisted resume cursor.
type Checkpoint struct {
	LastIndex int `json:"last_index"`
}
