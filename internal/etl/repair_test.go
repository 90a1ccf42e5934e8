package etl

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/steampulse/pkg/models"
)

func sampleBatch(ids ...int) []models.Record {
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	out := make([]models.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.NewRecord(map[string]interface{}{
			"type":         models.GameKind,
			"name":         "Game",
			"price":        map[string]interface{}{"final": 49900, "currency": "INR"},
			"is_free":      false,
			"release_date": map[string]interface{}{"date": "1 Jan, 2020"},
		}, models.AppID(id), now))
	}
	return out
}

func TestRepairAll_ArrayBecomesNDJSON(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir)
	batch := sampleBatch(10, 20, 30)
	_, err := sink.Write(context.Background(), "9", batch)
	require.NoError(t, err)

	store := newMemObjectStore()
	report, err := NewRepairer(sink, store, "raw_layer").RepairAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RepairReport{Scanned: 1, Repaired: 1}, report)

	obj, ok := store.objects["raw_layer/repaired/batch_9.json"]
	require.True(t, ok)
	assert.Equal(t, "application/json", obj.contentType)
	assert.Equal(t, FormatNDJSON, DetectFormat(obj.body))
	assert.Len(t, bytes.Split(obj.body, []byte("\n")), 3)

	got, err := DecodeNDJSON(obj.body)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "batch_9.json"))
	require.NoError(t, err)
	want, err := DecodeArray(raw)
	require.NoError(t, err)
	assert.Equal(t, want, got, "repair preserves every record and their order")
}

func TestRepairAll_AlreadyCanonicalInput(t *testing.T) {
	ndjson, err := EncodeNDJSON(sampleBatch(1, 2))
	require.NoError(t, err)

	sink := &memSink{files: map[string][]byte{"batch_final_1.json": ndjson}}
	store := newMemObjectStore()

	report, err := NewRepairer(sink, store, "raw_layer").RepairAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Repaired)
	assert.Equal(t, ndjson, store.objects["raw_layer/repaired/batch_final_1.json"].body)
}

func TestRepairAll_FailuresDoNotStopTheScan(t *testing.T) {
	good, err := EncodeArray(sampleBatch(1))
	require.NoError(t, err)

	sink := &memSink{files: map[string][]byte{
		"batch_1.json": good,
		"batch_2.json": []byte("not json at all"),
		"batch_3.json": good,
		"batch_4.json": []byte(`[{"steam_id": 4}`),
		"batch_5.json": good,
	}}
	store := newMemObjectStore()
	store.failKey["raw_layer/repaired/batch_3.json"] = errors.New("403 forbidden")

	report, err := NewRepairer(sink, store, "raw_layer").RepairAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, report.Scanned)
	assert.Equal(t, 2, report.Repaired)
	assert.Equal(t, []string{"batch_2.json", "batch_3.json", "batch_4.json"}, report.Failed)
	assert.Contains(t, store.objects, "raw_layer/repaired/batch_1.json")
	assert.Contains(t, store.objects, "raw_layer/repaired/batch_5.json")
}

func TestRepairAll_IsIdempotent(t *testing.T) {
	sink := NewFileSink(t.TempDir())
	_, err := sink.Write(context.Background(), "0", sampleBatch(1, 2))
	require.NoError(t, err)
	_, err = sink.Write(context.Background(), "2", sampleBatch(3))
	require.NoError(t, err)

	store := newMemObjectStore()
	r := NewRepairer(sink, store, "raw_layer")

	_, err = r.RepairAll(context.Background())
	require.NoError(t, err)
	first := map[string]storedObject{}
	for k, v := range store.objects {
		first[k] = v
	}

	_, err = r.RepairAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, store.objects)
	assert.Equal(t, 4, store.puts)
}

func TestRepairAll_HangingUploadIsAFailedFile(t *testing.T) {
	sink := NewFileSink(t.TempDir())
	_, err := sink.Write(context.Background(), "0", sampleBatch(1))
	require.NoError(t, err)
	_, err = sink.Write(context.Background(), "1", sampleBatch(2))
	require.NoError(t, err)

	store := &hangingObjectStore{}
	r := NewRepairer(sink, store, "raw_layer")
	r.Timeout = 20 * time.Millisecond

	report, err := r.RepairAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, []string{"batch_0.json", "batch_1.json"}, report.Failed)
	assert.Equal(t, []bool{true, true}, store.deadlines)
}

func TestRepairAll_EmptySink(t *testing.T) {
	report, err := NewRepairer(NewFileSink(filepath.Join(t.TempDir(), "missing")), newMemObjectStore(), "raw_layer").
		RepairAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Scanned)
}

func TestRepairedObjectKey(t *testing.T) {
	assert.Equal(t, "raw_layer/repaired/batch_7.json", RepairedObjectKey("raw_layer", "batch_7.json"))
	assert.Equal(t, "raw_layer/repaired/batch_7.json", RepairedObjectKey("raw_layer", "data/batch_7.json"))
	assert.Equal(t, "repaired/batch_7.json", RepairedObjectKey("", "batch_7.json"))
}
