package etl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/BartekS5/steampulse/pkg/models"
)

// WireFormat tells the legacy local layout apart from the canonical remote one.
type WireFormat int

const (
	FormatUnknown WireFormat = iota
	// FormatArray is one JSON array of records (local sink, legacy remote objects).
	FormatArray
	// FormatNDJSON is one JSON object per line, no enclosing array.
	FormatNDJSON
)

func (f WireFormat) String() string {
	switch f {
	case FormatArray:
		return "json-array"
	case FormatNDJSON:
		return "ndjson"
	default:
		return "unknown"
	}
}

// DetectFormat looks at the first non-blank byte. An empty document is valid NDJSON.
func DetectFormat(data []byte) WireFormat {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return FormatNDJSON
	}

	switch trimmed[0] {
	case '[':
		return FormatArray
	case '{':
		return FormatNDJSON
	default:
		return FormatUnknown
	}
}

func EncodeArray(records []models.Record) ([]byte, error) {
	if records == nil {
		records = []models.Record{}
	}
	return json.Marshal(records)
}

// DecodeArray keeps numbers as json.Number so re-encoding reproduces them exactly.
func DecodeArray(data []byte) ([]models.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var records []models.Record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: decode json array: %v", models.ErrFormat, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after json array", models.ErrFormat)
	}

	return records, nil
}

// EncodeNDJSON writes one record per line, lines joined by '\n'.
func EncodeNDJSON(records []models.Record) ([]byte, error) {
	var buf bytes.Buffer
	for i, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("encode record %d: %w", i, err)
		}
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(line)
	}

	return buf.Bytes(), nil
}

// DecodeNDJSON skips blank lines.
func DecodeNDJSON(data []byte) ([]models.Record, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 64<<20)

	var records []models.Record
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()

		var rec models.Record
		if err := dec.Decode(&rec); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", models.ErrFormat, lineNo, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrFormat, err)
	}

	return records, nil
}

// DecodeAny decodes either wire format.
func DecodeAny(data []byte) ([]models.Record, WireFormat, error) {
	switch f := DetectFormat(data); f {
	case FormatArray:
		records, err := DecodeArray(data)
		return records, f, err
	case FormatNDJSON:
		records, err := DecodeNDJSON(data)
		return records, f, err
	default:
		return nil, f, fmt.Errorf("%w: unrecognised document", models.ErrFormat)
	}
}
