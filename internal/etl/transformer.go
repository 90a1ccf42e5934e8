package etl

import (
	"time"

	"github.com/BartekS5/steampulse/pkg/models"
)

// Transformer turns a successful detail payload into a Record, dropping anything
// whose declared type is not Kind.
type Transformer struct {
	Kind string
	Now  func() time.Time
}

func NewTransformer() *Transformer {
	return &Transformer{Kind: models.GameKind, Now: time.Now}
}

// Transform reports false when the payload is filtered out.
func (t *Transformer) Transform(id models.AppID, payload map[string]interface{}) (models.Record, bool) {
	if payload == nil {
		return nil, false
	}
	if kind, _ := payload[models.FieldType].(string); kind != t.Kind {
		return nil, false
	}

	now := time.Now
	if t.Now != nil {
		now = t.Now
	}

	return models.NewRecord(payload, id, now().UTC()), true
}
