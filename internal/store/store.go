package store

import (
	"context"
	"encoding/json"

	"github.com/efreitasn/formrelay/internal/domain"
)

// RowInserter writes one destination row into a table.
// When returning is true the stored row(s) are returned as the backend
// reports them; otherwise the result may be nil.
type RowInserter interface {
	Insert(ctx context.Context, table string, row domain.Row, returning bool) ([]map[string]any, error)
}

// scalarValue converts structured answers (arrays, objects) to JSON text so
// they fit a text column. Scalars pass through unchanged.
func scalarValue(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, float64, int, int64:
		return v, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
