package dataset

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/KaramelBytes/scorecorr-cli/internal/table"
)

// Record is one decoded JSON object from a source.
type Record = map[string]any

// Load builds a table with the schema's columns. Fields outside the schema
// are dropped and schema fields missing from a record become null.
func Load(records []Record, schema Schema) (*table.Table, error) {
	t, err := table.New(schema.Names()...)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}
	row := make([]table.Value, len(schema))
	for i, rec := range records {
		for j, f := range schema {
			v, err := toValue(rec[f.Source])
			if err != nil {
				return nil, fmt.Errorf("record %d field %s: %w", i, f.Source, err)
			}
			row[j] = v
		}
		if err := t.Append(row...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func toValue(raw any) (table.Value, error) {
	switch v := raw.(type) {
	case nil:
		return table.Null(), nil
	case string:
		return table.String(v), nil
	case float64:
		return table.Number(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return table.Null(), fmt.Errorf("number %q: %w", v.String(), err)
		}
		return table.Number(f), nil
	case bool:
		return table.String(strconv.FormatBool(v)), nil
	default:
		return table.Null(), fmt.Errorf("unexpected nested value of type %T", raw)
	}
}
