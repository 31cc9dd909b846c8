// Package cursor encodes and decodes opaque keyset-pagination cursors.
// Cursors are base64-encoded JSON payloads carrying the entity, ordering
// context, and string-coerced sort-key values of the last row seen.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"catalog-core/internal/schema"
)

type payloadV1 struct {
	Version   int      `json:"v"`
	Entity    string   `json:"e"`
	SortKey   string   `json:"k"`
	Direction string   `json:"d"`
	Values    []string `json:"vals"`
}

// Encode builds an opaque cursor from entity, sort columns, direction, and the
// last row's sort-key values. Values are string-coerced for JSON safety.
func Encode(entity string, sortColumns []string, direction string, values ...interface{}) string {
	stringValues := make([]string, 0, len(values))
	for _, v := range values {
		stringValues = append(stringValues, coerceToString(v))
	}
	payload := payloadV1{
		Version:   1,
		Entity:    entity,
		SortKey:   strings.Join(sortColumns, ","),
		Direction: strings.ToUpper(direction),
		Values:    stringValues,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(data)
}

// Decode parses a cursor into its components.
func Decode(raw string) (entity, sortKey, direction string, values []string, err error) {
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", "", "", nil, fmt.Errorf("invalid cursor: %w", err)
	}
	var payload payloadV1
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", "", "", nil, fmt.Errorf("invalid cursor format")
	}
	if payload.Version != 1 {
		return "", "", "", nil, fmt.Errorf("invalid cursor format: unsupported version")
	}
	if payload.Entity == "" || payload.SortKey == "" {
		return "", "", "", nil, fmt.Errorf("invalid cursor: missing entity or sort key")
	}
	direction = strings.ToUpper(payload.Direction)
	if direction != "ASC" && direction != "DESC" {
		return "", "", "", nil, fmt.Errorf("invalid cursor: direction must be ASC or DESC")
	}
	if len(payload.Values) == 0 {
		return "", "", "", nil, fmt.Errorf("invalid cursor: missing sort-key values")
	}
	return payload.Entity, payload.SortKey, direction, payload.Values, nil
}

// Validate confirms the cursor matches the query it is replayed against. A
// cursor minted for a different entity, sort key, or direction is rejected
// rather than silently producing a skewed page.
func Validate(expectedEntity string, expectedSortColumns []string, expectedDirection, entity, sortKey, direction string) error {
	if entity != expectedEntity {
		return fmt.Errorf("cursor entity mismatch: expected %s, got %s", expectedEntity, entity)
	}
	expectedKey := strings.Join(expectedSortColumns, ",")
	if sortKey != expectedKey {
		return fmt.Errorf("cursor sort mismatch: expected %s, got %s", expectedKey, sortKey)
	}
	if !strings.EqualFold(direction, expectedDirection) {
		return fmt.Errorf("cursor direction mismatch: expected %s, got %s", strings.ToUpper(expectedDirection), direction)
	}
	return nil
}

// ParseValues converts string-encoded cursor values back into native values
// using the sort columns' declared types.
func ParseValues(stringVals []string, columns []schema.Column) ([]interface{}, error) {
	if len(stringVals) != len(columns) {
		return nil, fmt.Errorf("cursor value count mismatch: expected %d, got %d", len(columns), len(stringVals))
	}
	result := make([]interface{}, len(stringVals))
	for i, sv := range stringVals {
		parsed, err := parseValue(columns[i], sv)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor value for %s: %w", columns[i].Name, err)
		}
		result[i] = parsed
	}
	return result, nil
}

func parseValue(col schema.Column, raw string) (interface{}, error) {
	switch col.Type {
	case schema.TypeInt:
		return strconv.ParseInt(raw, 10, 64)
	case schema.TypeDecimal:
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, err
		}
		return d.String(), nil
	case schema.TypeTime:
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, err
		}
		return ts, nil
	case schema.TypeString:
		return raw, nil
	default:
		return nil, fmt.Errorf("column type not usable as sort key")
	}
}

func coerceToString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case decimal.Decimal:
		return val.String()
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
