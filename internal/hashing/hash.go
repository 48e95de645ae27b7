// Package hashing computes the deterministic content hash used as the
// dedup key for trip records.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// numericExponent fixes the decimal precision used when normalizing
// floating-point fields (two digits after the point). This value is part of
// the hash definition: changing it reclassifies what counts as a duplicate
// across runs, so it must never change without a full reload.
const numericExponent = -2

// delimiter separates normalized field values. String fields are stripped of
// control characters during normalization, so the unit separator can never
// collide with payload.
const delimiter = "\x1f"

const timestampLayout = "2006-01-02 15:04:05"

// Sum hashes a record's full field set. Fields are normalized to canonical
// strings and concatenated in sorted-by-field-name order, so identical
// values yield identical hashes regardless of input ordering. If any field
// cannot be normalized, the whole record falls back to naive string joining
// of raw values, which is still deterministic for identical input.
func Sum(fields map[string]any) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		v, err := normalize(fields[name])
		if err != nil {
			return fallbackSum(names, fields)
		}
		parts = append(parts, v)
	}
	return digest(parts)
}

// normalize converts a single field value to its canonical string form.
func normalize(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return sanitizeString(x), nil
	case time.Time:
		if x.IsZero() {
			return "", nil
		}
		return x.Format(timestampLayout), nil
	case float64:
		return normalizeFloat(x)
	case float32:
		return normalizeFloat(float64(x))
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", x), nil
	case bool:
		if x {
			return "true", nil
		}
		return "false", nil
	default:
		return "", fmt.Errorf("normalize: unsupported type %T", v)
	}
}

// normalizeFloat renders a float as a fixed two-decimal string via apd so
// that values like 12.300000000000001 and 12.3 hash identically.
func normalizeFloat(f float64) (string, error) {
	var d apd.Decimal
	if _, err := d.SetFloat64(f); err != nil {
		return "", fmt.Errorf("normalizeFloat: %w", err)
	}
	ctx := apd.BaseContext.WithPrecision(34)
	var q apd.Decimal
	if _, err := ctx.Quantize(&q, &d, numericExponent); err != nil {
		return "", fmt.Errorf("normalizeFloat: quantize: %w", err)
	}
	return q.Text('f'), nil
}

// sanitizeString drops ASCII control characters so a raw string cannot
// smuggle the field delimiter into the joined payload.
func sanitizeString(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

// fallbackSum joins the raw values with fmt in the same sorted field order.
func fallbackSum(sortedNames []string, fields map[string]any) string {
	parts := make([]string, 0, len(sortedNames))
	for _, name := range sortedNames {
		parts = append(parts, fmt.Sprint(fields[name]))
	}
	return digest(parts)
}

func digest(parts []string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, delimiter)))
	return hex.EncodeToString(sum[:])
}
