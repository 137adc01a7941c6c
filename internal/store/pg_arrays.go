package store

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// database/sql has no native support for PostgreSQL arrays, and the share
// blobs live in BYTEA[] columns (the denial list in INTEGER[]). These two
// small adapter types translate between Go slices and the text-format array
// literals the pgx stdlib driver exchanges for array columns.

// byteaArray maps a BYTEA[] column to [][]byte. Share blobs are opaque:
// nothing here interprets the bytes beyond hex transport encoding.
type byteaArray [][]byte

// Value implements driver.Valuer, rendering the slice as a text array
// literal of hex-escaped bytea elements, e.g. {"\\x6f70",...}.
func (a byteaArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}

	elems := make([]string, 0, len(a))
	for _, blob := range a {
		elems = append(elems, `"\\x`+hex.EncodeToString(blob)+`"`)
	}

	return "{" + strings.Join(elems, ",") + "}", nil
}

// Scan implements sql.Scanner for text-format BYTEA[] values. A SQL NULL
// scans to a nil slice.
func (a *byteaArray) Scan(src any) error {
	if src == nil {
		*a = nil
		return nil
	}

	literal, err := arrayLiteral(src)
	if err != nil {
		return err
	}

	elems, err := splitArrayLiteral(literal)
	if err != nil {
		return err
	}

	out := make([][]byte, 0, len(elems))
	for _, elem := range elems {
		if elem == "NULL" {
			out = append(out, nil)
			continue
		}

		unquoted := unquoteArrayElement(elem)
		if !strings.HasPrefix(unquoted, `\x`) {
			return fmt.Errorf("%w: bytea element without hex prefix", ErrScanningRow)
		}

		blob, decodeErr := hex.DecodeString(unquoted[2:])
		if decodeErr != nil {
			return fmt.Errorf("%w: %w", ErrScanningRow, decodeErr)
		}
		out = append(out, blob)
	}

	*a = out
	return nil
}

// int64Array maps an INTEGER[]/BIGINT[] column to []int64. A SQL NULL scans
// to an empty slice, matching the '{}' default of denied_by.
type int64Array []int64

func (a *int64Array) Scan(src any) error {
	if src == nil {
		*a = int64Array{}
		return nil
	}

	literal, err := arrayLiteral(src)
	if err != nil {
		return err
	}

	elems, err := splitArrayLiteral(literal)
	if err != nil {
		return err
	}

	out := make([]int64, 0, len(elems))
	for _, elem := range elems {
		n, parseErr := strconv.ParseInt(elem, 10, 64)
		if parseErr != nil {
			return fmt.Errorf("%w: %w", ErrScanningRow, parseErr)
		}
		out = append(out, n)
	}

	*a = out
	return nil
}

func arrayLiteral(src any) (string, error) {
	switch v := src.(type) {
	case []byte:
		return string(v), nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unexpected array source type %T", ErrScanningRow, src)
	}
}

// splitArrayLiteral splits a one-dimensional array literal into its raw
// elements, honouring double-quoted elements with backslash escapes.
// Returns no elements for the empty array '{}'.
func splitArrayLiteral(literal string) ([]string, error) {
	if len(literal) < 2 || literal[0] != '{' || literal[len(literal)-1] != '}' {
		return nil, fmt.Errorf("%w: malformed array literal", ErrScanningRow)
	}

	inner := literal[1 : len(literal)-1]
	if inner == "" {
		return nil, nil
	}

	var elems []string
	var current strings.Builder
	inQuotes := false

	for i := 0; i < len(inner); i++ {
		c := inner[i]
		switch {
		case c == '\\' && inQuotes && i+1 < len(inner):
			current.WriteByte(c)
			i++
			current.WriteByte(inner[i])
		case c == '"':
			inQuotes = !inQuotes
			current.WriteByte(c)
		case c == ',' && !inQuotes:
			elems = append(elems, current.String())
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	elems = append(elems, current.String())

	return elems, nil
}

// unquoteArrayElement strips surrounding double quotes and collapses
// backslash escapes of a single array element.
func unquoteArrayElement(elem string) string {
	if len(elem) < 2 || elem[0] != '"' || elem[len(elem)-1] != '"' {
		return elem
	}

	inner := elem[1 : len(elem)-1]
	var out strings.Builder
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			i++
		}
		out.WriteByte(inner[i])
	}

	return out.String()
}
