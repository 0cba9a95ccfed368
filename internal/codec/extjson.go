// Package codec encodes MongoDB documents as Canonical Extended JSON lines
// and decodes them back without losing type information. One document maps
// to exactly one line of UTF-8 text, which is what the on-disk backup
// format stores.
package codec

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// FormatName identifies the encoding in manifests and summaries.
const FormatName = "MongoDB Extended JSON"

// MalformedRecordError reports a single line that could not be decoded.
// Callers treat it as a per-line failure, never a per-collection one.
type MalformedRecordError struct {
	Err error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record: %v", e.Err)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

// Encode serializes a document to a single Canonical Extended JSON line.
// Canonical mode keeps ObjectId, DateTime, numeric subtypes, Decimal128
// and Binary values distinguishable, so Decode(Encode(d)) reproduces d
// including extended types. The output never contains a raw newline; JSON
// string escaping guarantees that.
func Encode(doc bson.D) (string, error) {
	data, err := bson.MarshalExtJSON(doc, true, false)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	return string(data), nil
}

// Decode parses one Extended JSON line back into an ordered document.
// Invalid input yields a *MalformedRecordError.
func Decode(line string) (bson.D, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, &MalformedRecordError{Err: fmt.Errorf("empty line")}
	}

	var doc bson.D
	if err := bson.UnmarshalExtJSON([]byte(line), true, &doc); err != nil {
		return nil, &MalformedRecordError{Err: err}
	}

	return doc, nil
}
