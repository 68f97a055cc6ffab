package lead

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// EncodingError reports a record that could not be encoded or decoded.
type EncodingError struct {
	Index int
	Err   error
}

func (e *EncodingError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("encode record %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("encode record: %v", e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Encode serializes a record into a self-contained string made of the
// standard Base64 alphabet. The JSON step sorts keys, so equal records always
// encode identically.
func Encode(r Record) (string, error) {
	for k, v := range r {
		if !utf8.ValidString(k) || !utf8.ValidString(v) {
			return "", &EncodingError{Index: -1, Err: fmt.Errorf("field %q is not valid UTF-8", k)}
		}
	}
	raw, err := json.Marshal(map[string]string(r))
	if err != nil {
		return "", &EncodingError{Index: -1, Err: err}
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode is the inverse of Encode.
func Decode(s string) (Record, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode record json: %w", err)
	}
	return Record(m), nil
}

// EncodeAll encodes records in order.
func EncodeAll(records []Record) ([]string, error) {
	out := make([]string, 0, len(records))
	for i, r := range records {
		s, err := Encode(r)
		if err != nil {
			if ee, ok := err.(*EncodingError); ok {
				ee.Index = i
				return nil, ee
			}
			return nil, &EncodingError{Index: i, Err: err}
		}
		out = append(out, s)
	}
	return out, nil
}
