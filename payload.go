package markmon

import (
	"errors"
	"mime"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrInvalidPayload is returned when a request body cannot be decoded into a
// key-value structure by any of the accepted encodings.
var ErrInvalidPayload = errors.New("invalid payload")

// envelopeKeys are checked in priority order when unwrapping.
var envelopeKeys = []string{"state", "payload", "data"}

// DecodePayload turns a raw request body into a loosely-typed map. The
// feeder has shipped several encodings over time, so decoding is tried in
// order:
//
//  1. body is a JSON object
//  2. form-encoded body with more than one field: the field map as-is
//  3. form-encoded body with exactly one field whose value starts with "{":
//     that value parsed as JSON
//  4. trimmed body bracketed by "{" and "}": parsed as JSON
//
// Anything else fails with ErrInvalidPayload.
func DecodePayload(contentType string, body []byte) (map[string]any, error) {
	if obj, ok := parseJSONObject(body); ok {
		return obj, nil
	}

	if isFormContentType(contentType) {
		if values, err := url.ParseQuery(string(body)); err == nil && len(values) > 0 {
			if len(values) > 1 {
				fields := make(map[string]any, len(values))
				for key, vs := range values {
					if len(vs) > 0 {
						fields[key] = vs[0]
					}
				}
				return fields, nil
			}
			for _, vs := range values {
				if len(vs) > 0 && strings.HasPrefix(strings.TrimSpace(vs[0]), "{") {
					if obj, ok := parseJSONObject([]byte(vs[0])); ok {
						return obj, nil
					}
				}
			}
		}
	}

	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		if obj, ok := parseJSONObject([]byte(trimmed)); ok {
			return obj, nil
		}
	}

	return nil, ErrInvalidPayload
}

// UnwrapEnvelope strips one generic envelope level: if the map carries a
// state/payload/data key whose value is itself an object, that nested object
// becomes the working payload. Never recursive.
func UnwrapEnvelope(data map[string]any) map[string]any {
	for _, key := range envelopeKeys {
		if nested, ok := data[key].(map[string]any); ok {
			return nested
		}
	}
	return data
}

func parseJSONObject(b []byte) (map[string]any, bool) {
	if !gjson.ValidBytes(b) {
		return nil, false
	}
	parsed := gjson.ParseBytes(b)
	if !parsed.IsObject() {
		return nil, false
	}
	obj, ok := parsed.Value().(map[string]any)
	return obj, ok
}

func isFormContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded"
}
