// Package imageset converts a product's image list to and from the single
// text column it is persisted in.
//
// The canonical stored form is a JSON array of URLs. Older rows may hold NULL
// or a single bare URL; decoding accepts all of them and never fails.
package imageset

import (
	"database/sql"
	"encoding/json"
	"strings"
)

// Kind tags how a raw value was interpreted by Inspect.
type Kind int

const (
	// KindEmpty is a nil, NULL, or blank value.
	KindEmpty Kind = iota
	// KindSequence is an in-memory list or a JSON array.
	KindSequence
	// KindLegacyScalar is a bare string stored before the array form existed.
	KindLegacyScalar
	// KindUnparseable is text that looked like a JSON array but did not parse.
	// It is kept as a single-element list, same as a legacy scalar.
	KindUnparseable
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindSequence:
		return "sequence"
	case KindLegacyScalar:
		return "legacy_scalar"
	case KindUnparseable:
		return "unparseable"
	default:
		return "unknown"
	}
}

// Decoded is the tagged result of Inspect. Images never contains empty strings.
type Decoded struct {
	Kind   Kind
	Images []string
}

// Inspect interprets raw as an image list. Supported inputs are nil, string,
// []byte, *string, sql.NullString, []string and []any; anything else is empty.
func Inspect(raw any) Decoded {
	switch v := raw.(type) {
	case nil:
		return empty()
	case string:
		return inspectText(v)
	case []byte:
		return inspectText(string(v))
	case *string:
		if v == nil {
			return empty()
		}
		return inspectText(*v)
	case sql.NullString:
		if !v.Valid {
			return empty()
		}
		return inspectText(v.String)
	case []string:
		return sequence(compact(v))
	case []any:
		return sequence(compactAny(v))
	default:
		return empty()
	}
}

// Decode returns the image list held by raw. See Inspect.
func Decode(raw any) []string {
	return Inspect(raw).Images
}

// Encode returns the canonical JSON array form of images. A nil or empty
// slice encodes as "[]". Invalid UTF-8 is replaced with U+FFFD, so only
// valid UTF-8 URLs round-trip; BlobStore never produces any other kind.
func Encode(images []string) string {
	if images == nil {
		images = []string{}
	}
	data, err := json.Marshal(images)
	if err != nil {
		// []string always marshals.
		return "[]"
	}
	return string(data)
}

func inspectText(text string) Decoded {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return empty()
	}

	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		if items, ok := parsed.([]any); ok {
			return sequence(compactAny(items))
		}
		// Valid JSON that is not an array, e.g. a quoted string or a number.
		return Decoded{Kind: KindLegacyScalar, Images: []string{text}}
	}

	if strings.HasPrefix(trimmed, "[") {
		return Decoded{Kind: KindUnparseable, Images: []string{text}}
	}
	return Decoded{Kind: KindLegacyScalar, Images: []string{text}}
}

func empty() Decoded {
	return Decoded{Kind: KindEmpty, Images: []string{}}
}

func sequence(images []string) Decoded {
	return Decoded{Kind: KindSequence, Images: images}
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value != "" {
			out = append(out, value)
		}
	}
	return out
}

// compactAny keeps the non-empty strings of a decoded JSON array.
func compactAny(values []any) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if s, ok := value.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
