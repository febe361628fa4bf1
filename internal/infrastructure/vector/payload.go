// Package vector holds what the index adapters share.
package vector

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/kirillkom/matercare-assistant/internal/core/domain"
)

// MetadataFromPayload maps an index payload onto CandidateMetadata. Keys
// without a named field are kept in Extra.
func MetadataFromPayload(payload map[string]any) domain.CandidateMetadata {
	var meta domain.CandidateMetadata
	for key, value := range payload {
		switch key {
		case "url":
			meta.URL = stringValue(value)
		case "source":
			meta.Source = stringValue(value)
		case "section":
			meta.Section = stringValue(value)
		case "doc_id":
			meta.DocID = stringValue(value)
		case "text":
			meta.Text = stringValue(value)
		case "start_char":
			meta.StartChar = intPointer(value)
		case "end_char":
			meta.EndChar = intPointer(value)
		case "char_len":
			if n := intPointer(value); n != nil {
				meta.CharLen = *n
			}
		default:
			if meta.Extra == nil {
				meta.Extra = make(map[string]any)
			}
			meta.Extra[key] = value
		}
	}
	return meta
}

// IDString renders a point ID that may arrive as a string or a number.
func IDString(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprintf("%v", s)
	}
}

func intPointer(v any) *int {
	var n int
	switch x := v.(type) {
	case float64:
		n = int(x)
	case int:
		n = x
	case int64:
		n = int(x)
	case json.Number:
		parsed, err := x.Int64()
		if err != nil {
			return nil
		}
		n = int(parsed)
	case string:
		parsed, err := strconv.Atoi(x)
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	return &n
}
