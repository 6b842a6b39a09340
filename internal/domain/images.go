package domain

import (
	"encoding/json"
	"strings"
)

// MaxProductImages is the maximum number of images a product can carry
const MaxProductImages = 5

// DecodeImages expands a raw image reference into its URL list.
// A JSON array is decoded as-is, any other non-empty value is a single URL.
func DecodeImages(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}

	if strings.HasPrefix(raw, "[") {
		var urls []string
		if err := json.Unmarshal([]byte(raw), &urls); err == nil {
			if urls == nil {
				return []string{}
			}
			return urls
		}
	}

	return []string{raw}
}

// EncodeImages builds the raw image reference stored on a product row.
// With no URLs the prior raw value is kept unchanged.
func EncodeImages(urls []string, prior string) (string, error) {
	if len(urls) == 0 {
		return prior, nil
	}
	if len(urls) > MaxProductImages {
		return "", NewValidationError("images", "a product can have at most 5 images")
	}

	encoded, err := json.Marshal(urls)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
