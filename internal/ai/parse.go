package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrParseFailed = errors.New("parse_failed")

var validCategories = map[string]bool{
	"plastic": true,
	"paper":   true,
	"metal":   true,
	"glass":   true,
	"organic": true,
	"other":   true,
}

// ParseDetectedItems extracts the item array from model output. Models often
// wrap the JSON in a markdown code fence or add prose around it, so this
// slices from the first '[' to the last ']' before unmarshalling.
func ParseDetectedItems(text string) ([]DetectedItem, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON array found", ErrParseFailed)
	}

	var items []DetectedItem
	if err := json.Unmarshal([]byte(text[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}

	out := make([]DetectedItem, 0, len(items))
	for _, it := range items {
		if it.Name == "" {
			continue
		}
		if !validCategories[it.Category] {
			it.Category = "other"
		}
		if it.Confidence < 0 {
			it.Confidence = 0
		}
		if it.Confidence > 1 {
			it.Confidence = 1
		}
		if it.TokenValue < 1 {
			it.TokenValue = 1
		}
		if it.TokenValue > 10 {
			it.TokenValue = 10
		}
		out = append(out, it)
	}
	return out, nil
}
