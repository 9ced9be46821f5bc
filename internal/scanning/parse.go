package scanning

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// stripCodeFences removes markdown code block wrapping from a model response
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```JSON")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// parseItemsJSON parses a model response holding a JSON array of items
func parseItemsJSON(text string) (*Detection, error) {
	text = stripCodeFences(text)

	// Find the JSON array boundaries - look for first [ and last ]
	startIdx := strings.Index(text, "[")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	endIdx := strings.LastIndex(text, "]")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON array in response")
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(text[startIdx:endIdx+1]), &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	detection := &Detection{}
	for i, msg := range raw {
		record, reason := validateRecord(msg)
		if reason != "" {
			detection.Rejected = append(detection.Rejected, Rejection{Index: i, Reason: reason})
			continue
		}
		detection.Records = append(detection.Records, *record)
	}

	return detection, nil
}

// validateRecord checks one array element against the item schema.
// It returns either the record or a rejection reason.
func validateRecord(msg json.RawMessage) (*ItemRecord, string) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(msg, &fields); err != nil || fields == nil {
		return nil, "not an object"
	}

	name := stringField(fields, "name")
	if name == "" {
		return nil, "missing name"
	}
	category := stringField(fields, "category")
	if category == "" {
		return nil, "missing category"
	}

	entry := &ItemRecord{
		Name:     name,
		Category: category,
		Unit:     stringField(fields, "unit"),
	}
	if q, ok := numberField(fields, "quantity"); ok && q > 0 {
		entry.Quantity = &q
	}
	if c, ok := numberField(fields, "confidence"); ok {
		entry.Confidence = &c
	}
	return entry, ""
}

func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

// numberField reads a JSON number, or a string holding one
func numberField(fields map[string]json.RawMessage, key string) (float64, bool) {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
