package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/soundbench/soundbench/internal/core/domain"
)

// extractTagValue returns the content between <tag> and </tag>, trimmed.
// The second return is false when the tag is absent.
func extractTagValue(text, tag string) (string, bool) {
	pattern := regexp.MustCompile(`(?s)<` + regexp.QuoteMeta(tag) + `>(.*?)</` + regexp.QuoteMeta(tag) + `>`)
	match := pattern.FindStringSubmatch(text)
	if match == nil {
		return "", false
	}
	return strings.TrimSpace(match[1]), true
}

// extractTagList returns the non-empty lines inside <tag>. A value of "none"
// (the classifier's no-match marker) yields an empty list.
func extractTagList(text, tag string) []string {
	value, ok := extractTagValue(text, tag)
	if !ok || strings.EqualFold(value, "none") {
		return nil
	}

	var items []string
	for _, line := range strings.Split(value, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			items = append(items, line)
		}
	}
	return items
}

// parseManualInfo extracts the manual classification JSON from <json_output>
// tags in an LLM response. All values are lowercased so query-time payload
// filters match regardless of how the classifier cased them.
func parseManualInfo(text string) (domain.ManualInfo, error) {
	value, ok := extractTagValue(text, "json_output")
	if !ok {
		return domain.ManualInfo{}, fmt.Errorf("no json_output tag in response")
	}

	var manual domain.ManualInfo
	if err := json.Unmarshal([]byte(value), &manual); err != nil {
		return domain.ManualInfo{}, fmt.Errorf("parse manual classification: %w", err)
	}

	manual.Brand = strings.ToLower(manual.Brand)
	manual.Model = strings.ToLower(manual.Model)
	manual.ProductType = strings.ToLower(manual.ProductType)
	manual.Keywords = lowerAll(manual.Keywords)
	return manual, nil
}

// lowerAll lowercases every element, preserving order.
func lowerAll(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}
