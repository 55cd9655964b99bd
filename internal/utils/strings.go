package utils

import (
	"encoding/json"

	"k8s.io/klog/v2"
)

// ExtractJSON pulls the first balanced JSON object out of free-form LLM
// output. Models occasionally wrap the object in prose or code fences.
func ExtractJSON(content string) string {
	start := -1
	end := -1
	depth := 0

	for i, ch := range content {
		if ch == '{' {
			if depth == 0 {
				start = i
			}
			depth++
		} else if ch == '}' {
			depth--
			if depth == 0 && start != -1 {
				end = i + 1
				break
			}
		}
	}

	if start >= 0 && end > start {
		return content[start:end]
	}

	return content
}

func ToJSON(v any) string {
	jsonData, err := json.Marshal(v)
	if err != nil {
		klog.Errorf("json marshal failed: %v", err)
		return ""
	}
	return string(jsonData)
}

// Truncate bounds a string to max runes before persistence. Every string
// coming back from the LLM goes through this.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
