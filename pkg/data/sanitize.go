package data

import (
	"errors"
	"regexp"
	"strings"
)

var fenced = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// SanitizeAnswer pulls the JSON list out of a model reply, dropping markdown fences and any
// prose around it.
func SanitizeAnswer(ans string) (string, error) {
	ans = strings.TrimSpace(ans)
	if m := fenced.FindStringSubmatch(ans); m != nil {
		ans = m[1]
	}
	start := strings.Index(ans, "[")
	end := strings.LastIndex(ans, "]")
	if start == -1 || end < start {
		return "", errors.New("error sanitizing answer: no json list")
	}
	return ans[start : end+1], nil
}
