package desktop

import (
	"strings"
)

var keyAliases = map[string]string{
	"control":  "ctrl",
	"del":      "delete",
	"esc":      "escape",
	"return":   "enter",
	"win":      "cmd",
	"windows":  "cmd",
	"super":    "cmd",
	"meta":     "cmd",
	"command":  "cmd",
	"option":   "alt",
	"pgup":     "pageup",
	"pgdn":     "pagedown",
	"ins":      "insert",
	"spacebar": "space",
	"plus":     "+",
}

// KeyName maps common spellings onto robotgo key names.
func KeyName(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	if n, ok := keyAliases[k]; ok {
		return n
	}
	return k
}
