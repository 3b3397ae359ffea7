package perception

import (
	"fmt"
	"go-omnicontrol/internal/coords"
	"regexp"
	"sort"
)

type Box = coords.Box

// ElementMap maps detector element ids to their relative bounding boxes.
type ElementMap map[string]Box

// IDs returns the element ids in ascending order, numeric ids compared by value.
func (m ElementMap) IDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if len(a) != len(b) && isDigits(a) && isDigits(b) {
			return len(a) < len(b)
		}
		return a < b
	})
	return ids
}

type Result struct {
	AnnotatedImage string     `json:"annotated_image"`
	Text           string     `json:"text"`
	Elements       ElementMap `json:"elements"`
}

// checkDescribed fails when an element id never appears in the text description.
func (r *Result) checkDescribed() error {
	for _, id := range r.Elements.IDs() {
		re, err := regexp.Compile(`(^|[^0-9A-Za-z_])` + regexp.QuoteMeta(id) + `($|[^0-9A-Za-z_])`)
		if err != nil {
			return err
		}
		if !re.MatchString(r.Text) {
			return fmt.Errorf("element %q is not described in the parser text", id)
		}
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
