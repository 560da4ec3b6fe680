package ui

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/vanderheijden86/nodetree/pkg/model"
)

// SuggestID returns the node id closest to query by edit distance, for a
// "did you mean" hint. Ties go to the first id in pre-order. Nothing is
// suggested when the best candidate differs in more than half its length.
func SuggestID(root *model.Node, query string) (string, bool) {
	query = strings.TrimSpace(query)
	if query == "" || root == nil {
		return "", false
	}

	best, bestDist := "", -1
	model.Walk(root, func(n *model.Node, _ int) {
		d := levenshtein.ComputeDistance(strings.ToUpper(query), strings.ToUpper(n.ID))
		if bestDist < 0 || d < bestDist {
			best, bestDist = n.ID, d
		}
	})

	limit := max(len(query), len(best)) / 2
	if limit < 1 {
		limit = 1
	}
	if bestDist > limit {
		return "", false
	}
	return best, true
}

// resolveID maps user input onto a node id. "start" in any case means the
// root.
func resolveID(root *model.Node, query string) (string, bool) {
	query = strings.TrimSpace(query)
	if strings.EqualFold(query, model.RootID) {
		return model.RootID, true
	}
	if model.FindByID(root, query) != nil {
		return query, true
	}
	return "", false
}
