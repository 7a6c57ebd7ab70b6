package cartstore

import (
	"encoding/json"

	"storefront/internal/models"
)

// Store is the durable mirror of the in-memory cart. It is a passive
// follower: the cart manager owns the data and calls Save after every
// mutation. Load must never fail hydration; missing or corrupt data reads
// as an empty cart. Single-writer, no locking; concurrent writers to the
// same profile are an accepted limitation.
type Store interface {
	Load() []models.CartLine
	Save(lines []models.CartLine) error
	Clear() error
}

// decodeLines parses a stored cart and drops anything that violates the
// cart invariants: lines with quantity < 1 and duplicate product ids
// (first occurrence wins). Unparseable data reads as empty.
func decodeLines(data []byte) []models.CartLine {
	var raw []models.CartLine
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	seen := make(map[int64]bool, len(raw))
	lines := make([]models.CartLine, 0, len(raw))
	for _, l := range raw {
		if l.Quantity < 1 || l.ProductID == 0 || seen[l.ProductID] {
			continue
		}
		if l.UnitPrice.IsNegative() {
			continue
		}
		seen[l.ProductID] = true
		lines = append(lines, l)
	}
	return lines
}

func encodeLines(lines []models.CartLine) ([]byte, error) {
	if lines == nil {
		lines = []models.CartLine{}
	}
	return json.Marshal(lines)
}
