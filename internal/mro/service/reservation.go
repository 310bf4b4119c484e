package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Rithish-Sripaul/mro-system/internal/mro/entity"
)

// Shortage describes a requirement that exceeds the material's stock.
type Shortage struct {
	MaterialID   string  `json:"material_id"`
	MaterialName string  `json:"material_name"`
	Required     float64 `json:"required"`
	Available    float64 `json:"available"`
}

// aggregateRequirements merges requirements for the same material and sorts
// them by material id. Quantities must be positive.
func aggregateRequirements(reqs []entity.MaterialRequirement) ([]entity.MaterialRequirement, error) {
	totals := make(map[string]float64, len(reqs))
	for _, r := range reqs {
		id := strings.TrimSpace(r.MaterialID)
		if id == "" {
			return nil, fmt.Errorf("%w: material_id is required", ErrInvalidInput)
		}
		if r.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity for material %s must be positive", ErrInvalidInput, id)
		}
		totals[id] += r.Quantity
	}

	out := make([]entity.MaterialRequirement, 0, len(totals))
	for id, q := range totals {
		out = append(out, entity.MaterialRequirement{MaterialID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MaterialID < out[j].MaterialID })
	return out, nil
}

// evaluateSufficiency lists every requirement larger than the material's
// current quantity. Every requirement must have a material in the map.
func evaluateSufficiency(reqs []entity.MaterialRequirement, materials map[string]*entity.RawMaterial) []Shortage {
	var shortages []Shortage
	for _, r := range reqs {
		m := materials[r.MaterialID]
		if r.Quantity > m.CurrentQuantity {
			shortages = append(shortages, Shortage{
				MaterialID:   m.ID,
				MaterialName: m.MaterialName,
				Required:     r.Quantity,
				Available:    m.CurrentQuantity,
			})
		}
	}
	return shortages
}

func materialIDs(reqs []entity.MaterialRequirement) []string {
	ids := make([]string, 0, len(reqs))
	for _, r := range reqs {
		ids = append(ids, r.MaterialID)
	}
	return ids
}

func missingMaterial(ids []string, materials map[string]*entity.RawMaterial) string {
	for _, id := range ids {
		if _, ok := materials[id]; !ok {
			return id
		}
	}
	return ""
}

func describeShortages(shortages []Shortage) string {
	parts := make([]string, 0, len(shortages))
	for _, s := range shortages {
		parts = append(parts, fmt.Sprintf("%s needs %g, has %g", s.MaterialName, s.Required, s.Available))
	}
	return strings.Join(parts, "; ")
}

// unionIDs returns the sorted distinct ids of both lists.
func unionIDs(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
