package registry

import (
	"github.com/daysim/daysim/pkg/choice"
	"github.com/daysim/daysim/pkg/defaults/models"
)

// NewDefault returns a registry with the reference model bound to every ID.
// Callers may Register over individual IDs before resolving.
func NewDefault(parcels []int) (*Registry, error) {
	r := New()
	bindings := models.Bindings(parcels)
	for _, id := range choice.AllIDs() {
		if err := r.Register(id, bindings[id]); err != nil {
			return nil, err
		}
	}
	return r, nil
}
