package dialogue

import (
	"maps"
	"slices"

	errs "github.com/matzehuels/storyline/pkg/errors"
)

// Registry maps speaker names to portrait resource paths. It is supplied
// from configuration; the graph treats speaker values as opaque unless
// strict speaker checking is enabled.
type Registry map[string]string

// DefaultRegistry returns the built-in cast used when no configuration
// provides one.
func DefaultRegistry() Registry {
	return Registry{
		"stan":   "res://characters/Stan/portrait.png",
		"dipper": "res://characters/Dipper/portrait.png",
		"mabel":  "res://characters/Mabel/portrait.png",
	}
}

// Names returns the registered speaker names in sorted order.
func (r Registry) Names() []string {
	return slices.Sorted(maps.Keys(r))
}

// Has reports whether name is registered.
func (r Registry) Has(name string) bool {
	_, ok := r[name]
	return ok
}

// Portrait returns the resource path registered for name.
func (r Registry) Portrait(name string) (string, bool) {
	p, ok := r[name]
	return p, ok
}

// Validate checks every registered name.
func (r Registry) Validate() error {
	for _, name := range r.Names() {
		if err := errs.ValidateSpeakerName(name); err != nil {
			return err
		}
	}
	return nil
}
