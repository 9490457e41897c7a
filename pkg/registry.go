package bumpkit

// Registry maps platform identifiers to updaters. Registration order is
// preserved and drives detection order.
type Registry struct {
	order    []string
	updaters map[string]Updater
}

// NewRegistry creates a registry holding the given updaters in order.
func NewRegistry(updaters ...Updater) *Registry {
	r := &Registry{updaters: make(map[string]Updater, len(updaters))}
	for _, u := range updaters {
		r.Register(u)
	}
	return r
}

// DefaultRegistry registers every built-in ecosystem. Custom targets are not
// registered; they are built per target at bump time.
func DefaultRegistry(files FileAccess) *Registry {
	return NewRegistry(
		NewNodeUpdater(files),
		NewPythonUpdater(files),
		NewRustUpdater(files),
		NewGoUpdater(files),
		NewDockerUpdater(files),
		NewPHPUpdater(files),
		NewDenoUpdater(files),
	)
}

// Register adds an updater under its platform. Registering a platform twice
// replaces the first instance but keeps its position.
func (r *Registry) Register(u Updater) {
	name := u.Platform()
	if _, ok := r.updaters[name]; !ok {
		r.order = append(r.order, name)
	}
	r.updaters[name] = u
}

// Get returns the updater for platform.
func (r *Registry) Get(platform string) (Updater, bool) {
	u, ok := r.updaters[platform]
	return u, ok
}

// All returns every updater in registration order.
func (r *Registry) All() []Updater {
	result := make([]Updater, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.updaters[name])
	}
	return result
}

// Platforms returns the registered platform names in registration order.
func (r *Registry) Platforms() []string {
	return append([]string(nil), r.order...)
}
