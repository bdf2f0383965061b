package observer

import (
	"github.com/NotCoffee418/rainforest_emu2/pkg/records"
	"github.com/rs/zerolog"
)

func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		observers: make(map[records.Tag]map[Observer]struct{}),
		logger:    logger,
	}
}

// Register adds obs to tag. Registering the same observer twice has no effect.
// Observers that cannot be used as map keys are logged and ignored.
func (r *Registry) Register(tag records.Tag, obs Observer) {
	if !hashable(obs) {
		r.logger.Warn().Str("tag", string(tag)).Type("observer", obs).Msg("ignoring non-comparable observer")
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.observers[tag]
	if !ok {
		set = make(map[Observer]struct{})
		r.observers[tag] = set
	}
	set[obs] = struct{}{}
}

// RegisterAll adds obs to every known tag.
func (r *Registry) RegisterAll(obs Observer) {
	for _, tag := range records.Tags() {
		r.Register(tag, obs)
	}
}

// Remove drops obs from tag. Unknown pairs are ignored.
func (r *Registry) Remove(tag records.Tag, obs Observer) {
	if !hashable(obs) {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.observers[tag]
	if !ok {
		return
	}
	delete(set, obs)
	if len(set) == 0 {
		delete(r.observers, tag)
	}
}

// RemoveAll drops obs from every tag.
func (r *Registry) RemoveAll(obs Observer) {
	for _, tag := range records.Tags() {
		r.Remove(tag, obs)
	}
}

// hashable reports whether obs can be a map key without panicking. A struct
// value holding a slice, map or func cannot.
func hashable(obs Observer) (ok bool) {
	defer func() { ok = recover() == nil }()
	_ = map[Observer]struct{}{obs: {}}
	return true
}

func (r *Registry) Count(tag records.Tag) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.observers[tag])
}

// Notify calls every observer of rec's tag. Observers run without the lock
// held, so they may register or remove observers themselves.
func (r *Registry) Notify(rec records.Record) int {
	r.mu.RLock()
	set := r.observers[rec.Tag()]
	targets := make([]Observer, 0, len(set))
	for obs := range set {
		targets = append(targets, obs)
	}
	r.mu.RUnlock()

	for _, obs := range targets {
		r.call(obs, rec)
	}
	return len(targets)
}

func (r *Registry) call(obs Observer, rec records.Record) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error().
				Interface("panic", p).
				Str("tag", string(rec.Tag())).
				Msg("observer panicked")
		}
	}()
	obs.Observe(rec)
}
