package observer

import (
	"sync"

	"github.com/NotCoffee418/rainforest_emu2/pkg/records"
	"github.com/rs/zerolog"
)

// Observer receives decoded records for the tags it is registered on.
//
// Observers are kept in sets, so the value registered must be comparable and
// is also the handle passed to Remove. Use pointer types such as *Func; a struct
// value with a slice, map or func field is rejected by Register.
type Observer interface {
	Observe(rec records.Record)
}

// Func adapts a plain function. Keep the returned pointer to Remove it later.
type Func struct {
	fn func(records.Record)
}

func NewFunc(fn func(records.Record)) *Func {
	return &Func{fn: fn}
}

func (f *Func) Observe(rec records.Record) {
	f.fn(rec)
}

// Registry maps each tag to a set of observers.
type Registry struct {
	mu        sync.RWMutex
	observers map[records.Tag]map[Observer]struct{}
	logger    zerolog.Logger
}
