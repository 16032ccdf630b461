// Package effect runs named effects through their init, post-init, run and
// deinit lifecycle. Hooks are optional interfaces; a missing hook falls
// back to the host's default behaviour.
package effect

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

var ErrUnknownEffect = errors.New("effect: unknown effect")

// Host is the default behaviour behind an effect: its own loader and
// dispatcher.
type Host interface {
	ProcessAnimation()
	DrawAnimation(t float64)
	DeinitAnimation()
}

type Effect interface {
	Name() string
}

type Initializer interface {
	Init(h Host) error
}

type PostInitializer interface {
	PostInit(h Host) error
}

type Runner interface {
	Run(h Host, t float64)
}

type Deinitializer interface {
	Deinit(h Host)
}

// Factory constructs a fresh effect instance.
type Factory func() Effect

// HostFactory gives each initialised effect its own host.
type HostFactory func(name string) Host

type plain string

func (p plain) Name() string { return string(p) }

// Plain is a factory for an effect with no hooks at all.
func Plain(name string) Factory {
	return func() Effect { return plain(name) }
}

type instance struct {
	eff  Effect
	host Host
}

type Registry struct {
	factories map[string]Factory
	running   map[string]*instance
	order     []string
	newHost   HostFactory
	log       *zap.Logger
}

func NewRegistry(newHost HostFactory, log *zap.Logger) *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		running:   make(map[string]*instance),
		newHost:   newHost,
		log:       log,
	}
}

// Register binds name to f. Registering a name again replaces the factory.
func (r *Registry) Register(name string, f Factory) {
	if _, ok := r.factories[name]; ok {
		r.log.Debug("effect factory replaced", zap.String("effect", name))
	}
	r.factories[name] = f
}

func (r *Registry) Has(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// Init constructs the effect and runs its init and post-init hooks.
func (r *Registry) Init(name string) error {
	f, ok := r.factories[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEffect, name)
	}
	if _, ok := r.running[name]; ok {
		r.log.Warn("effect already initialised", zap.String("effect", name))
		return nil
	}

	inst := &instance{eff: f(), host: r.newHost(name)}
	if h, ok := inst.eff.(Initializer); ok {
		if err := h.Init(inst.host); err != nil {
			return fmt.Errorf("init effect %s: %w", name, err)
		}
	}
	if h, ok := inst.eff.(PostInitializer); ok {
		if err := h.PostInit(inst.host); err != nil {
			return fmt.Errorf("post-init effect %s: %w", name, err)
		}
	} else {
		inst.host.ProcessAnimation()
	}

	r.running[name] = inst
	r.order = append(r.order, name)
	r.log.Debug("effect initialised", zap.String("effect", name))
	return nil
}

// Run draws one frame of the effect at demo time t.
func (r *Registry) Run(name string, t float64) {
	inst, ok := r.running[name]
	if !ok {
		r.log.Warn("effect not initialised", zap.String("effect", name))
		return
	}
	if h, ok := inst.eff.(Runner); ok {
		h.Run(inst.host, t)
		return
	}
	inst.host.DrawAnimation(t)
}

// Deinit tears the effect down and forgets the instance.
func (r *Registry) Deinit(name string) {
	inst, ok := r.running[name]
	if !ok {
		return
	}
	if h, ok := inst.eff.(Deinitializer); ok {
		h.Deinit(inst.host)
	} else {
		inst.host.DeinitAnimation()
	}
	delete(r.running, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.log.Debug("effect deinitialised", zap.String("effect", name))
}

// RunAll runs every initialised effect in init order.
func (r *Registry) RunAll(t float64) {
	for _, name := range r.order {
		r.Run(name, t)
	}
}

// DeinitAll tears effects down in reverse init order.
func (r *Registry) DeinitAll() {
	for i := len(r.order) - 1; i >= 0; i-- {
		r.Deinit(r.order[i])
	}
}

// Names returns registered effect names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.factories))
	for n := range r.factories {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Running returns initialised effects in init order.
func (r *Registry) Running() []string {
	return append([]string(nil), r.order...)
}
