package player

import (
	"fmt"

	"github.com/jmlt/demoplayer/internal/data"
	"github.com/jmlt/demoplayer/internal/effect"
)

// definitionEffect draws a YAML demo definition with the default hooks.
type definitionEffect struct {
	name string
	demo *data.Demo
}

// DefinitionEffect returns a factory for an effect whose content is d.
// It must be hosted by a Stage.
func DefinitionEffect(name string, d *data.Demo) effect.Factory {
	return func() effect.Effect { return &definitionEffect{name: name, demo: d} }
}

func (e *definitionEffect) Name() string { return e.name }

func (e *definitionEffect) Init(h effect.Host) error {
	s, ok := h.(*Stage)
	if !ok {
		return fmt.Errorf("effect %s: host %T is not a stage", e.name, h)
	}
	s.Apply(e.demo)
	return nil
}
