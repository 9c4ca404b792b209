package compose

import (
	"github.com/kbukum/gfnkit/validation"
)

// Pipeline is a YAML-defined merge sequence.
type Pipeline struct {
	// Name is the pipeline identifier.
	Name string `yaml:"name" validate:"required"`
	// Description is free text.
	Description string `yaml:"description,omitempty"`
	// Includes lists pipelines whose stages come before this pipeline's own,
	// in order.
	Includes []string `yaml:"includes,omitempty" validate:"unique,dive,required"`
	// Stages are this pipeline's own stages.
	Stages []StageDef `yaml:"stages" validate:"dive"`
}

// StageDef is one stage of a pipeline.
type StageDef struct {
	// Scope is the name prefix for the stage's nodes; blank means
	// GFN-BLK-{position}.
	Scope string `yaml:"scope,omitempty"`
	// Archive is the store key of the stage's graph function.
	Archive string `yaml:"archive" validate:"required"`
}

// Validate checks the pipeline definition. A pipeline needs stages of its
// own or at least one include.
func (p *Pipeline) Validate() error {
	if err := validation.Validate(p); err != nil {
		return err
	}
	v := validation.New().Custom(len(p.Stages) > 0 || len(p.Includes) > 0,
		"stages", "a pipeline needs at least one stage or include")
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
