// Package validation provides input validation for gfnkit values.
//
// It supports struct tag validation (using the validator library) for
// declarative inputs such as composition manifests and configuration, and
// programmatic validation with error collection for graph function
// endpoints.
//
// # Struct Tag Validation
//
//	type StageDef struct {
//	    Archive string `yaml:"archive" validate:"required"`
//	}
//	err := validation.Validate(def)
//
// # Programmatic Validation
//
//	v := validation.New()
//	v.Required("name", name).Unique("inputs", inputs)
//	err := v.Validate()
package validation
