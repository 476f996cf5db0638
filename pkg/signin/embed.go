package signin

import (
	"embed"
	"fmt"
	"sync"

	"github.com/goliatone/go-signin/pkg/model"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

//go:embed signin.yaml
var defaultFormSpec []byte

var (
	defaultSpecOnce sync.Once
	defaultSpec     model.FormSpec
	defaultSpecErr  error
)

// DefaultFormSpec returns the built-in sign-in form spec.
func DefaultFormSpec() (model.FormSpec, error) {
	defaultSpecOnce.Do(func() {
		defaultSpec, defaultSpecErr = model.ParseFormSpec(defaultFormSpec)
	})
	if defaultSpecErr != nil {
		return model.FormSpec{}, fmt.Errorf("signin: default form spec: %w", defaultSpecErr)
	}
	spec := defaultSpec
	spec.Fields = make([]model.FieldSpec, len(defaultSpec.Fields))
	for i, f := range defaultSpec.Fields {
		spec.Fields[i] = f.Clone()
	}
	return spec, nil
}
