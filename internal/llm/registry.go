package llm

import "github.com/rotisserie/eris"

// DefaultProvider is assumed for model configs that leave provider unset.
const DefaultProvider = "openrouter"

// Registry resolves a model config's provider name to a Gateway.
type Registry struct {
	gateways map[string]Gateway
}

// NewRegistry builds a registry from named gateways.
func NewRegistry() *Registry {
	return &Registry{gateways: make(map[string]Gateway)}
}

// Register associates a provider name with a gateway.
func (r *Registry) Register(provider string, g Gateway) {
	r.gateways[provider] = g
}

// ForProvider returns the gateway for the given provider name; the empty
// string resolves to DefaultProvider.
func (r *Registry) ForProvider(provider string) (Gateway, error) {
	if provider == "" {
		provider = DefaultProvider
	}
	g, ok := r.gateways[provider]
	if !ok {
		return nil, eris.Errorf("llm: unknown provider %q", provider)
	}
	return g, nil
}
