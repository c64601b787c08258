package halo

import (
	"fmt"
	"strings"

	"github.com/harunnryd/halo/pkg/llm"
)

type ClientFactory func(cfg Config) (llm.Client, error)

type ProviderRegistry struct {
	clients map[string]ClientFactory
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		clients: make(map[string]ClientFactory),
	}
}

func (r *ProviderRegistry) Register(name string, factory ClientFactory) {
	r.clients[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) Build(provider string, cfg Config) (llm.Client, error) {
	fn := r.clients[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("model provider not registered: %s", provider)
	}
	return fn(cfg)
}
