package models

import (
	"context"
	"fmt"
	"sort"
)

// Router resolves provider names to registered providers. The default name is
// fixed at construction so tests can build routers with their own defaults.
type Router struct {
	providers   map[string]Provider
	defaultName string
}

// NewRouter registers providers under their Name. defaultName must be one of
// them.
func NewRouter(defaultName string, providers ...Provider) (*Router, error) {
	r := &Router{
		providers:   make(map[string]Provider, len(providers)),
		defaultName: defaultName,
	}
	for _, p := range providers {
		if p == nil {
			continue
		}
		if _, dup := r.providers[p.Name()]; dup {
			return nil, fmt.Errorf("provider %s registered twice", p.Name())
		}
		r.providers[p.Name()] = p
	}
	if _, ok := r.providers[defaultName]; !ok {
		return nil, fmt.Errorf("default provider: %w", &UnsupportedProviderError{Name: defaultName})
	}
	return r, nil
}

// DefaultName returns the configured default provider name.
func (r *Router) DefaultName() string {
	return r.defaultName
}

// Get returns the provider registered under name, or the default provider
// when name is empty.
func (r *Router) Get(name string) (Provider, error) {
	if name == "" {
		name = r.defaultName
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, &UnsupportedProviderError{Name: name}
	}
	return p, nil
}

// Names lists the registered providers in lexical order.
func (r *Router) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Router) SendRequest(ctx context.Context, name string, messages []Message, params GenerationParams) (ProviderResponse, error) {
	p, err := r.Get(name)
	if err != nil {
		return ProviderResponse{}, err
	}
	return p.SendRequest(ctx, messages, params)
}

func (r *Router) ProcessFile(ctx context.Context, name, path string) (string, bool, error) {
	p, err := r.Get(name)
	if err != nil {
		return "", false, err
	}
	return p.ProcessFile(ctx, path)
}
