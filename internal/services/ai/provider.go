package ai

import (
	"context"
	"errors"
)

// ErrAIDisabled is returned when no provider has been configured.
var ErrAIDisabled = errors.New("ai suggestions are disabled")

// PointsSuggester proposes a point value for a todo label.
type PointsSuggester interface {
	// SuggestPoints returns a value in [MinPoints, MaxPoints]. embodyGoal is
	// the user's free-text description of who they want to become.
	SuggestPoints(ctx context.Context, label, embodyGoal string) (int, error)
}

// Disabled is the suggester used when no API key is configured.
type Disabled struct{}

// SuggestPoints always fails with ErrAIDisabled.
func (Disabled) SuggestPoints(context.Context, string, string) (int, error) {
	return 0, ErrAIDisabled
}

// ProviderFactory creates a suggester from string settings.
type ProviderFactory func(config map[string]string) (PointsSuggester, error)

// ProviderRegistry stores available AI providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a registry with the openai provider registered.
func NewProviderRegistry() *ProviderRegistry {
	r := &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
	r.Register("openai", func(config map[string]string) (PointsSuggester, error) {
		if config["api_key"] == "" {
			return Disabled{}, nil
		}
		return NewOpenAIProviderWithLogger(config["api_key"], config["base_url"], config["model"], nil, false), nil
	})
	return r
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (PointsSuggester, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}
	return factory(config)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}
