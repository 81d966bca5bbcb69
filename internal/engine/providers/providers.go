// Package providers registers the built-in engine backends.
package providers

import (
	"sync"

	"invoicer/internal/config"
	"invoicer/internal/engine"
	"invoicer/internal/engine/claude"
	"invoicer/internal/engine/gemini"
	"invoicer/internal/engine/openai"
)

var once sync.Once

// RegisterAll registers claude, gemini and openai with the engine registry.
// It is safe to call more than once.
func RegisterAll() {
	once.Do(func() {
		engine.RegisterProvider("claude", func(cfg *config.EngineProviderConfig) (engine.Backend, error) {
			return claude.NewBackend(cfg), nil
		})
		engine.RegisterProvider("gemini", func(cfg *config.EngineProviderConfig) (engine.Backend, error) {
			return gemini.NewBackend(cfg), nil
		})
		engine.RegisterProvider("openai", func(cfg *config.EngineProviderConfig) (engine.Backend, error) {
			return openai.NewBackend(cfg), nil
		})
	})
}
