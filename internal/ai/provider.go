// Package ai calls the hosted language models a pharmacy can configure.
package ai

import (
	"strings"
)

type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderMistral   Provider = "mistral"
)

const (
	TierEco        = "eco"
	TierPerformant = "performant"
)

var ecoModels = map[Provider]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-sonnet-4-5-20250929",
	ProviderMistral:   "mistral-small-latest",
}

var performantModels = map[Provider]string{
	ProviderOpenAI:    "gpt-4o",
	ProviderAnthropic: "claude-opus-4-20250514",
	ProviderMistral:   "mistral-large-latest",
}

// NormalizeProvider maps the free-text setting to a provider. "OpenIA" is a
// spelling found in existing settings files.
func NormalizeProvider(raw string) (Provider, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai", "openia":
		return ProviderOpenAI, true
	case "anthropic":
		return ProviderAnthropic, true
	case "mistral":
		return ProviderMistral, true
	default:
		return "", false
	}
}

// ResolveModel accepts a tier name, an explicit model id, or nothing (eco).
func ResolveModel(p Provider, setting string) string {
	key := strings.ToLower(strings.TrimSpace(setting))
	switch key {
	case TierEco, "":
		return ecoModels[p]
	case TierPerformant:
		return performantModels[p]
	default:
		return strings.TrimSpace(setting)
	}
}
