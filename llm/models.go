package llm

import (
	"fmt"
	"sort"
	"strings"
)

// Model represents an LLM model with its properties
type Model struct {
	Provider     Provider     `json:"provider"`
	Name         string       `json:"name"`
	DisplayName  string       `json:"display_name"`
	Family       ModelFamily  `json:"family"`
	ContextSize  int          `json:"context_size"`
	InputCost    float64      `json:"input_cost"`  // Cost per 1M input tokens in USD
	OutputCost   float64      `json:"output_cost"` // Cost per 1M output tokens in USD
	Capabilities Capabilities `json:"capabilities"`
}

// Provider represents LLM providers
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// ModelFamily represents model families/series
type ModelFamily string

const (
	FamilyGemini20 ModelFamily = "gemini-2.0"
	FamilyGemini15 ModelFamily = "gemini-1.5"
	FamilyGPT4o    ModelFamily = "gpt-4o"
	FamilyGPT4     ModelFamily = "gpt-4"
	FamilyClaude35 ModelFamily = "claude-3.5"
	FamilyClaude3  ModelFamily = "claude-3"
)

// Capabilities represents what a model can do
type Capabilities struct {
	Chat            bool `json:"chat"`
	FunctionCalling bool `json:"function_calling"`
	Vision          bool `json:"vision"`
	JSON            bool `json:"json"`
	Streaming       bool `json:"streaming"`
}

// Gemini Models
const (
	ModelGemini20FlashExp  = "gemini-2.0-flash-exp"
	ModelGemini20Flash     = "gemini-2.0-flash"
	ModelGemini20FlashLite = "gemini-2.0-flash-lite"
	ModelGemini15Pro       = "gemini-1.5-pro"
)

// OpenAI Models
const (
	ModelGPT4o      = "gpt-4o"
	ModelGPT4oMini  = "gpt-4o-mini"
	ModelGPT4Turbo  = "gpt-4-turbo"
	ModelGPT35Turbo = "gpt-3.5-turbo"
)

// Anthropic Models
const (
	ModelClaude35Sonnet = "claude-3-5-sonnet-20241022"
	ModelClaude35Haiku  = "claude-3-5-haiku-20241022"
	ModelClaudeHaiku    = "claude-3-haiku-20240307"
)

var toolModel = Capabilities{Chat: true, FunctionCalling: true, Vision: true, JSON: true, Streaming: true}

// AvailableModels contains all available models with their metadata
var AvailableModels = map[string]Model{
	ModelGemini20FlashExp: {
		Provider: ProviderGemini, Name: ModelGemini20FlashExp, DisplayName: "Gemini 2.0 Flash (experimental)",
		Family: FamilyGemini20, ContextSize: 1048576, InputCost: 0, OutputCost: 0, Capabilities: toolModel,
	},
	ModelGemini20Flash: {
		Provider: ProviderGemini, Name: ModelGemini20Flash, DisplayName: "Gemini 2.0 Flash",
		Family: FamilyGemini20, ContextSize: 1048576, InputCost: 0.10, OutputCost: 0.40, Capabilities: toolModel,
	},
	ModelGemini20FlashLite: {
		Provider: ProviderGemini, Name: ModelGemini20FlashLite, DisplayName: "Gemini 2.0 Flash Lite",
		Family: FamilyGemini20, ContextSize: 1048576, InputCost: 0.075, OutputCost: 0.30, Capabilities: toolModel,
	},
	ModelGemini15Pro: {
		Provider: ProviderGemini, Name: ModelGemini15Pro, DisplayName: "Gemini 1.5 Pro",
		Family: FamilyGemini15, ContextSize: 2097152, InputCost: 1.25, OutputCost: 5.0, Capabilities: toolModel,
	},
	ModelGPT4o: {
		Provider: ProviderOpenAI, Name: ModelGPT4o, DisplayName: "GPT-4o",
		Family: FamilyGPT4o, ContextSize: 128000, InputCost: 5.0, OutputCost: 15.0, Capabilities: toolModel,
	},
	ModelGPT4oMini: {
		Provider: ProviderOpenAI, Name: ModelGPT4oMini, DisplayName: "GPT-4o Mini",
		Family: FamilyGPT4o, ContextSize: 128000, InputCost: 0.15, OutputCost: 0.60, Capabilities: toolModel,
	},
	ModelGPT4Turbo: {
		Provider: ProviderOpenAI, Name: ModelGPT4Turbo, DisplayName: "GPT-4 Turbo",
		Family: FamilyGPT4, ContextSize: 128000, InputCost: 10.0, OutputCost: 30.0, Capabilities: toolModel,
	},
	ModelGPT35Turbo: {
		Provider: ProviderOpenAI, Name: ModelGPT35Turbo, DisplayName: "GPT-3.5 Turbo",
		Family: FamilyGPT4, ContextSize: 16385, InputCost: 0.50, OutputCost: 1.50,
		Capabilities: Capabilities{Chat: true, FunctionCalling: true, JSON: true, Streaming: true},
	},
	ModelClaude35Sonnet: {
		Provider: ProviderAnthropic, Name: ModelClaude35Sonnet, DisplayName: "Claude 3.5 Sonnet",
		Family: FamilyClaude35, ContextSize: 200000, InputCost: 3.0, OutputCost: 15.0, Capabilities: toolModel,
	},
	ModelClaude35Haiku: {
		Provider: ProviderAnthropic, Name: ModelClaude35Haiku, DisplayName: "Claude 3.5 Haiku",
		Family: FamilyClaude35, ContextSize: 200000, InputCost: 0.80, OutputCost: 4.0, Capabilities: toolModel,
	},
	ModelClaudeHaiku: {
		Provider: ProviderAnthropic, Name: ModelClaudeHaiku, DisplayName: "Claude 3 Haiku",
		Family: FamilyClaude3, ContextSize: 200000, InputCost: 0.25, OutputCost: 1.25, Capabilities: toolModel,
	},
}

// GetModel returns model metadata for a given model name
func GetModel(name string) (Model, error) {
	model, exists := AvailableModels[name]
	if !exists {
		return Model{}, fmt.Errorf("unknown model: %s", name)
	}
	return model, nil
}

// GetModelsByProvider returns all models for a given provider, sorted by name
func GetModelsByProvider(provider Provider) []Model {
	var models []Model
	for _, model := range AvailableModels {
		if model.Provider == provider {
			models = append(models, model)
		}
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models
}

// ProviderForModel guesses the provider of a model name. Registered models
// answer from the registry; unregistered names fall back to their prefix so
// newer releases can be used without a registry update.
func ProviderForModel(name string) (Provider, error) {
	if m, ok := AvailableModels[name]; ok {
		return m.Provider, nil
	}
	switch {
	case strings.HasPrefix(name, "gemini-"):
		return ProviderGemini, nil
	case strings.HasPrefix(name, "gpt-"), strings.HasPrefix(name, "o1"), strings.HasPrefix(name, "o3"):
		return ProviderOpenAI, nil
	case strings.HasPrefix(name, "claude-"):
		return ProviderAnthropic, nil
	}
	return "", fmt.Errorf("cannot infer provider for model %q", name)
}

// ValidateModel checks if a model name is valid
func ValidateModel(name string) error {
	_, err := GetModel(name)
	return err
}

// String returns a human-readable representation of the model
func (m Model) String() string {
	return fmt.Sprintf("%s (%s) - %s", m.DisplayName, m.Name, m.Provider)
}

// EstimateCost estimates the cost for given token counts
func (m Model) EstimateCost(inputTokens, outputTokens int) float64 {
	inputCost := (float64(inputTokens) / 1000000) * m.InputCost
	outputCost := (float64(outputTokens) / 1000000) * m.OutputCost
	return inputCost + outputCost
}
