// Package screen implements content screens that guard agent model and tool
// calls. A screen plugs into core.ChatAgent as a core.Plugin: it classifies
// the latest user message, the generated response and optionally tool
// arguments, and substitutes a fixed refusal when content is unsafe.
//
// Screens fail open. A classifier or judge outage is logged and counted,
// and the content is allowed.
package screen

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/agent/core"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/llm"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/screen/audit"
)

// ContextLabel says where screened content came from.
type ContextLabel string

const (
	LabelUserInput   ContextLabel = "user_input"
	LabelAgentOutput ContextLabel = "agent_output"
	LabelToolInput   ContextLabel = "tool_input"
)

// Request is one piece of content to screen.
type Request struct {
	Content string
	Label   ContextLabel
}

// Finding is a detection at or above the blocking threshold.
type Finding struct {
	Category    string  `json:"category"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
}

// Result is the outcome of screening one Request.
type Result struct {
	Safe          bool
	Findings      []Finding
	MaxConfidence float64
	Label         ContextLabel
	// Reason and ConfidenceLabel are set by the judge screen.
	Reason          string
	ConfidenceLabel string
	// Err is set when the backend failed and the result was allowed.
	Err string
}

// Categories returns the finding categories in order.
func (r Result) Categories() []string {
	out := make([]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		out = append(out, f.Category)
	}
	return out
}

// Config selects which hooks screen and how verdicts are applied.
type Config struct {
	CheckInput     bool    `yaml:"check_input"`
	CheckOutput    bool    `yaml:"check_output"`
	CheckToolCalls bool    `yaml:"check_tool_calls"`
	DryRun         bool    `yaml:"dry_run"`
	BlockThreshold float64 `yaml:"block_threshold"`
}

// DefaultConfig screens input and output, blocking at confidence 0.7.
func DefaultConfig() Config {
	return Config{CheckInput: true, CheckOutput: true, BlockThreshold: 0.7}
}

// Validate reports an out of range threshold.
func (c Config) Validate() error {
	if c.BlockThreshold < 0 || c.BlockThreshold > 1 {
		return fmt.Errorf("block_threshold %v outside [0,1]", c.BlockThreshold)
	}
	return nil
}

// Fixed replies. They never include the offending content or the reason.
const (
	CloudInputRefusal  = "I apologize, but I cannot process that request as it may contain unsafe content. Please rephrase your question or contact our support team for assistance."
	CloudOutputRefusal = "I apologize, but I cannot provide that information at this time. Please contact our support team for further assistance."
	JudgeInputRefusal  = "I apologize, but I cannot process that request. Please rephrase your question or contact support."
	JudgeOutputRefusal = "I apologize, but I cannot provide that information. Please contact our support team."
	ToolBlockedError   = "Tool call blocked by security policy"
)

// Screen is a content screen usable as an agent plugin.
type Screen interface {
	core.Plugin
	Name() string
	Close() error
}

// Backend names a Screen implementation.
type Backend string

const (
	BackendNone  Backend = "none"
	BackendCloud Backend = "cloud"
	BackendJudge Backend = "judge"
)

// Options configures New.
type Options struct {
	Backend Backend
	Config  Config
	// Classifier and Parent are used by the cloud backend.
	Classifier Classifier
	Parent     string
	// Model is used by the judge backend.
	Model   llm.Client
	Logger  *zerolog.Logger
	Auditor audit.Auditor
}

// New builds the screen selected by opts.Backend. An empty backend means none.
func New(opts Options) (Screen, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	switch opts.Backend {
	case "", BackendNone:
		return Noop{}, nil
	case BackendCloud:
		if opts.Classifier == nil {
			return nil, fmt.Errorf("screen: cloud backend needs a classifier")
		}
		return NewCloud(CloudConfig{
			Classifier: opts.Classifier,
			Parent:     opts.Parent,
			Config:     opts.Config,
			Logger:     &logger,
			Auditor:    opts.Auditor,
		}), nil
	case BackendJudge:
		if opts.Model == nil {
			return nil, fmt.Errorf("screen: judge backend needs a model client")
		}
		return NewJudge(JudgeConfig{
			Model:   opts.Model,
			Config:  opts.Config,
			Logger:  &logger,
			Auditor: opts.Auditor,
		}), nil
	default:
		return nil, fmt.Errorf("screen: unknown backend %q", opts.Backend)
	}
}
