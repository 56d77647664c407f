package screen

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/llm"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/screen/armor"
	"github.com/suryapa1/adk-simple-mcp-demo-with-armour/screen/audit"
)

// Categories is the fixed threat list sent with every classification.
var Categories = []string{
	"PROMPT_INJECTION",
	"JAILBREAK",
	"SENSITIVE_DATA_LEAK",
	"HARMFUL_CONTENT",
	"MALWARE",
}

// Classifier is the remote content-safety API. *armor.Client implements it.
type Classifier interface {
	Classify(ctx context.Context, req armor.Request) (*armor.Response, error)
}

// CloudConfig configures a Cloud screen.
type CloudConfig struct {
	Classifier Classifier
	// Parent is the resource path sent with each request. Empty lets the
	// classifier fill in its own.
	Parent  string
	Config  Config
	Logger  *zerolog.Logger
	Auditor audit.Auditor
}

// Cloud screens content with a remote classifier and a confidence threshold.
type Cloud struct {
	guard
	classifier Classifier
	parent     string
}

// NewCloud returns a Cloud screen. The config is copied.
func NewCloud(cfg CloudConfig) *Cloud {
	c := &Cloud{
		guard:      newGuard(string(BackendCloud), cfg.Config, cfg.Logger, cfg.Auditor),
		classifier: cfg.Classifier,
		parent:     cfg.Parent,
	}
	c.check = c.classify
	c.inputRefusal = CloudInputRefusal
	c.outputRefusal = CloudOutputRefusal
	c.logger.Info().
		Float64("threshold", cfg.Config.BlockThreshold).
		Bool("check_input", cfg.Config.CheckInput).
		Bool("check_output", cfg.Config.CheckOutput).
		Bool("check_tool_calls", cfg.Config.CheckToolCalls).
		Bool("dry_run", cfg.Config.DryRun).
		Msg("cloud screen initialized")
	return c
}

// Screen classifies content. It never fails: a classifier error yields a
// safe result with Err set.
func (c *Cloud) Screen(ctx context.Context, content string, label ContextLabel) Result {
	return c.screen(ctx, content, label)
}

func (c *Cloud) classify(ctx context.Context, content string, label ContextLabel) Result {
	resp, err := c.classifier.Classify(ctx, armor.Request{
		Parent:     c.parent,
		Content:    content,
		Categories: Categories,
	})
	if err != nil {
		return Result{Safe: true, Label: label, Err: err.Error()}
	}

	res := Result{Label: label}
	if resp != nil {
		for _, d := range resp.Detections {
			if d.Confidence < c.cfg.BlockThreshold {
				continue
			}
			res.Findings = append(res.Findings, Finding{
				Category:    d.Category,
				Confidence:  d.Confidence,
				Description: d.Description,
			})
			if d.Confidence > res.MaxConfidence {
				res.MaxConfidence = d.Confidence
			}
		}
	}
	res.Safe = len(res.Findings) == 0
	return res
}

func (c *Cloud) Name() string { return string(BackendCloud) }

func (c *Cloud) BeforeModel(ctx context.Context, messages []llm.Message) (string, bool) {
	return c.beforeModel(ctx, messages)
}

func (c *Cloud) AfterModel(ctx context.Context, response string) (string, bool) {
	return c.afterModel(ctx, response)
}

func (c *Cloud) BeforeTool(ctx context.Context, tool string, args map[string]any) (map[string]any, bool) {
	return c.beforeTool(ctx, tool, args)
}

// Close releases the classifier when it holds resources.
func (c *Cloud) Close() error {
	if closer, ok := c.classifier.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

var _ Screen = (*Cloud)(nil)
