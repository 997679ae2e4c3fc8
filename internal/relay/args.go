package relay

import (
	"strings"
)

// DefaultModel is used when neither the request nor the config names one.
const DefaultModel = "gpt-5 medium"

// InvocationOptions are the codex CLI knobs a caller may set per request.
type InvocationOptions struct {
	Model            string
	Images           []string
	ApprovalPolicy   string
	Sandbox          bool
	WorkingDirectory string
	BaseInstructions string
}

// SplitModel separates a model string such as "gpt-5 medium" into the model
// id and an optional reasoning effort.
func SplitModel(model string) (id, effort string) {
	fields := strings.Fields(model)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], fields[1]
	}
}

// BuildArgs assembles `codex exec` arguments. The framed prompt is always
// the final positional argument.
func BuildArgs(opts InvocationOptions, defaultModel, prompt string) []string {
	args := []string{"exec"}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	if id, effort := SplitModel(model); id != "" {
		args = append(args, "-m", id)
		if effort != "" {
			args = append(args, "-c", "model_reasoning_effort="+effort)
		}
	}

	var images []string
	for _, img := range opts.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}
	if len(images) > 0 {
		args = append(args, "--image", strings.Join(images, ","))
	}
	if opts.ApprovalPolicy != "" {
		args = append(args, "--approval-policy", opts.ApprovalPolicy)
	}
	if opts.Sandbox {
		args = append(args, "--sandbox")
	}
	if opts.WorkingDirectory != "" {
		args = append(args, "--working-directory", opts.WorkingDirectory)
	}
	if opts.BaseInstructions != "" {
		args = append(args, "--base-instructions", opts.BaseInstructions)
	}

	return append(args, prompt)
}
