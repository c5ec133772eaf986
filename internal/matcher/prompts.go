package matcher

import (
	_ "embed"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

var (
	//go:embed prompts/system.md
	defaultSystemPrompt string
	//go:embed prompts/user.md
	defaultUserPrompt string
)

// Prompts is the joint fit/difficulty prompt pair. User is a template with
// {{PLACEHOLDER}} slots filled by Render.
type Prompts struct {
	System string `yaml:"system_prompt"`
	User   string `yaml:"user_prompt"`
}

// DefaultPrompts returns the embedded prompts.
func DefaultPrompts() Prompts {
	return Prompts{
		System: strings.TrimSpace(defaultSystemPrompt),
		User:   strings.TrimSpace(defaultUserPrompt),
	}
}

// LoadPrompts reads overrides from a YAML file. Blank or missing keys keep the
// embedded defaults, and an empty path returns the defaults.
func LoadPrompts(path string) (Prompts, error) {
	prompts := DefaultPrompts()
	if strings.TrimSpace(path) == "" {
		return prompts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return prompts, errors.Wrapf(err, "read prompts file %s", path)
	}

	var override Prompts
	if err := yaml.Unmarshal(data, &override); err != nil {
		return prompts, errors.WithHint(
			errors.Wrapf(err, "parse prompts file %s", path),
			"expected top-level keys system_prompt and user_prompt",
		)
	}

	if strings.TrimSpace(override.System) != "" {
		prompts.System = override.System
	}
	if strings.TrimSpace(override.User) != "" {
		prompts.User = override.User
	}
	return prompts, nil
}

// PromptVars are the values substituted into the user template.
type PromptVars struct {
	PortfolioSummary string
	JobTitle         string
	Institution      string
	PositionType     string
	Location         string
	Description      string
	Requirements     string
}

// Render fills the user template.
func (p Prompts) Render(v PromptVars) string {
	return strings.NewReplacer(
		"{{PORTFOLIO_SUMMARY}}", v.PortfolioSummary,
		"{{JOB_TITLE}}", v.JobTitle,
		"{{INSTITUTION}}", v.Institution,
		"{{POSITION_TYPE}}", v.PositionType,
		"{{LOCATION}}", v.Location,
		"{{DESCRIPTION}}", v.Description,
		"{{REQUIREMENTS}}", v.Requirements,
	).Replace(p.User)
}
