package wizard

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-go-golems/registryctl/pkg/api"
)

const (
	MsgInvalidURL            = "Must be a valid URL"
	MsgDockerfileNoSlash     = `Path entered for folder containing Dockerfile is invalid: Must start with a "/".`
	MsgDockerfileNoFile      = `Dockerfile path must end with a file, e.g. "Dockerfile"`
	MsgInvalidContext        = "Path is an invalid context."
	MsgNoTaggingOption       = "At least one tagging option must be selected."
	MsgInvalidBranchTagRegex = "Branch/tag regular expression is invalid."
	MsgNoTagTemplates        = "No tag templates defined."
)

// ValidationError is a client-side rejection of a field. It never results
// from a network call. An empty Message means the field is required but has
// not been filled in yet; the form shows no text for it.
type ValidationError struct {
	Step    Step
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s is required", e.Field)
	}
	return e.Message
}

func ValidateRepoURL(s string) *ValidationError {
	s = strings.TrimSpace(s)
	if s == "" {
		return &ValidationError{Step: StepRepoURL, Field: "repo-url"}
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" || strings.ContainsAny(s, " \t") {
		return &ValidationError{Step: StepRepoURL, Field: "repo-url", Message: MsgInvalidURL}
	}
	return nil
}

func ValidateTagging(cfg api.BuildTriggerConfig) *ValidationError {
	if cfg.BranchTagRegex != "" {
		if _, err := regexp.Compile(cfg.BranchTagRegex); err != nil {
			return &ValidationError{Step: StepTaggingOptions, Field: "branch-tag-regex", Message: MsgInvalidBranchTagRegex}
		}
	}
	if !cfg.LatestForDefaultBranch && !cfg.DefaultTagFromRef && len(normalizeTemplates(cfg.TagTemplates)) == 0 {
		return &ValidationError{Step: StepTaggingOptions, Field: "tagging-options", Message: MsgNoTaggingOption}
	}
	return nil
}

func ValidateDockerfilePath(s string) *ValidationError {
	switch {
	case s == "":
		return &ValidationError{Step: StepDockerfilePath, Field: "dockerfile-path"}
	case !strings.HasPrefix(s, "/"):
		return &ValidationError{Step: StepDockerfilePath, Field: "dockerfile-path", Message: MsgDockerfileNoSlash}
	case strings.HasSuffix(s, "/"):
		return &ValidationError{Step: StepDockerfilePath, Field: "dockerfile-path", Message: MsgDockerfileNoFile}
	}
	return nil
}

// ValidateContextPath accepts absolute paths made of non-empty segments other
// than "." and "..". A single trailing slash is allowed.
func ValidateContextPath(s string) *ValidationError {
	if s == "" {
		return &ValidationError{Step: StepContextPath, Field: "context-path"}
	}
	bad := &ValidationError{Step: StepContextPath, Field: "context-path", Message: MsgInvalidContext}
	if !strings.HasPrefix(s, "/") || strings.ContainsAny(s, "\x00\n\r\t") {
		return bad
	}
	if s == "/" {
		return nil
	}
	segs := strings.Split(strings.TrimSuffix(s[1:], "/"), "/")
	for _, seg := range segs {
		if seg == "" || seg == "." || seg == ".." {
			return bad
		}
	}
	return nil
}

// validateStep runs the validator guarding Next on step. Robot selection and
// review have nothing to check.
func validateStep(step Step, cfg api.BuildTriggerConfig) *ValidationError {
	switch step {
	case StepRepoURL:
		return ValidateRepoURL(cfg.BuildSource)
	case StepTaggingOptions:
		return ValidateTagging(cfg)
	case StepDockerfilePath:
		return ValidateDockerfilePath(cfg.DockerfilePath)
	case StepContextPath:
		return ValidateContextPath(cfg.Context)
	}
	return nil
}
