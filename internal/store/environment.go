package store

import (
	"errors"
	"fmt"
	"os"
	"regexp"
)

// EnvironmentEnv selects the environment when none is given explicitly.
const EnvironmentEnv = "FACTSYNC_ENVIRONMENT"

// DefaultEnvironment is used when neither an explicit value nor the env var is set.
const DefaultEnvironment = "dev"

// ErrInvalidEnvironment indicates the environment name cannot be used as a directory.
var ErrInvalidEnvironment = errors.New("invalid environment: must be lowercase alphanumeric with hyphens, 1-32 characters")

// environmentRegex: lowercase alphanumeric and hyphens, no leading/trailing hyphen.
var environmentRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,30}[a-z0-9])?$`)

// ValidateEnvironment validates an environment name.
func ValidateEnvironment(name string) error {
	if !environmentRegex.MatchString(name) {
		return ErrInvalidEnvironment
	}
	return nil
}

// ResolveEnvironment determines the environment to use.
// Priority: explicit > FACTSYNC_ENVIRONMENT env > "dev".
func ResolveEnvironment(explicit string) (string, error) {
	if explicit != "" {
		if err := ValidateEnvironment(explicit); err != nil {
			return "", fmt.Errorf("invalid environment %q: %w", explicit, err)
		}
		return explicit, nil
	}

	if env := os.Getenv(EnvironmentEnv); env != "" {
		if err := ValidateEnvironment(env); err != nil {
			return "", fmt.Errorf("invalid %s %q: %w", EnvironmentEnv, env, err)
		}
		return env, nil
	}

	return DefaultEnvironment, nil
}
