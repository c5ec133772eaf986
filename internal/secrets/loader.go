package secrets

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

// Source describes how to load a secret value.
type Source struct {
	// Name is used in error messages to give more context about the secret.
	Name string
	// Value is an inline secret value provided via configuration or flags.
	Value string
	// File points to a file containing the secret value. When set it takes
	// precedence over Value.
	File string
	// Env names environment variables consulted, in order, when neither File
	// nor Value yield a secret.
	Env []string
}

var lookupEnv = os.LookupEnv

// Load resolves the secret from File, then Value, then the Env variables.
// The returned secret is always trimmed.
func Load(src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", errors.Wrapf(err, "reading %s from file %q", name, file)
		}
		secret := strings.TrimSpace(string(data))
		if secret == "" {
			return "", errors.Newf("%s file %q is empty", name, file)
		}
		return secret, nil
	}

	if secret := strings.TrimSpace(src.Value); secret != "" {
		return secret, nil
	}

	for _, key := range src.Env {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if value, ok := lookupEnv(key); ok {
			if secret := strings.TrimSpace(value); secret != "" {
				return secret, nil
			}
		}
	}

	err := errors.Newf("%s is not configured", name)
	if len(src.Env) > 0 {
		err = errors.WithHintf(err, "set %s or provide a key file", strings.Join(src.Env, " or "))
	}
	return "", err
}
