package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// MacroPrefix opens a value the host framework substitutes at run time.
// Such values survive loading untouched and mark their field deferred.
const MacroPrefix = "${macro:"

// Load loads a configuration from a YAML file
func Load(filePath string, config interface{}) error {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: File path is controlled by caller
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, config)
}

// Parse parses YAML after environment substitution.
func Parse(data []byte, config interface{}) error {
	content := substituteEnvVars(string(data))

	if err := yaml.Unmarshal([]byte(content), config); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// Save saves a configuration to a YAML file
func Save(filePath string, config interface{}) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// IsMacro reports whether v is a run-time macro.
func IsMacro(v string) bool {
	v = strings.TrimSpace(v)
	return strings.HasPrefix(v, MacroPrefix) && strings.HasSuffix(v, "}")
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
// Macros are left in place.
func substituteEnvVars(content string) string {
	var b strings.Builder
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		b.WriteString(content[:start])
		if strings.HasPrefix(content[start:], MacroPrefix) {
			b.WriteString(content[start : end+1])
		} else {
			b.WriteString(os.Getenv(content[start+2 : end]))
		}
		content = content[end+1:]
	}
	b.WriteString(content)
	return b.String()
}
