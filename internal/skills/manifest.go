package skills

import (
	"fmt"
	"strconv"
	"strings"

	"arlo/internal/sandbox"
)

const (
	maxNameLength        = 64
	maxDescriptionLength = 1024

	frontMatterDelimiter = "---"
)

// Manifest is the parsed front matter of a SKILL.md file plus its
// Markdown body. The front matter uses a deliberately small two-level
// grammar: top-level `key: value` pairs, a `triggers:` list of `- item`
// lines, and a nested `sandbox_config:` block of indented pairs.
type Manifest struct {
	Name            string
	Description     string
	License         string
	Category        string
	Triggers        []string
	RequiresSandbox bool
	// PreferredMode is the skill's own execution preference: "sandbox",
	// "direct", or empty when the manifest leaves it unset.
	PreferredMode string
	SandboxConfig *sandbox.Config
	Body          string
}

// ParseManifest parses the contents of a SKILL.md file. The front
// matter must open on the first line with `---` and close with a
// matching `---`; everything after the closing delimiter is the body.
func ParseManifest(content string) (Manifest, error) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontMatterDelimiter {
		return Manifest{}, fmt.Errorf("manifest missing front matter opening delimiter")
	}

	closing := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontMatterDelimiter {
			closing = i
			break
		}
	}
	if closing < 0 {
		return Manifest{}, fmt.Errorf("manifest missing front matter closing delimiter")
	}

	m := Manifest{
		Body: strings.TrimSpace(strings.Join(lines[closing+1:], "\n")),
	}

	// Block tracking: after `triggers:` or `sandbox_config:` we consume
	// indented lines belonging to that block until the next top-level key.
	const (
		blockNone = iota
		blockTriggers
		blockSandbox
	)
	block := blockNone

	for i := 1; i < closing; i++ {
		raw := lines[i]
		line := strings.TrimRight(raw, " \t")
		if strings.TrimSpace(line) == "" {
			continue
		}

		indented := strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")
		if indented && block != blockNone {
			item := strings.TrimSpace(line)
			switch block {
			case blockTriggers:
				if !strings.HasPrefix(item, "- ") {
					return Manifest{}, fmt.Errorf("line %d: expected list item under triggers", i+1)
				}
				trigger := strings.TrimSpace(strings.TrimPrefix(item, "- "))
				if trigger != "" {
					m.Triggers = append(m.Triggers, trigger)
				}
			case blockSandbox:
				key, value, err := splitPair(item)
				if err != nil {
					return Manifest{}, fmt.Errorf("line %d: %w", i+1, err)
				}
				if err := applySandboxKey(m.SandboxConfig, key, value); err != nil {
					return Manifest{}, fmt.Errorf("line %d: %w", i+1, err)
				}
			}
			continue
		}
		if indented {
			return Manifest{}, fmt.Errorf("line %d: unexpected indentation", i+1)
		}

		block = blockNone
		key, value, err := splitPair(strings.TrimSpace(line))
		if err != nil {
			return Manifest{}, fmt.Errorf("line %d: %w", i+1, err)
		}

		switch key {
		case "name":
			m.Name = value
		case "description":
			m.Description = value
		case "license":
			m.License = value
		case "category":
			m.Category = value
		case "requires_sandbox":
			b, err := parseBool(value)
			if err != nil {
				return Manifest{}, fmt.Errorf("line %d: requires_sandbox: %w", i+1, err)
			}
			m.RequiresSandbox = b
		case "execution_mode":
			switch value {
			case "sandbox", "direct", "":
				m.PreferredMode = value
			default:
				return Manifest{}, fmt.Errorf("line %d: execution_mode must be sandbox or direct, got %q", i+1, value)
			}
		case "triggers":
			if value != "" {
				return Manifest{}, fmt.Errorf("line %d: triggers takes a list, not an inline value", i+1)
			}
			block = blockTriggers
		case "sandbox_config":
			if value != "" {
				return Manifest{}, fmt.Errorf("line %d: sandbox_config takes a block, not an inline value", i+1)
			}
			cfg := sandbox.Config{}
			m.SandboxConfig = &cfg
			block = blockSandbox
		default:
			// Unknown top-level keys are ignored so manifests can carry
			// extra metadata without breaking older runtimes.
		}
	}

	if err := validateManifest(m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

func validateManifest(m Manifest) error {
	if m.Name == "" {
		return fmt.Errorf("manifest missing name")
	}
	if len(m.Name) > maxNameLength {
		return fmt.Errorf("name exceeds %d characters", maxNameLength)
	}
	for _, r := range m.Name {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-' {
			continue
		}
		return fmt.Errorf("name contains invalid character %q", r)
	}
	if m.Description == "" {
		return fmt.Errorf("manifest missing description")
	}
	if len(m.Description) > maxDescriptionLength {
		return fmt.Errorf("description exceeds %d characters", maxDescriptionLength)
	}
	return nil
}

func applySandboxKey(cfg *sandbox.Config, key, value string) error {
	if cfg == nil {
		return fmt.Errorf("sandbox_config key outside sandbox_config block")
	}
	switch key {
	case "image":
		cfg.Image = value
	case "memory_limit":
		cfg.MemoryLimit = value
	case "cpu_limit":
		cfg.CPULimit = value
	case "timeout_seconds":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("timeout_seconds must be a positive integer, got %q", value)
		}
		cfg.TimeoutSeconds = n
	case "network_enabled":
		b, err := parseBool(value)
		if err != nil {
			return fmt.Errorf("network_enabled: %w", err)
		}
		cfg.NetworkEnabled = b
	default:
		return fmt.Errorf("unknown sandbox_config key %q", key)
	}
	return nil
}

func splitPair(line string) (string, string, error) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", fmt.Errorf("expected key: value, got %q", line)
	}
	key := strings.TrimSpace(line[:idx])
	value := strings.TrimSpace(line[idx+1:])
	if key == "" {
		return "", "", fmt.Errorf("empty key in %q", line)
	}
	return key, value, nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "true", "yes", "1", "on":
		return true, nil
	case "false", "no", "0", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", value)
}
