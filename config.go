package singleton

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danpasecinic/singleton/internal/backoff"
)

// WaitPolicy controls how goroutines that lost the creation race wait for
// the winner. It only affects latency under contention, never correctness.
type WaitPolicy = backoff.Policy

func DefaultWaitPolicy() WaitPolicy {
	return backoff.DefaultPolicy()
}

// ParseWaitPolicy decodes a policy from YAML (or JSON, which yaml.v3 reads
// as well). Durations are strings such as "50us". Missing sleep bounds take
// their defaults.
//
//	spins: 16
//	yields: 32
//	min_sleep: 50us
//	max_sleep: 5ms
func ParseWaitPolicy(data []byte) (WaitPolicy, error) {
	var p WaitPolicy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return WaitPolicy{}, fmt.Errorf("parse wait policy: %w", err)
	}

	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return WaitPolicy{}, errInvalidPolicy("", err)
	}
	return p, nil
}

// LoadWaitPolicy reads a policy from a .yaml, .yml or .json file.
func LoadWaitPolicy(path string) (WaitPolicy, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml", ".json":
	default:
		return WaitPolicy{}, errConfigLoad(path, fmt.Errorf("unsupported config file extension: %s", ext))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return WaitPolicy{}, errConfigLoad(path, err)
	}

	p, err := ParseWaitPolicy(data)
	if err != nil {
		return WaitPolicy{}, errConfigLoad(path, err)
	}
	return p, nil
}
