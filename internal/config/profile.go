package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadChainProfile reads a YAML chain profile from path. Fields missing from
// the file keep their value in base.
func LoadChainProfile(path string, base ChainProfile) (ChainProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ChainProfile{}, fmt.Errorf("read chain profile: %w", err)
	}
	profile := base
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return ChainProfile{}, fmt.Errorf("parse chain profile %s: %w", path, err)
	}
	return profile, nil
}
