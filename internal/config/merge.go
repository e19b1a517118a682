package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Top-level YAML config key names used for merge.
const (
	keyStorage     = "storage"
	keyMarketplace = "marketplace"
	keyAcquire     = "acquire"
	keyFill        = "fill"
	keyLogging     = "logging"
	keyMetrics     = "metrics"
)

// knownTopLevelKeys lists the YAML keys that correspond to exported Config fields.
// Keys not in this list are silently ignored during merge.
//
//nolint:gochecknoglobals // Compile-time constant lookup table.
var knownTopLevelKeys = map[string]bool{
	keyStorage:     true,
	keyMarketplace: true,
	keyAcquire:     true,
	keyFill:        true,
	keyLogging:     true,
	keyMetrics:     true,
}

// ShallowMergeYAML loads a YAML file and merges its top-level sections onto
// the target Config. Within a present section, only the fields named in the
// overlay change; lists such as fill.tiers are replaced whole. Sections absent
// from the overlay are left unchanged.
func ShallowMergeYAML(target *Config, overlayPath string) error {
	if target == nil {
		return errors.New("nil target *Config in ShallowMergeYAML")
	}

	data, err := os.ReadFile(overlayPath)
	if err != nil {
		return fmt.Errorf("reading overlay file %s: %w", overlayPath, err)
	}

	// Discover which top-level keys are present in the overlay.
	var overlay map[string]interface{}
	if err = yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing overlay YAML from %s: %w", overlayPath, err)
	}

	// Empty or comment-only file: nothing to merge.
	if len(overlay) == 0 {
		return nil
	}

	for key, value := range overlay {
		if !knownTopLevelKeys[key] {
			continue
		}

		// Re-marshal the single section so we can unmarshal it onto the
		// strongly-typed target field.
		sectionBytes, marshalErr := yaml.Marshal(value)
		if marshalErr != nil {
			return fmt.Errorf("re-marshalling overlay section %q: %w", key, marshalErr)
		}

		if err = unmarshalSection(target, key, sectionBytes); err != nil {
			return fmt.Errorf("applying overlay section %q: %w", key, err)
		}
	}

	return nil
}

// unmarshalSection decodes raw YAML bytes onto a copy of the matching field of
// target and stores the copy back only when decoding succeeds, so a bad
// section never leaves target half-updated.
func unmarshalSection(target *Config, key string, data []byte) error {
	switch key {
	case keyStorage:
		return decodeOnto(data, &target.Storage)
	case keyMarketplace:
		return decodeOnto(data, &target.Marketplace)
	case keyAcquire:
		return decodeOnto(data, &target.Acquire)
	case keyFill:
		return decodeOnto(data, &target.Fill)
	case keyLogging:
		return decodeOnto(data, &target.Logging)
	case keyMetrics:
		return decodeOnto(data, &target.Metrics)
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
}

func decodeOnto[T any](data []byte, field *T) error {
	v := *field
	if err := yaml.Unmarshal(data, &v); err != nil {
		return err
	}
	*field = v
	return nil
}
