package loader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const modelNameKey = "model_name"

// ReadMetadata decodes a TOML file of string entries, e.g.
//
//	model_name = "mobilenet"
//	model_version = "3"
func ReadMetadata(path string) (map[string]string, error) {
	metadata := make(map[string]string)
	if _, err := toml.DecodeFile(path, &metadata); err != nil {
		return nil, fmt.Errorf("reading metadata %s: %w", path, err)
	}
	return metadata, nil
}

// buildMetadata merges the metadata file with the inline entries. The model
// name defaults to the base name of the model file.
func buildMetadata(cfg *Config) (map[string]string, error) {
	metadata := make(map[string]string)
	if cfg.MetadataPath != "" {
		fromFile, err := ReadMetadata(cfg.MetadataPath)
		if err != nil {
			return nil, err
		}
		for k, v := range fromFile {
			metadata[k] = v
		}
	}
	for k, v := range cfg.Metadata {
		metadata[k] = v
	}
	if metadata[modelNameKey] == "" {
		base := filepath.Base(cfg.Path)
		metadata[modelNameKey] = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return metadata, nil
}
