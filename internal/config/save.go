package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SaveCrates replaces the crates section of the config file.
// This preserves comments and formatting in other sections by using yaml.Node.
func SaveCrates(configPath string, crates []CrateConfig) error {
	// Read existing file content
	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	// Parse into yaml.Node to preserve comments
	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	cratesNode := buildCratesNode(crates)

	// Update or create the crates section
	if doc.Kind == 0 {
		// Empty or new file - create document structure
		doc = yaml.Node{
			Kind: yaml.DocumentNode,
			Content: []*yaml.Node{
				{
					Kind: yaml.MappingNode,
					Content: []*yaml.Node{
						{Kind: yaml.ScalarNode, Value: "crates"},
						cratesNode,
					},
				},
			},
		}
	} else if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root := doc.Content[0]
		if root.Kind != yaml.MappingNode {
			return fmt.Errorf("parsing config: top level must be a mapping")
		}
		// Find and replace crates key, or append it
		found := false
		for i := 0; i < len(root.Content)-1; i += 2 {
			if root.Content[i].Value == "crates" {
				root.Content[i+1] = cratesNode
				found = true
				break
			}
		}
		if !found {
			root.Content = append(root.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: "crates"},
				cratesNode,
			)
		}
	}

	// Marshal back to YAML
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	return writeAtomic(configPath, buf.Bytes())
}

// AddCrate appends newCrate to existing and saves. The combined list must
// pass ValidateCrates.
func AddCrate(configPath string, newCrate CrateConfig, existing []CrateConfig) error {
	crates := make([]CrateConfig, 0, len(existing)+1)
	crates = append(crates, existing...)
	crates = append(crates, newCrate)
	if err := ValidateCrates(crates); err != nil {
		return err
	}
	return SaveCrates(configPath, crates)
}

// RemoveCrate drops the named crate and saves.
func RemoveCrate(configPath, name string, existing []CrateConfig) error {
	crates := make([]CrateConfig, 0, len(existing))
	for _, c := range existing {
		if c.Name != name {
			crates = append(crates, c)
		}
	}
	if len(crates) == len(existing) {
		return fmt.Errorf("crate %q is not configured", name)
	}
	return SaveCrates(configPath, crates)
}

// buildCratesNode creates a yaml.Node representing the crates array.
func buildCratesNode(crates []CrateConfig) *yaml.Node {
	node := &yaml.Node{
		Kind:    yaml.SequenceNode,
		Content: make([]*yaml.Node, 0, len(crates)),
	}
	if len(crates) == 0 {
		node.Style = yaml.FlowStyle
	}

	for _, c := range crates {
		crateNode := &yaml.Node{
			Kind:    yaml.MappingNode,
			Content: make([]*yaml.Node, 0, 8),
		}

		// Always include name
		crateNode.Content = append(crateNode.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: "name"},
			&yaml.Node{Kind: yaml.ScalarNode, Value: c.Name},
		)
		for _, kv := range [][2]string{{"url", c.URL}, {"subpath", c.Subpath}, {"path", c.Path}} {
			if kv[1] == "" {
				continue
			}
			crateNode.Content = append(crateNode.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: kv[0]},
				&yaml.Node{Kind: yaml.ScalarNode, Value: kv[1]},
			)
		}

		node.Content = append(node.Content, crateNode)
	}

	return node
}

// writeAtomic writes data to a temp file next to path, then renames it.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".bolt.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}
