package document

import (
	"fmt"
	"os"

	"github.com/dyluth/drey/pkg/tree"
	"gopkg.in/yaml.v3"
)

// TreeFile is the YAML form of a whole tree.
type TreeFile struct {
	Root InstanceNode `yaml:"root"`
}

// InstanceNode is the YAML form of one instance and its subtree. IDs are
// optional on input and minted when missing.
type InstanceNode struct {
	ID         string                       `yaml:"id,omitempty"`
	Name       string                       `yaml:"name"`
	Class      string                       `yaml:"class"`
	Properties map[string]tree.EncodedValue `yaml:"properties,omitempty"`
	Metadata   tree.Metadata                `yaml:"metadata,omitempty"`
	Children   []InstanceNode               `yaml:"children,omitempty"`
}

// LoadTree reads a tree file.
func LoadTree(path string) (*tree.Tree, error) {
	data, err := readFile(path, "tree")
	if err != nil {
		return nil, err
	}
	t, err := DecodeTree(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// DecodeTree builds a tree from YAML.
func DecodeTree(data []byte) (*tree.Tree, error) {
	var file TreeFile
	if err := decodeStrict(data, &file); err != nil {
		return nil, err
	}

	rootID, err := nodeID(file.Root.ID, "root")
	if err != nil {
		return nil, err
	}
	rootProps, err := nodeProperties(&file.Root, "root")
	if err != nil {
		return nil, err
	}

	t := tree.NewWithRootID(rootID, rootProps)
	if err := insertChildren(t, rootID, file.Root.Children, "root"); err != nil {
		return nil, err
	}
	return t, nil
}

func insertChildren(t *tree.Tree, parent tree.ID, nodes []InstanceNode, path string) error {
	for i := range nodes {
		node := &nodes[i]
		childPath := fmt.Sprintf("%s.children[%d]", path, i)

		id, err := nodeID(node.ID, childPath)
		if err != nil {
			return err
		}
		props, err := nodeProperties(node, childPath)
		if err != nil {
			return err
		}
		if err := t.InsertWithID(parent, id, props); err != nil {
			return &PathError{Path: childPath, Err: err}
		}
		if err := insertChildren(t, id, node.Children, childPath); err != nil {
			return err
		}
	}
	return nil
}

func nodeID(raw, path string) (tree.ID, error) {
	if raw == "" {
		return tree.NewID(), nil
	}
	id, err := tree.ParseID(raw)
	if err != nil {
		return tree.NoID, &PathError{Path: path + ".id", Err: err}
	}
	return id, nil
}

func nodeProperties(node *InstanceNode, path string) (tree.InstanceProperties, error) {
	if node.Class == "" {
		return tree.InstanceProperties{}, pathErrorf(path, "class is required")
	}
	props, err := tree.DecodeProperties(node.Properties)
	if err != nil {
		return tree.InstanceProperties{}, &PathError{Path: path + ".properties", Err: err}
	}
	name := node.Name
	if name == "" {
		name = node.Class
	}
	return tree.InstanceProperties{
		Name:       name,
		Class:      node.Class,
		Properties: props,
		Metadata:   node.Metadata,
	}, nil
}

// EncodeTree renders t as a tree file. Every instance carries its ID so the
// file can be fed back to LoadTree and patched by ID.
func EncodeTree(t *tree.Tree) ([]byte, error) {
	root, ok := t.Get(t.RootID())
	if !ok {
		return nil, fmt.Errorf("tree has no root")
	}
	data, err := yaml.Marshal(TreeFile{Root: encodeNode(t, root)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode tree: %w", err)
	}
	return data, nil
}

// WriteTree writes t to path as a tree file.
func WriteTree(path string, t *tree.Tree) error {
	data, err := EncodeTree(t)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write tree file: %w", err)
	}
	return nil
}

func encodeNode(t *tree.Tree, inst *tree.Instance) InstanceNode {
	node := InstanceNode{
		ID:       inst.ID().String(),
		Name:     inst.Name(),
		Class:    inst.Class(),
		Metadata: inst.Metadata(),
	}
	if props := inst.Properties(); len(props) > 0 {
		node.Properties = tree.EncodeProperties(props)
	}
	for _, childID := range inst.Children() {
		if child, ok := t.Get(childID); ok {
			node.Children = append(node.Children, encodeNode(t, child))
		}
	}
	return node
}
