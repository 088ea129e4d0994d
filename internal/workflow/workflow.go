// Package workflow reads local workflow files so dispatches can be checked
// before they are sent.
package workflow

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultDir is where GitHub looks for workflow files.
const DefaultDir = ".github/workflows"

var (
	// ErrWorkflowNotFound matches *NotFoundError.
	ErrWorkflowNotFound = errors.New("workflow file not found")
	// ErrNotDispatchable is returned for workflows without a workflow_dispatch trigger.
	ErrNotDispatchable = errors.New("workflow has no workflow_dispatch trigger")
	// ErrInvalidInputs is returned when dispatch inputs do not match the declaration.
	ErrInvalidInputs = errors.New("invalid workflow inputs")
)

// NotFoundError names the workflow file that was looked for and where.
type NotFoundError struct {
	Name string
	Dir  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("workflow file %s not found in %s", e.Name, e.Dir)
}

// Is matches ErrWorkflowNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrWorkflowNotFound
}

// File is the part of a workflow file actlog cares about.
type File struct {
	Path string    `yaml:"-"`
	Name string    `yaml:"name"`
	On   yaml.Node `yaml:"on"`
}

// Input is one declared workflow_dispatch input.
type Input struct {
	Description string     `yaml:"description"`
	Required    bool       `yaml:"required"`
	Type        string     `yaml:"type"`
	Options     []string   `yaml:"options"`
	Default     *yaml.Node `yaml:"default"`
}

// DefaultValue returns the declared default and whether one exists.
func (in Input) DefaultValue() (string, bool) {
	if in.Default == nil || in.Default.Tag == "!!null" {
		return "", false
	}
	return in.Default.Value, true
}

// Find locates name in dir. name may omit the .yml or .yaml extension.
func Find(dir, name string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultDir
	}
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", &NotFoundError{Name: name, Dir: dir}
	}
	candidates := []string{name}
	if ext := filepath.Ext(name); ext != ".yml" && ext != ".yaml" {
		candidates = []string{name + ".yml", name + ".yaml"}
	}
	for _, c := range candidates {
		path := filepath.Join(dir, c)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat workflow file: %w", err)
		}
	}
	return "", &NotFoundError{Name: name, Dir: dir}
}

// Load reads and parses a workflow file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &NotFoundError{Name: filepath.Base(path), Dir: filepath.Dir(path)}
		}
		return nil, fmt.Errorf("read workflow file: %w", err)
	}
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse workflow file %s: %w", path, err)
	}
	f.Path = path
	return &f, nil
}

// DispatchInputs returns the declared workflow_dispatch inputs. ok is false
// when the workflow cannot be dispatched manually.
func (f *File) DispatchInputs() (map[string]Input, bool, error) {
	on := &f.On
	switch on.Kind {
	case yaml.ScalarNode:
		return nil, on.Value == "workflow_dispatch", nil
	case yaml.SequenceNode:
		for _, item := range on.Content {
			if item.Kind == yaml.ScalarNode && item.Value == "workflow_dispatch" {
				return nil, true, nil
			}
		}
		return nil, false, nil
	case yaml.MappingNode:
		for i := 0; i+1 < len(on.Content); i += 2 {
			if on.Content[i].Value != "workflow_dispatch" {
				continue
			}
			var trigger struct {
				Inputs map[string]Input `yaml:"inputs"`
			}
			if err := on.Content[i+1].Decode(&trigger); err != nil {
				return nil, true, fmt.Errorf("parse workflow_dispatch inputs: %w", err)
			}
			return trigger.Inputs, true, nil
		}
	}
	return nil, false, nil
}

// ValidateInputs checks given against the declared inputs of f.
func ValidateInputs(f *File, given map[string]string) error {
	declared, ok, err := f.DispatchInputs()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", filepath.Base(f.Path), ErrNotDispatchable)
	}

	var problems []string
	for _, name := range sortedKeys(given) {
		in, known := declared[name]
		if !known {
			problems = append(problems, fmt.Sprintf("unknown input %q", name))
			continue
		}
		value := given[name]
		switch in.Type {
		case "boolean":
			if value != "true" && value != "false" {
				problems = append(problems, fmt.Sprintf("input %q must be true or false", name))
			}
		case "choice":
			if !contains(in.Options, value) {
				problems = append(problems, fmt.Sprintf("input %q must be one of %s", name, strings.Join(in.Options, ", ")))
			}
		}
	}
	for _, name := range sortedKeys(declared) {
		in := declared[name]
		if _, set := given[name]; set || !in.Required {
			continue
		}
		if _, hasDefault := in.DefaultValue(); !hasDefault {
			problems = append(problems, fmt.Sprintf("missing required input %q", name))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInputs, strings.Join(problems, "; "))
	}
	return nil
}

// ParseAssignments turns key=value pairs into a map.
func ParseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q is not key=value", ErrInvalidInputs, pair)
		}
		out[key] = value
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
