// Package infra builds the CloudFormation resources of a generated data layer:
// one table per physical table and, for every CDC unit, the function, its
// role, log group, dead letter queue, event source and alarms.
//
// Each unit contributes a Fragment. Fragments are merged into one template;
// a logical ID defined twice must be defined identically.
package infra

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
)

// ErrConflict is returned by Merge when two fragments define the same logical
// ID differently.
var ErrConflict = errors.New("conflicting definition")

// Fragment is a partial CloudFormation template keyed by logical ID.
type Fragment struct {
	Parameters map[string]Parameter `yaml:"Parameters,omitempty"`
	Conditions map[string]any       `yaml:"Conditions,omitempty"`
	Resources  map[string]Resource  `yaml:"Resources,omitempty"`
	Outputs    map[string]Output    `yaml:"Outputs,omitempty"`
}

type Parameter struct {
	Type        string `yaml:"Type"`
	Description string `yaml:"Description,omitempty"`
	Default     any    `yaml:"Default,omitempty"`
}

type Resource struct {
	Type       string         `yaml:"Type"`
	Condition  string         `yaml:"Condition,omitempty"`
	DependsOn  []string       `yaml:"DependsOn,omitempty"`
	Properties map[string]any `yaml:"Properties,omitempty"`
}

type Output struct {
	Description string `yaml:"Description,omitempty"`
	Value       any    `yaml:"Value"`
}

func NewFragment() *Fragment {
	return &Fragment{
		Parameters: map[string]Parameter{},
		Conditions: map[string]any{},
		Resources:  map[string]Resource{},
		Outputs:    map[string]Output{},
	}
}

// Merge adds every entry of other. Identical duplicates are accepted, a
// logical ID defined differently fails with ErrConflict and leaves f
// unchanged.
func (f *Fragment) Merge(other *Fragment) error {
	if other == nil {
		return nil
	}
	if err := checkMerge("parameter", f.Parameters, other.Parameters); err != nil {
		return err
	}
	if err := checkMerge("condition", f.Conditions, other.Conditions); err != nil {
		return err
	}
	if err := checkMerge("resource", f.Resources, other.Resources); err != nil {
		return err
	}
	if err := checkMerge("output", f.Outputs, other.Outputs); err != nil {
		return err
	}
	f.Parameters = merge(f.Parameters, other.Parameters)
	f.Conditions = merge(f.Conditions, other.Conditions)
	f.Resources = merge(f.Resources, other.Resources)
	f.Outputs = merge(f.Outputs, other.Outputs)
	return nil
}

func checkMerge[V any](section string, dst, src map[string]V) error {
	for _, id := range sortedKeys(src) {
		existing, ok := dst[id]
		if ok && !reflect.DeepEqual(existing, src[id]) {
			return fmt.Errorf("%s %s: %w", section, id, ErrConflict)
		}
	}
	return nil
}

func merge[V any](dst, src map[string]V) map[string]V {
	if dst == nil {
		dst = map[string]V{}
	}
	for id, v := range src {
		dst[id] = v
	}
	return dst
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Intrinsic functions.

func ref(id string) map[string]any {
	return map[string]any{"Ref": id}
}

func getAtt(id, attr string) map[string]any {
	return map[string]any{"Fn::GetAtt": []string{id, attr}}
}

func sub(s string) map[string]any {
	return map[string]any{"Fn::Sub": s}
}

func ifCondition(cond string, then, otherwise any) map[string]any {
	return map[string]any{"Fn::If": []any{cond, then, otherwise}}
}

var noValue = ref("AWS::NoValue")
