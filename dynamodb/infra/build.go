package infra

import (
	"bytes"
	"fmt"

	"github.com/acksell/ddbsdl/dynamodb/schema"
	"gopkg.in/yaml.v3"
)

// Options are the inputs of Build besides the schema.
type Options struct {
	Config           Config
	DispatcherAlarms AlarmThresholds
	HandlerAlarms    AlarmThresholds
}

// Build merges the fragments of every table and CDC unit of a schema.
func Build(tables []schema.Table, opts Options) (*Fragment, error) {
	out := NewFragment()
	for _, t := range tables {
		if err := out.Merge(Table(t)); err != nil {
			return nil, fmt.Errorf("table %s: %w", t.Name, err)
		}
	}
	for _, u := range Units(tables) {
		var f *Fragment
		var err error
		if u.Kind == KindDispatcher {
			f, err = Dispatcher(u, tables, opts.Config, opts.DispatcherAlarms)
		} else {
			f, err = Handler(u, tables, opts.Config, opts.HandlerAlarms)
		}
		if err != nil {
			return nil, err
		}
		if err := out.Merge(f); err != nil {
			return nil, fmt.Errorf("unit %s: %w", u.Name, err)
		}
	}
	return out, nil
}

type template struct {
	AWSTemplateFormatVersion string `yaml:"AWSTemplateFormatVersion"`
	Description              string `yaml:"Description"`
	Fragment                 `yaml:",inline"`
}

// Render prints a fragment as a complete CloudFormation template.
func Render(f *Fragment, description string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# Generated by ddbgen. DO NOT EDIT.\n\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	err := enc.Encode(template{
		AWSTemplateFormatVersion: "2010-09-09",
		Description:              description,
		Fragment:                 *f,
	})
	if err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode template: %w", err)
	}
	return buf.Bytes(), nil
}
