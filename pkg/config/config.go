// Package config loads the YAML file describing a composition.
//
//	subgraphs:
//	  - name: products
//	    url: http://products:4001/graphql
//	    schema_files:
//	      - products.graphql
//	  - name: reviews
//	    url: http://reviews:4002/graphql
//	    schema: |
//	      type Query { latest: Review }
//	run_satisfiability: true
//	unsatisfied_requires: hint
//	merge_concurrency: 4
//
// Relative schema file paths are resolved against the directory of the config file.
package config

import (
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/wundergraph/fedcomposer/pkg/composition"
	"github.com/wundergraph/fedcomposer/pkg/composition/satisfiability"
	"github.com/wundergraph/fedcomposer/pkg/compositionreport"
	"github.com/wundergraph/fedcomposer/pkg/federation/subgraph"
)

type Subgraph struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	// SchemaFiles are concatenated in order.
	SchemaFiles []string `yaml:"schema_files"`
	// Schema is inline SDL, used when no schema files are given.
	Schema string `yaml:"schema"`
}

type Config struct {
	Subgraphs []Subgraph `yaml:"subgraphs"`
	// RunSatisfiability defaults to true when omitted.
	RunSatisfiability   *bool  `yaml:"run_satisfiability"`
	UnsatisfiedRequires string `yaml:"unsatisfied_requires"`
	MergeConcurrency    int    `yaml:"merge_concurrency"`

	dir string
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	config, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	config.dir = filepath.Dir(path)
	return config, nil
}

// Parse reads a config from YAML. Schema file paths stay relative to the working directory.
func Parse(data []byte) (*Config, error) {
	config := &Config{}
	if err := yaml.UnmarshalStrict(data, config); err != nil {
		return nil, errors.Wrap(err, "decoding yaml")
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	for i, s := range c.Subgraphs {
		if s.Name == "" {
			return errors.Errorf("subgraph %d: name is required", i)
		}
		if len(s.SchemaFiles) == 0 && strings.TrimSpace(s.Schema) == "" {
			return errors.Errorf("subgraph %q: one of schema_files or schema is required", s.Name)
		}
		if len(s.SchemaFiles) > 0 && s.Schema != "" {
			return errors.Errorf("subgraph %q: schema_files and schema are mutually exclusive", s.Name)
		}
	}
	if _, err := satisfiability.ParseRequiresPolicy(c.UnsatisfiedRequires); err != nil {
		return errors.Wrap(err, "unsatisfied_requires")
	}
	if c.MergeConcurrency < 0 {
		return errors.Errorf("merge_concurrency must not be negative, got %d", c.MergeConcurrency)
	}
	return nil
}

// Options returns the composition options configured by the file.
func (c *Config) Options() composition.Options {
	options := composition.DefaultOptions()
	if c.RunSatisfiability != nil {
		options.RunSatisfiability = *c.RunSatisfiability
	}
	// validated by Parse
	options.Satisfiability.UnsatisfiedRequires, _ = satisfiability.ParseRequiresPolicy(c.UnsatisfiedRequires)
	options.Merge.Concurrency = c.MergeConcurrency
	return options
}

// SDL returns the schema of a subgraph, reading its schema files.
func (c *Config) SDL(s Subgraph) (string, error) {
	if len(s.SchemaFiles) == 0 {
		return s.Schema, nil
	}
	builder := strings.Builder{}
	for _, file := range s.SchemaFiles {
		if !filepath.IsAbs(file) {
			file = filepath.Join(c.dir, file)
		}
		data, err := ioutil.ReadFile(file)
		if err != nil {
			return "", errors.Wrapf(err, "subgraph %q", s.Name)
		}
		builder.Write(data)
		builder.WriteByte('\n')
	}
	return builder.String(), nil
}

// InitialSubgraphs parses the SDL of every subgraph. Syntax errors of all subgraphs are
// returned together as a compositionreport.Report.
func (c *Config) InitialSubgraphs() ([]*subgraph.Initial, error) {
	out := make([]*subgraph.Initial, 0, len(c.Subgraphs))
	report := compositionreport.Report{Phase: "parse"}
	for _, s := range c.Subgraphs {
		sdl, err := c.SDL(s)
		if err != nil {
			return nil, err
		}
		initial, err := subgraph.Parse(s.Name, s.URL, sdl)
		if err != nil {
			other, ok := compositionreport.FromError(err)
			if !ok {
				return nil, errors.Wrapf(err, "subgraph %q", s.Name)
			}
			report.Append(other)
			continue
		}
		out = append(out, initial)
	}
	if err := report.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
