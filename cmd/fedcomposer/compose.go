/*
Copyright © 2019 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/jensneuse/abstractlogger"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/wundergraph/fedcomposer/pkg/composition"
	"github.com/wundergraph/fedcomposer/pkg/compositionreport"
	"github.com/wundergraph/fedcomposer/pkg/config"
	"github.com/wundergraph/fedcomposer/pkg/supergraph"
)

const (
	formatText = "text"
	formatJSON = "json"
)

var errCompositionFailed = errors.New("composition failed")

// composeResult is the output of compose --format json.
type composeResult struct {
	State       string                               `json:"state,omitempty"`
	Fingerprint string                               `json:"fingerprint,omitempty"`
	Supergraph  string                               `json:"supergraph,omitempty"`
	APISchema   string                               `json:"apiSchema,omitempty"`
	Phase       string                               `json:"phase,omitempty"`
	Errors      []compositionreport.CompositionError `json:"errors,omitempty"`
	Hints       []compositionreport.Hint             `json:"hints"`
}

func newComposeCmd() *cobra.Command {
	composeCmd := &cobra.Command{
		Use:     "compose",
		Short:   "compose composes the subgraphs of a config file into a supergraph",
		Example: "fedcomposer compose --config supergraph.yaml --out supergraph.graphql",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newViper(cmd)
			if err != nil {
				return err
			}
			format := v.GetString("format")
			if format != formatText && format != formatJSON {
				return fmt.Errorf("unknown format %q, expected %s or %s", format, formatText, formatJSON)
			}
			logger, err := newLogger(cmd.ErrOrStderr(), v.GetString("log-level"))
			if err != nil {
				return err
			}

			c, err := config.Load(v.GetString("config"))
			if err != nil {
				return err
			}
			options := c.Options()
			options.Logger = logger
			if v.GetBool("skip-satisfiability") {
				options.RunSatisfiability = false
			}

			var rendered bytes.Buffer
			run := &composeRun{
				config:    c,
				options:   options,
				log:       logger,
				apiSchema: v.GetBool("api-schema"),
				out:       &rendered,
				diag:      cmd.ErrOrStderr(),
			}
			if format == formatJSON {
				err = run.writeJSON()
			} else {
				err = run.writeText()
			}

			// a failed composition never replaces the previous output file
			if path := v.GetString("out"); path != "" && err == nil {
				return writeFile(path, rendered.Bytes())
			}
			if _, writeErr := cmd.OutOrStdout().Write(rendered.Bytes()); writeErr != nil && err == nil {
				err = writeErr
			}
			return err
		},
	}

	composeCmd.Flags().String("config", "supergraph.yaml", "path of the composition config file")
	composeCmd.Flags().String("out", "", "file to write the result to, stdout if empty")
	composeCmd.Flags().Bool("api-schema", false, "print the API schema instead of the supergraph")
	composeCmd.Flags().Bool("skip-satisfiability", false, "skip the satisfiability check")
	composeCmd.Flags().String("format", formatText, "output format, text or json")
	composeCmd.Flags().String("log-level", "warn", "log level: debug, info, warn or error")
	return composeCmd
}

type composeRun struct {
	config    *config.Config
	options   composition.Options
	log       log.Logger
	apiSchema bool
	out       io.Writer
	diag      io.Writer
}

func (r *composeRun) compose() (*supergraph.Supergraph, error) {
	initial, err := r.config.InitialSubgraphs()
	if err != nil {
		return nil, err
	}
	return composition.ComposeWithOptions(initial, r.options)
}

func (r *composeRun) writeText() error {
	composed, err := r.compose()
	if err != nil {
		return err
	}
	for _, hint := range composed.Hints() {
		if _, err := fmt.Fprintf(r.diag, "hint: %s\n", hint); err != nil {
			return err
		}
	}
	if !composed.Verified() {
		r.log.Warn("satisfiability was not checked", log.String("state", composed.State().String()))
	}

	sdl := composed.SDL()
	if r.apiSchema {
		sdl = composed.APISchema()
	}
	_, err = io.WriteString(r.out, sdl)
	return err
}

func (r *composeRun) writeJSON() error {
	result := composeResult{Hints: []compositionreport.Hint{}}
	composed, err := r.compose()
	if err != nil {
		report, ok := compositionreport.FromError(err)
		if !ok {
			return err
		}
		result.Phase = report.Phase
		result.Errors = report.Errors
	} else {
		result.State = composed.State().String()
		result.Fingerprint = composed.Fingerprint()
		result.Hints = append(result.Hints, composed.Hints()...)
		if r.apiSchema {
			result.APISchema = composed.APISchema()
		} else {
			result.Supergraph = composed.SDL()
		}
	}

	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	if encodeErr := encoder.Encode(result); encodeErr != nil {
		return encodeErr
	}
	if err != nil {
		return errCompositionFailed
	}
	return nil
}

// writeFile replaces path with data through a temporary file in the same directory,
// so readers never see a partially written supergraph.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return errors.Wrap(err, "creating output file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return errors.Wrapf(os.Rename(tmp.Name(), path), "writing %s", path)
}
