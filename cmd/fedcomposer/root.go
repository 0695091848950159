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
	"fmt"
	"io"
	"strings"

	log "github.com/jensneuse/abstractlogger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const envPrefix = "FEDCOMPOSER"

// newRootCmd builds the command tree. Every command reads its flags through its own
// viper instance, so FEDCOMPOSER_<FLAG> environment variables can set them as well.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "fedcomposer",
		Short:         "fedcomposer composes federated GraphQL subgraphs into a supergraph",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newComposeCmd(), newVersionCmd())
	return rootCmd
}

func newViper(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	return v, nil
}

// newLogger writes console formatted zap logs to w.
func newLogger(w io.Writer, level string) (log.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}

	var abstractLevel log.Level
	switch zapLevel {
	case zapcore.DebugLevel:
		abstractLevel = log.DebugLevel
	case zapcore.InfoLevel:
		abstractLevel = log.InfoLevel
	case zapcore.WarnLevel:
		abstractLevel = log.WarnLevel
	default:
		abstractLevel = log.ErrorLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(w),
		zapLevel,
	)
	return log.NewZapLogger(zap.New(core), abstractLevel), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "prints the fedcomposer version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version)
			return err
		},
	}
}
