package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"required-backend/internal/dsl"
	"required-backend/internal/expression"
	"required-backend/internal/logging"
	"required-backend/internal/metadata"
	"required-backend/internal/requires"
)

type rootOptions struct {
	rulesDir string
	ruleSet  string
	text     string
	textFile string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "required",
		Short:         "Check records against field requirements",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.rulesDir, "rules", "", "directory of rule files (.yaml, .yml, .json, .hcl)")
	flags.StringVar(&opts.ruleSet, "ruleset", "", "rule set name within --rules")
	flags.StringVarP(&opts.text, "requires", "r", "", "requirement text, e.g. 'x -> x > y'")
	flags.StringVar(&opts.textFile, "requires-file", "", "file holding requirement text or a Requires { } block")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	root.AddCommand(
		newCheckCmd(opts),
		newExplainCmd(opts),
		newServeCmd(opts),
		newHashPasswordCmd(),
	)
	return root
}

func (o *rootOptions) context(cmd *cobra.Command) context.Context {
	log := logging.New(logging.Config{Level: o.logLevel, Output: cmd.ErrOrStderr()})
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logging.WithLogger(ctx, log)
}

// graph returns the requirements selected by the flags: requirement text
// from --requires or --requires-file, or a rule set loaded from --rules.
func (o *rootOptions) graph(cmd *cobra.Command) (*requires.Graph, error) {
	compiler := dsl.NewCompiler(expression.DefaultCallables())

	switch {
	case o.text != "" && o.textFile != "":
		return nil, fmt.Errorf("--requires and --requires-file are mutually exclusive")
	case o.text != "":
		return compiler.Compile(o.text)
	case o.textFile != "":
		data, err := os.ReadFile(o.textFile)
		if err != nil {
			return nil, err
		}
		return compiler.Compile(string(data))
	case o.ruleSet != "":
		if o.rulesDir == "" {
			return nil, fmt.Errorf("--ruleset needs --rules")
		}
		reg := metadata.NewRegistry()
		if _, err := metadata.LoadDir(o.context(cmd), o.rulesDir, compiler, reg); err != nil {
			return nil, err
		}
		rs, err := reg.Lookup(o.ruleSet)
		if err != nil {
			return nil, err
		}
		return rs.Graph, nil
	}
	return nil, fmt.Errorf("one of --requires, --requires-file or --ruleset is required")
}
