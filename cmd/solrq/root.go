package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/solrq/internal/config"
	"github.com/kailas-cloud/solrq/internal/version"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	Env        string
	ConfigPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "solrq",
		Short:         "Query Solr with a typed restriction and facet DSL",
		Version:       fmt.Sprintf("%s (%s)", version.Version, version.Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Env, "env", config.GetEnv(), "config environment (local, dev, prod)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (overrides --env)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newParamsCommand(opts))
	cmd.AddCommand(newIndexCommand(opts))

	return cmd
}

func (o *rootOptions) load() (config.Config, error) {
	if o.ConfigPath != "" {
		return config.LoadFile(o.ConfigPath)
	}
	return config.Load(o.Env)
}
