package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/solrq/internal/config"
	"github.com/kailas-cloud/solrq/internal/domain/setup"
	searchuc "github.com/kailas-cloud/solrq/internal/usecase/search"
)

type paramsOptions struct {
	Format string // "text" | "json"
}

func newParamsCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &paramsOptions{}
	cmd := &cobra.Command{
		Use:   "params <request-file>",
		Short: "Print the Solr parameters of a search request",
		Long: `Assemble a search request without sending it and print the wire
parameters, one key=value per line in key order. The request is JSON, or
YAML when the file ends in .yaml or .yml. Use "-" to read JSON from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.load()
			if err != nil {
				return err
			}
			return runParams(cmd.InOrStdin(), cmd.OutOrStdout(), cfg, args[0], opts.Format)
		},
	}
	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	return cmd
}

func runParams(stdin io.Reader, out io.Writer, cfg config.Config, path, format string) error {
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid format %q: must be text or json", format)
	}
	req, err := readRequest(stdin, path)
	if err != nil {
		return err
	}

	// Assembling needs the class setups only; nothing is loaded.
	reg, err := cfg.Registry(func(string) setup.DataAccessor { return nil })
	if err != nil {
		return err
	}
	svc := searchuc.New(nil, reg).WithDefaultPerPage(cfg.Search.DefaultPerPage)

	q, err := svc.Build(req)
	if err != nil {
		return err
	}
	p, err := svc.Params(q)
	if err != nil {
		return err
	}

	if format == "json" {
		values, err := p.Values()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"handler": q.Handler(), "params": values})
	}
	_, err = io.WriteString(out, p.Canonical())
	return err
}

func readRequest(stdin io.Reader, path string) (*searchuc.Request, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(filepath.Clean(path))
	}
	if err != nil {
		return nil, fmt.Errorf("read request: %w", err)
	}

	var req searchuc.Request
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &req)
	default:
		err = json.Unmarshal(data, &req)
	}
	if err != nil {
		return nil, fmt.Errorf("parse request %s: %w", path, err)
	}
	return &req, nil
}
