package main

import (
	"encoding/json"
	"fmt"

	"github.com/pthm/webchat"
	"github.com/pthm/webchat/lib/configfile"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var debug bool

	root := &cobra.Command{
		Use:           "webchat",
		Short:         "Inspect widget configs and serve a development host page",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			webchat.SetEnableDebug(debug)
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Print lifecycle diagnostics")

	root.AddCommand(newResolveCmd(), newValidateCmd(), newServeCmd(), newVersionCmd())
	return root
}

func newResolveCmd() *cobra.Command {
	var (
		file    string
		hostURL string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:     "resolve",
		Short:   "Print the script URL and fingerprint for a config",
		Example: "  webchat resolve -f widget.yaml\n  webchat resolve -f widget.toml --host-url https://cdn.example.com",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(file)
			if err != nil {
				return err
			}
			url := webchat.ScriptURL(cfg, hostURL)
			event := webchat.ResponseEventName(cfg.Version())

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]string{
					"url":         url,
					"fingerprint": cfg.Fingerprint(),
					"version":     cfg.Version(),
					"event":       event,
				})
			}
			fmt.Fprintf(out, "url:         %s\n", url)
			fmt.Fprintf(out, "fingerprint: %s\n", cfg.Fingerprint())
			fmt.Fprintf(out, "version:     %s\n", cfg.Version())
			fmt.Fprintf(out, "event:       %s\n", event)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Config file (.yaml, .yml, .json, .toml)")
	cmd.Flags().StringVar(&hostURL, "host-url", "", "Override the script host")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:     "validate",
		Short:   "Check a config file for required keys",
		Example: "  webchat validate -f widget.toml",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%s)\n", file, cfg.Fingerprint())
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Config file (.yaml, .yml, .json, .toml)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "webchat version %s\n", version)
		},
	}
}

func loadConfig(path string) (*webchat.Config, error) {
	cfg, err := configfile.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
