package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aiverify/aiv-upload/internal/config"
	"github.com/aiverify/aiv-upload/internal/constants"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage aiv-upload configuration",
		Long: `Configuration management commands for aiv-upload.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup.

The API key and proxy password are never written to the file; pass them with
AIVERIFY_API_KEY / --api-key and the runtime prompt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			out := cmd.OutOrStdout()

			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(out, "Configuration already exists at: %s\n", path)
					fmt.Fprintln(out, "Use --force to overwrite or run 'config show' to view it.")
					return nil
				}
			}

			cfg := runConfigWizard(bufio.NewReader(cmd.InOrStdin()), out)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := config.SaveConfigCSV(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			GetLogger().Info().Str("path", path).Msg("Configuration saved")
			fmt.Fprintf(out, "\n✓ Configuration saved to: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")
	return cmd
}

// runConfigWizard asks for every setting, starting from defaults.
func runConfigWizard(r *bufio.Reader, w io.Writer) *config.Config {
	cfg := config.Default()

	fmt.Fprintln(w, "AI Verify Upload Configuration")
	fmt.Fprintln(w, "==============================")
	fmt.Fprintln(w)

	cfg.APIBaseURL = promptString(r, w, "API Base URL", constants.DefaultAPIBaseURL)
	cfg.UploadKind = promptString(r, w, "Upload kind (dataset/model)", cfg.UploadKind)
	cfg.UploadWorkers = promptInt(r, w, "Upload workers", cfg.UploadWorkers)
	cfg.RetainFailed = !promptYesNo(r, w, "Drop failed folders from the queue?")

	cfg.Backend = promptString(r, w, "Backend (api/s3/azure)", cfg.Backend)
	switch cfg.Backend {
	case config.BackendS3:
		cfg.S3Bucket = promptString(r, w, "S3 bucket", "")
		cfg.S3Region = promptString(r, w, "S3 region", "us-east-1")
		cfg.S3Prefix = promptString(r, w, "S3 key prefix", "")
		cfg.S3Endpoint = promptString(r, w, "S3 endpoint (blank for AWS)", "")
	case config.BackendAzure:
		cfg.AzureAccountURL = promptString(r, w, "Azure account URL", "")
		cfg.AzureContainer = promptString(r, w, "Azure container", "")
		cfg.AzurePrefix = promptString(r, w, "Azure blob prefix", "")
	}

	fmt.Fprintln(w)
	if promptYesNo(r, w, "Configure proxy?") {
		fmt.Fprintln(w, "Proxy modes: no-proxy, system, basic, ntlm")
		cfg.ProxyMode = promptString(r, w, "Proxy mode", "system")
		if cfg.ProxyMode == "basic" || cfg.ProxyMode == "ntlm" {
			cfg.ProxyHost = promptString(r, w, "Proxy host", "")
			cfg.ProxyPort = promptInt(r, w, "Proxy port", 8080)
			cfg.ProxyUser = promptString(r, w, "Proxy user", "")
			cfg.NoProxy = promptString(r, w, "Bypass hosts (comma-separated)", "")
		}
	}

	return cfg
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the merged configuration.

Priority: flags > environment (AIVERIFY_API_KEY, AIVERIFY_API_URL, HTTPS_PROXY) > config file > defaults`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			showConfig(cmd.OutOrStdout(), cfg, configPath())
			return nil
		},
	}
}

func showConfig(w io.Writer, cfg *config.Config, path string) {
	fmt.Fprintln(w, "Current Configuration")
	fmt.Fprintln(w, "=====================")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Upload Settings:")
	fmt.Fprintf(w, "  Backend:        %s\n", cfg.Backend)
	fmt.Fprintf(w, "  Upload Kind:    %s (%s)\n", cfg.UploadKind, cfg.UploadPath())
	fmt.Fprintf(w, "  Upload Workers: %d\n", cfg.UploadWorkers)
	fmt.Fprintf(w, "  Retain Failed:  %t\n", cfg.RetainFailed)
	fmt.Fprintf(w, "  Include Hidden: %t\n", cfg.IncludeHidden)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "API Settings:")
	fmt.Fprintf(w, "  API Base URL: %s\n", cfg.APIBaseURL)
	if cfg.APIKey != "" {
		// Never print any part of the key.
		fmt.Fprintf(w, "  API Key:      <set (%d chars)>\n", len(cfg.APIKey))
	} else {
		fmt.Fprintln(w, "  API Key:      <not set>")
	}
	fmt.Fprintln(w)

	switch cfg.Backend {
	case config.BackendS3:
		fmt.Fprintln(w, "S3 Settings:")
		fmt.Fprintf(w, "  Bucket:   %s\n", cfg.S3Bucket)
		fmt.Fprintf(w, "  Region:   %s\n", cfg.S3Region)
		fmt.Fprintf(w, "  Prefix:   %s\n", cfg.S3Prefix)
		if cfg.S3Endpoint != "" {
			fmt.Fprintf(w, "  Endpoint: %s\n", cfg.S3Endpoint)
		}
		fmt.Fprintln(w)
	case config.BackendAzure:
		fmt.Fprintln(w, "Azure Settings:")
		fmt.Fprintf(w, "  Account URL: %s\n", cfg.AzureAccountURL)
		fmt.Fprintf(w, "  Container:   %s\n", cfg.AzureContainer)
		fmt.Fprintf(w, "  Prefix:      %s\n", cfg.AzurePrefix)
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Proxy Settings:")
	fmt.Fprintf(w, "  Proxy Mode: %s\n", cfg.ProxyMode)
	if cfg.ProxyHost != "" {
		fmt.Fprintf(w, "  Proxy Host: %s\n", cfg.ProxyHost)
		fmt.Fprintf(w, "  Proxy Port: %d\n", cfg.ProxyPort)
	}
	if cfg.NoProxy != "" {
		fmt.Fprintf(w, "  No Proxy:   %s\n", cfg.NoProxy)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Configuration file: %s\n", path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(w, "  (file does not exist - using defaults)")
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), configPath())
		},
	}
}
