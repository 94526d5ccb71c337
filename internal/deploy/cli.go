package deploy

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"aicore/internal/registry"
)

// cliConfig carries the persistent flag values shared by all subcommands.
type cliConfig struct {
	ConfigPath string
	EnvFile    string
	LogLvl     string
}

// NewRootCmd constructs the aicorectl command tree.
func NewRootCmd() *cobra.Command {
	cfg := &cliConfig{
		ConfigPath: envStr("MODEL_CONFIG_PATH", "config/models.json"),
		EnvFile:    ".env",
		LogLvl:     envStr("AICORECTL_LOG_LEVEL", "info"),
	}

	root := &cobra.Command{
		Use:           "aicorectl",
		Short:         "Operations CLI: model config, deployment, DNS, SSL and smoke checks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.ConfigPath, "config", cfg.ConfigPath, "Path to models.json")
	root.PersistentFlags().StringVar(&cfg.EnvFile, "env-file", cfg.EnvFile, "Path to the .env file")
	root.PersistentFlags().StringVar(&cfg.LogLvl, "log-level", cfg.LogLvl, "Log level: debug|info|warn|error")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		SetLogLevel(cfg.LogLvl)
	}

	root.AddCommand(
		newConfigCmd(cfg),
		newDeployCmd(cfg),
		newDNSCmd(),
		newSSLCmd(),
		newSmokeCmd(),
		newEnvCmd(cfg),
	)
	return root
}

func newConfigCmd(cfg *cliConfig) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the model configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("config requires a subcommand: list|show|validate|update|backup|restore")
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List configured models",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := registry.Load(cfg.ConfigPath)
			if err != nil {
				return err
			}
			for _, m := range f.List() {
				marker := " "
				if m.Name == f.DefaultModel {
					marker = "*"
				}
				fmt.Printf("%s %-30s %-12s %-10s %s\n", marker, m.Name, m.Format, m.MaxMemory, m.Path)
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <name>",
		Short: "Show one model's full configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := registry.Load(cfg.ConfigPath)
			if err != nil {
				return err
			}
			mc, ok := f.Models[args[0]]
			if !ok {
				return fmt.Errorf("model %q is not configured", args[0])
			}
			b, err := json.MarshalIndent(mc, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(b))
			return nil
		},
	}

	validate := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate the active config, or a candidate file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfg.ConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			f, err := registry.Load(path)
			if err != nil {
				return err
			}
			info("[config] %s: %d model(s), default %q", path, len(f.Models), f.DefaultModel)
			return nil
		},
	}

	update := &cobra.Command{
		Use:   "update <file>",
		Short: "Replace the active config with a validated candidate (backs up first)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := registry.Update(cfg.ConfigPath, args[0]); err != nil {
				return err
			}
			info("[config] %s updated from %s", cfg.ConfigPath, args[0])
			return nil
		},
	}

	backup := &cobra.Command{
		Use:   "backup",
		Short: "Write a timestamped backup of the active config",
		RunE: func(cmd *cobra.Command, args []string) error {
			dst, err := registry.Backup(cfg.ConfigPath)
			if err != nil {
				return err
			}
			info("[config] backed up to %s", dst)
			return nil
		},
	}

	restore := &cobra.Command{
		Use:   "restore [backup]",
		Short: "Restore the latest backup, or a named one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := ""
			if len(args) == 1 {
				src = args[0]
			}
			if err := registry.Restore(cfg.ConfigPath, src); err != nil {
				return err
			}
			info("[config] %s restored", cfg.ConfigPath)
			return nil
		},
	}

	configCmd.AddCommand(list, show, validate, update, backup, restore)
	return configCmd
}

func newDeployCmd(cfg *cliConfig) *cobra.Command {
	opts := ComposeOptions{}
	var waitSeconds int

	deployCmd := &cobra.Command{
		Use:   "deploy",
		Short: "Manage the docker compose stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("deploy requires a subcommand: up|down|restart|status|logs")
		},
	}
	deployCmd.PersistentFlags().StringVar(&opts.Dir, "dir", ".", "Compose project directory")
	deployCmd.PersistentFlags().StringVar(&opts.File, "file", "", "Compose file (default: the project's docker-compose.yml)")
	deployCmd.PersistentFlags().StringVar(&opts.HealthURL, "health-url",
		envStr("HEALTH_URL", "http://localhost:8000/api/v1/health"), "Health endpoint to wait on after up/restart")
	deployCmd.PersistentFlags().IntVar(&waitSeconds, "wait", 60, "Seconds to wait for health after up/restart")

	resolve := func() ComposeOptions {
		o := opts
		o.WaitFor = time.Duration(waitSeconds) * time.Second
		return o
	}

	up := &cobra.Command{Use: "up", Short: "Start the stack and wait for health", RunE: func(cmd *cobra.Command, args []string) error {
		return ComposeUp(cmd.Context(), resolve())
	}}
	down := &cobra.Command{Use: "down", Short: "Stop the stack", RunE: func(cmd *cobra.Command, args []string) error {
		return ComposeDown(cmd.Context(), resolve())
	}}
	restart := &cobra.Command{Use: "restart", Short: "Restart the stack and re-check health", RunE: func(cmd *cobra.Command, args []string) error {
		return ComposeRestart(cmd.Context(), resolve())
	}}
	status := &cobra.Command{Use: "status", Short: "Show container states", RunE: func(cmd *cobra.Command, args []string) error {
		return ComposeStatus(cmd.Context(), resolve())
	}}

	var follow bool
	logs := &cobra.Command{Use: "logs [service]", Short: "Tail service logs", Args: cobra.MaximumNArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		service := ""
		if len(args) == 1 {
			service = args[0]
		}
		return ComposeLogs(cmd.Context(), resolve(), follow, service)
	}}
	logs.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")

	deployCmd.AddCommand(up, down, restart, status, logs)
	return deployCmd
}

func newDNSCmd() *cobra.Command {
	var expectedIP string
	dnsCmd := &cobra.Command{
		Use:   "dns",
		Short: "DNS checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("dns requires a subcommand: check")
		},
	}
	check := &cobra.Command{
		Use:   "check <domain>",
		Short: "Verify the domain resolves (optionally to the expected IP)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := CheckDNS(cmd.Context(), args[0], expectedIP)
			if err != nil {
				return err
			}
			return ReportDNS(res)
		},
	}
	check.Flags().StringVar(&expectedIP, "expect", envStr("SERVER_IP", ""), "Expected server IP")
	dnsCmd.AddCommand(check)
	return dnsCmd
}

func newSSLCmd() *cobra.Command {
	var email string
	sslCmd := &cobra.Command{
		Use:   "ssl",
		Short: "TLS certificate management via certbot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("ssl requires a subcommand: obtain|renew|status|cron")
		},
	}
	obtain := &cobra.Command{
		Use:   "obtain <domain>",
		Short: "Obtain a certificate with certbot standalone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return SSLObtain(cmd.Context(), args[0], email)
		},
	}
	obtain.Flags().StringVar(&email, "email", envStr("LETSENCRYPT_EMAIL", ""), "Registration email")

	renew := &cobra.Command{Use: "renew", Short: "Run a renewal pass now", RunE: func(cmd *cobra.Command, args []string) error {
		return SSLRenew(cmd.Context())
	}}
	status := &cobra.Command{
		Use:   "status <domain>",
		Short: "Show certificate presence and expiry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := SSLStatus(args[0])
			if err != nil {
				return err
			}
			return ReportSSLStatus(st)
		},
	}
	cron := &cobra.Command{Use: "cron", Short: "Install the renewal crontab entry (idempotent)", RunE: func(cmd *cobra.Command, args []string) error {
		return SSLCron(cmd.Context())
	}}
	sslCmd.AddCommand(obtain, renew, status, cron)
	return sslCmd
}

func newSmokeCmd() *cobra.Command {
	opts := SmokeOptions{}
	var timeoutSeconds int
	smokeCmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run post-deploy smoke checks against a running instance",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Timeout = time.Duration(timeoutSeconds) * time.Second
			return Smoke(opts)
		},
	}
	smokeCmd.Flags().StringVar(&opts.BaseURL, "base-url", envStr("BASE_URL", "http://localhost:8000"), "Base URL of the deployment")
	smokeCmd.Flags().StringVar(&opts.APIKey, "api-key", os.Getenv("API_KEY"), "API key for authenticated endpoints")
	smokeCmd.Flags().IntVar(&timeoutSeconds, "timeout", 60, "Seconds to wait for the service to come up")
	return smokeCmd
}

func newEnvCmd(cfg *cliConfig) *cobra.Command {
	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Environment file checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("env requires a subcommand: validate|show")
		},
	}
	validate := &cobra.Command{Use: "validate", Short: "Check required keys and placeholder values", RunE: func(cmd *cobra.Command, args []string) error {
		return CheckEnvFile(cfg.EnvFile)
	}}
	show := &cobra.Command{Use: "show", Short: "Print the env file with secrets redacted", RunE: func(cmd *cobra.Command, args []string) error {
		return ShowEnvFile(cfg.EnvFile)
	}}
	envCmd.AddCommand(validate, show)
	return envCmd
}
