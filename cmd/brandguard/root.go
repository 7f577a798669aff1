package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/brandguard/internal/cli"
	"github.com/hyperjump/brandguard/internal/config"
	"github.com/hyperjump/brandguard/pkg/utils"
)

const defaultConfigPath = "/usr/local/etc/brandguard/config.yaml"

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	debug      bool
	output     string
}

// NewRootCmd creates the root brandguard command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "brandguard",
		Short:         "BrandGuard - logo similarity screening",
		Long:          "BrandGuard compares a candidate logo against a directory of reference logos and flags likely conflicts.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "config file path")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "output format: text or json")

	root.AddCommand(
		newServerCmd(opts),
		newBuildCmd(opts),
		newSearchCmd(opts),
		newStatusCmd(opts),
		newVersionCmd(),
	)
	return root
}

// format validates the --output flag.
func (o *rootOptions) format() (cli.OutputFormat, error) {
	return cli.ParseOutputFormat(o.output)
}

// setup loads config and builds the logger every local command needs.
func (o *rootOptions) setup() (*config.Config, string, *zap.Logger, error) {
	cfg, resolved, err := loadConfig(o.configPath)
	if err != nil {
		return nil, "", nil, err
	}
	debug := cfg.Debug || o.debug
	logger, err := utils.NewLogger(debug)
	if err != nil {
		return nil, "", nil, err
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))
	return cfg, resolved, logger, nil
}

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development). When neither exists the
// built-in defaults are used. Returns the config and the path that was loaded,
// or "" for defaults.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", config.Validate(cfg)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}
