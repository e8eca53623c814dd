package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mlprep/internal/common"
	"mlprep/internal/config"
	"mlprep/internal/ui"
	"mlprep/pkg/errors"
	"mlprep/pkg/models"
)

const secretMask = "********"

func newConfigCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and secure the configuration file",
	}
	cmd.AddCommand(newConfigShowCmd(g), newConfigEncryptCmd(g))
	return cmd
}

func newConfigShowCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.New(g.configFile))
			if err != nil {
				return err
			}
			maskSecrets(cfg)

			data, err := yaml.Marshal(cfg)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "Failed to render configuration")
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func maskSecrets(cfg *models.Config) {
	for _, secret := range []*string{&cfg.Warehouse.Snowflake.Password, &cfg.Warehouse.Postgres.DSN} {
		if *secret != "" {
			*secret = secretMask
		}
	}
}

func newConfigEncryptCmd(g *globalOptions) *cobra.Command {
	var backup bool

	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt secrets in the configuration file",
		Long: `Encrypt the plaintext Snowflake password and PostgreSQL DSN in the
configuration file using AES-256-GCM encryption.

The encryption key is derived from:
1. MLPREP_ENCRYPTION_KEY environment variable (if set)
2. Machine-specific identifier (hostname + home directory)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ui.Output = cmd.OutOrStdout()
			path := g.configFile
			if path == "" {
				path = config.GetConfigFile()
			}
			return encryptConfigFile(path, backup)
		},
	}
	cmd.Flags().BoolVar(&backup, "backup", true, "Create backup of original config")
	return cmd
}

// encryptConfigFile rewrites the file at path with its secrets encrypted.
// Environment overrides are not applied so they never end up in the file.
func encryptConfigFile(path string, backup bool) error {
	path = filepath.Clean(path)
	ui.ShowInfo(fmt.Sprintf("Reading configuration from: %s", path))

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrap(err, errors.ErrCodeConfigNotFound, "Configuration file not found").
				WithContext("path", path).
				WithSuggestions("Run 'mlprep setup' to create one")
		}
		return errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to read configuration").WithContext("path", path)
	}

	var cfg models.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, "Failed to parse configuration").WithContext("path", path)
	}

	changed, err := config.EncryptSecrets(&cfg)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "Failed to encrypt secrets")
	}
	if !changed {
		ui.ShowInfo("Secrets are already encrypted")
		return nil
	}

	if backup {
		backupFile := path + ".backup"
		if err := os.WriteFile(backupFile, data, common.FilePermissionSecure); err != nil {
			return errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to create backup").WithContext("path", backupFile)
		}
		ui.ShowSuccess(fmt.Sprintf("Created backup: %s", backupFile))
	}

	if err := config.Save(&cfg, path); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to save encrypted configuration").WithContext("path", path)
	}
	ui.ShowSuccess("Configuration secrets encrypted successfully")
	return nil
}
