// cmd/modbus-scout/config.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tamzrod/modbus-scout/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or store the comm settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings (file + flags + environment)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadSettings()
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(c)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", cmdConfigPath(), out)
		return nil
	},
}

var configSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Write the effective settings back to the config file",
	Example: `  modbus-scout config save --port COM4 --baudrate 19200 --parity even`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadSettings()
		if err != nil {
			return err
		}
		path := cmdConfigPath()
		if err := config.Save(path, c); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSaveCmd)
}

func cmdConfigPath() string {
	return viper.GetString("config")
}
