package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/taskaudit/taskaudit/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the configuration the next run would use, after merging the
user config, the project config and TASKAUDIT_ environment variables.

Configuration is stored at ~/.config/taskaudit/config.yaml
Project-specific overrides can be placed in .taskaudit.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		wd, _ := os.Getwd()
		fmt.Printf("# user config:    %s\n", config.GetUserConfigPath())
		if project := config.FindProjectConfig(wd); project != "" {
			fmt.Printf("# project config: %s\n", project)
		} else {
			fmt.Printf("# project config: (none found)\n")
		}
		fmt.Println()

		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return configErr(fmt.Errorf("render config: %w", err))
		}
		return enc.Close()
	},
}
