package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Scaffold a project configuration",
	Long: `Initialize a directory for use with taskaudit.

This command creates a commented .taskaudit.yaml in the target directory
and the .taskaudit/ directory that holds the run-history journal. The
directory argument is optional and defaults to the current directory.

Examples:
  taskaudit init              # Initialize current directory
  taskaudit init ./myproject  # Initialize specific directory
  taskaudit init --force      # Overwrite an existing .taskaudit.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing project config")
}

const projectConfigTemplate = `# taskaudit project configuration.
# Every key is optional; omitted keys use built-in defaults.

verify:
  # Count medium-confidence evidence (bare file existence) as verified.
  allow_medium: false
  workers: 4
  run_budget: 2m

limits:
  max_files: 2000
  max_bytes: 8388608
  max_scan_time: 10s

search:
  stage_max_files: 500
  tie_margin: 0.05

history:
  enabled: false

# Packages whose files move between each other during refactors. The
# remediation search scans related packages before the whole repository.
# related_packages:
#   - [src/auth, services/auth]
`

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return configErr(fmt.Errorf("resolving absolute path: %w", err))
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return configErr(fmt.Errorf("creating directory %s: %w", absPath, err))
	}

	fmt.Printf("Initializing taskaudit in %s...\n\n", absPath)

	configPath := filepath.Join(absPath, ".taskaudit.yaml")
	if _, err := os.Stat(configPath); err == nil && !initForce {
		printStatus("⚠", ".taskaudit.yaml already exists (use --force to overwrite)", color.FgYellow)
		return nil
	}

	if err := os.WriteFile(configPath, []byte(projectConfigTemplate), 0644); err != nil {
		printStatus("✗", "Failed to write .taskaudit.yaml", color.FgRed)
		return configErr(err)
	}
	printStatus("✓", "Created .taskaudit.yaml", color.FgGreen)

	historyDir := filepath.Join(absPath, ".taskaudit")
	if err := os.MkdirAll(historyDir, 0755); err != nil {
		printStatus("✗", "Failed to create .taskaudit directory", color.FgRed)
		return configErr(err)
	}
	printStatus("✓", "Created .taskaudit directory", color.FgGreen)

	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  taskaudit verify TASKS.md")
	return nil
}

// printStatus prints a colored status symbol with a message.
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	c.Printf("%s ", symbol)
	fmt.Println(message)
}
