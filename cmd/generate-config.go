package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/channel-detector/internal/app"
)

var generateConfigCmd = &cobra.Command{
	Use:   "generate-config <path>",
	Short: "Write an example configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := app.GenerateExampleConfig(args[0]); err != nil {
			return err
		}
		fmt.Printf("Example configuration written to %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateConfigCmd)
}
