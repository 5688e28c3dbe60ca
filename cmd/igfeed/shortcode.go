package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"igfeed/pkg/shortcode"
)

// shortcodeCmd represents the shortcode command
var shortcodeCmd = &cobra.Command{
	Use:   "shortcode",
	Short: "Convert between media ids and short codes",
}

var shortcodeEncodeCmd = &cobra.Command{
	Use:     "encode <id>",
	Short:   "Print the short code of a numeric media id",
	Example: `  igfeed shortcode encode 1466366616425783113_25025320`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := shortcode.FromID(args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), code)
		return err
	},
}

var shortcodeDecodeCmd = &cobra.Command{
	Use:     "decode <code>",
	Short:   "Print the numeric media id of a short code",
	Example: `  igfeed shortcode decode BRZlKsijN9J`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := shortcode.ToID(args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
		return err
	},
}

func init() {
	shortcodeCmd.AddCommand(shortcodeEncodeCmd)
	shortcodeCmd.AddCommand(shortcodeDecodeCmd)
	rootCmd.AddCommand(shortcodeCmd)
}
