package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bcchr/detbuilder/internal/logic"
	"github.com/bcchr/detbuilder/internal/types"
)

var validateProject string

var validateCmd = &cobra.Command{
	Use:   "validate <condition>",
	Short: "Check trigger condition syntax",
	Long: `Checks a trigger condition and lists every defect found. With --project,
field and event references are checked against the project; without it
only structure is checked and no database is needed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var defects []string
		if validateProject == "" {
			defects = logic.Messages(logic.ValidateSyntax(args[0], nil))
		} else {
			ctx := context.Background()
			a, err := newApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()
			defects, err = a.svc.ValidateSyntax(ctx, types.ProjectID(validateProject), args[0])
			if err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		if len(defects) == 0 {
			fmt.Fprintln(out, "valid")
			return nil
		}
		for _, d := range defects {
			fmt.Fprintln(out, d)
		}
		return fmt.Errorf("%d syntax defect(s)", len(defects))
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateProject, "project", "", "project whose fields and events references are checked against")
	rootCmd.AddCommand(validateCmd)
}
