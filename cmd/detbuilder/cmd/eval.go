package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bcchr/detbuilder/internal/types"
)

var (
	evalProject string
	evalRecord  string
	evalTrace   bool
)

var evalCmd = &cobra.Command{
	Use:   "eval <condition>",
	Short: "Evaluate a trigger condition against a stored record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.svc.Explain(ctx, types.ProjectID(evalProject), types.RecordID(evalRecord), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if evalTrace {
			for _, c := range res.Clauses {
				fmt.Fprintf(out, "%-40s event=%s value=%q -> %t\n", c.Clause.String(), c.Event, c.Value, c.Matched)
			}
		}
		fmt.Fprintln(out, res.Matched)
		return nil
	},
}

func init() {
	evalCmd.Flags().StringVar(&evalProject, "project", "", "source project id")
	evalCmd.Flags().StringVar(&evalRecord, "record", "", "record id")
	evalCmd.Flags().BoolVar(&evalTrace, "trace", false, "print each clause outcome")
	_ = evalCmd.MarkFlagRequired("project")
	_ = evalCmd.MarkFlagRequired("record")
	rootCmd.AddCommand(evalCmd)
}
