package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/bcchr/detbuilder/internal/core/api"
	"github.com/bcchr/detbuilder/internal/types"
)

var (
	runProject    string
	runRecord     string
	runEvent      string
	runInstrument string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the data entry trigger for a saved record",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.Close()

		out, err := a.svc.HandleSave(ctx, api.SaveEvent{
			Project:    types.ProjectID(runProject),
			Record:     types.RecordID(runRecord),
			Event:      runEvent,
			Instrument: runInstrument,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

func init() {
	runCmd.Flags().StringVar(&runProject, "project", "", "source project id")
	runCmd.Flags().StringVar(&runRecord, "record", "", "saved record id")
	runCmd.Flags().StringVar(&runEvent, "event", "", "event the record was saved in")
	runCmd.Flags().StringVar(&runInstrument, "instrument", "", "instrument that was saved")
	_ = runCmd.MarkFlagRequired("project")
	_ = runCmd.MarkFlagRequired("record")
	rootCmd.AddCommand(runCmd)
}
