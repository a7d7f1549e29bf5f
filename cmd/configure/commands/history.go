package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history inspection command
func NewHistoryCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect daily history",
	}
	cmd.AddCommand(newHistoryListCmd(open))
	return cmd
}

func newHistoryListCmd(open Opener) *cobra.Command {
	var uid, output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's recorded days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uid = strings.TrimSpace(uid)
			if uid == "" {
				return fmt.Errorf("--uid is required")
			}
			return withRuntime(cmd.Context(), open, func(rt *Runtime) error {
				days, err := rt.Recorder.Calendar(cmd.Context(), uid)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if output != "" && output != "table" {
					return writeStructured(out, output, days)
				}
				if len(days) == 0 {
					fmt.Fprintf(out, "No history recorded for %s\n", uid)
					return nil
				}
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "DATE\tSCORE\tGOAL\tITEMS\tREACHED")
				for _, d := range days {
					fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%v\n", d.Date, d.Score, d.PointsGoal, d.ItemCount, d.GoalReached)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&uid, "uid", "", "User id (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "Output format: table, yaml or json")
	return cmd
}

// NewRolloverCmd forces the day rollover for one user
func NewRolloverCmd(open Opener) *cobra.Command {
	var uid string
	cmd := &cobra.Command{
		Use:   "rollover",
		Short: "Close a user's previous day and start today empty",
		Long:  "Runs the day rollover for one user immediately. It is a no-op when the user already rolled over today.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uid = strings.TrimSpace(uid)
			if uid == "" {
				return fmt.Errorf("--uid is required")
			}
			return withRuntime(cmd.Context(), open, func(rt *Runtime) error {
				rolled, err := rt.Recorder.Rollover(cmd.Context(), uid)
				if err != nil {
					return err
				}
				if rolled {
					fmt.Fprintf(cmd.OutOrStdout(), "Rolled %s over to %s.\n", uid, rt.Recorder.Today())
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s is already on %s.\n", uid, rt.Recorder.Today())
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&uid, "uid", "", "User id (required)")
	return cmd
}
