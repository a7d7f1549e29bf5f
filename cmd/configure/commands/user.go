package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/benvon/embody/internal/models"
	"github.com/benvon/embody/internal/profile"
	"github.com/benvon/embody/internal/score"
	"github.com/spf13/cobra"
)

// UserView is the printable form of a user record
type UserView struct {
	UID           string     `json:"uid" yaml:"uid"`
	Email         string     `json:"email" yaml:"email"`
	Name          string     `json:"name,omitempty" yaml:"name,omitempty"`
	EmbodyGoal    string     `json:"embody_goal,omitempty" yaml:"embody_goal,omitempty"`
	PointsGoal    int        `json:"points_goal" yaml:"points_goal"`
	Score         int        `json:"score" yaml:"score"`
	LastResetDate string     `json:"last_reset_date,omitempty" yaml:"last_reset_date,omitempty"`
	HistoryDays   int        `json:"history_days" yaml:"history_days"`
	Todos         []TodoView `json:"todos" yaml:"todos"`
}

// TodoView is one printable todo item
type TodoView struct {
	ID      string `json:"id" yaml:"id"`
	Label   string `json:"label" yaml:"label"`
	Points  int    `json:"points" yaml:"points"`
	Checked bool   `json:"checked" yaml:"checked"`
}

// NewUserView flattens a user record for printing
func NewUserView(u *models.User) UserView {
	items := u.Todos.Sorted()
	todos := make([]TodoView, 0, len(items))
	for _, item := range items {
		todos = append(todos, TodoView{ID: item.ID, Label: item.Label, Points: item.Points, Checked: item.Checked})
	}
	return UserView{
		UID:           u.UID,
		Email:         u.Email,
		Name:          u.Name,
		EmbodyGoal:    u.EmbodyGoal,
		PointsGoal:    u.PointsGoal,
		Score:         score.Total(u.Todos),
		LastResetDate: u.LastResetDate,
		HistoryDays:   len(u.History),
		Todos:         todos,
	}
}

// NewUserCmd creates the user inspection command
func NewUserCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Inspect user records",
	}
	cmd.AddCommand(newUserListCmd(open))
	cmd.AddCommand(newUserShowCmd(open))
	return cmd
}

func newUserListCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored user ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd.Context(), open, func(rt *Runtime) error {
				uids, err := rt.Profiles.List(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(uids) == 0 {
					fmt.Fprintln(out, "No users stored")
					return nil
				}
				for _, uid := range uids {
					fmt.Fprintln(out, uid)
				}
				return nil
			})
		},
	}
}

func newUserShowCmd(open Opener) *cobra.Command {
	var uid, output string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print one user record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			uid = strings.TrimSpace(uid)
			if uid == "" {
				return fmt.Errorf("--uid is required")
			}
			return withRuntime(cmd.Context(), open, func(rt *Runtime) error {
				user, err := rt.Profiles.Get(cmd.Context(), uid)
				if errors.Is(err, profile.ErrProfileNotFound) {
					return fmt.Errorf("no user %s", uid)
				}
				if err != nil {
					return err
				}
				return writeStructured(cmd.OutOrStdout(), output, NewUserView(user))
			})
		},
	}
	cmd.Flags().StringVar(&uid, "uid", "", "User id (required)")
	cmd.Flags().StringVarP(&output, "output", "o", OutputYAML, "Output format: yaml or json")
	return cmd
}
