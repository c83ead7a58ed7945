package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"resident/internal/accounts"
	"resident/internal/app"
	"resident/internal/queue"
)

func newEnqueueCmd() *cobra.Command {
	var (
		queueKind string
		batch     string
		account   string
	)
	cmd := &cobra.Command{
		Use:   "enqueue [json-data]",
		Short: "Push one job for the workers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			job := queue.NewJob(batch, time.Now())
			if account != "" {
				id, err := uuid.Parse(account)
				if err != nil {
					return fmt.Errorf("--account: %w", err)
				}
				job.Account = &id
			}
			if len(args) == 1 {
				var data any
				if err := json.Unmarshal([]byte(args[0]), &data); err != nil {
					return fmt.Errorf("parse data: %w", err)
				}
				job.Data = data
			}

			a, err := app.New(cmd.Context(), flagConfig)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.Enqueue(cmd.Context(), queueKind, job); err != nil {
				return fmt.Errorf("enqueue: %w", err)
			}
			cmd.Println(job.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&queueKind, "queue", "q", "sql", "queue backend (sql, redis)")
	cmd.Flags().StringVar(&batch, "batch", "manual", "batch name recorded on the job")
	cmd.Flags().StringVar(&account, "account", "", "account id the job refers to")
	return cmd
}

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage cached accounts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "put <id|new> <content>",
		Short: "Create or replace an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := uuid.New()
			if args[0] != "new" {
				var err error
				if id, err = uuid.Parse(args[0]); err != nil {
					return fmt.Errorf("parse id: %w", err)
				}
			}
			a, err := app.New(cmd.Context(), flagConfig)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.PutAccount(cmd.Context(), accounts.Account{ID: id, Content: args[1]}); err != nil {
				return err
			}
			cmd.Println(id)
			return nil
		},
	})
	return cmd
}
