package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"resident/pkg/resident"
)

func newScheduleCmd() *cobra.Command {
	var (
		count int
		from  string
	)
	cmd := &cobra.Command{
		Use:   "schedule <expr>",
		Short: "Preview the next ticks of a schedule expression",
		Long: `Preview the next ticks of a schedule expression.

Accepted forms: cron with or without seconds ("*/10 * * * * *", "0 3 * * *"),
descriptors ("@hourly"), and intervals ("interval:30s", "every:5m", "10m", "01:30").`,
		Example: `  resident schedule "0 15,45 * * * *" -n 3`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expr := strings.Join(args, " ")
			sched, err := resident.ParseSchedule(expr)
			if err != nil {
				return err
			}
			start := time.Now()
			if from != "" {
				if start, err = time.Parse(time.RFC3339, from); err != nil {
					return fmt.Errorf("--from: %w", err)
				}
			}
			ticks := resident.PreviewNext(sched, start, count)
			if len(ticks) == 0 {
				cmd.Println("no upcoming ticks")
				return nil
			}
			for _, t := range ticks {
				cmd.Println(t.Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of ticks to print")
	cmd.Flags().StringVar(&from, "from", "", "start time (RFC3339); default now")
	return cmd
}
