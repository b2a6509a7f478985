package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/worktime/config"
	"github.com/warp/worktime/factory"
	"github.com/warp/worktime/tracker"
	"github.com/warp/worktime/worktime"
)

var (
	balanceAt     string
	balanceJSON   bool
	recordAt      string
	holidaysYear  int
	configInitOut string
)

var balanceCmd = &cobra.Command{
	Use:     "balance SUBJECT",
	Short:   "Print the balance of a subject",
	Example: `  worktime balance alice
  worktime balance alice --at 2026-03-02T17:30:00+01:00 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runBalance,
}

var recordCmd = &cobra.Command{
	Use:   "record SUBJECT start|end [REASON]",
	Short: "Record a START or END event",
	Long:  `Record a START or END event. END accepts a reason: lunch, short_break or end_of_day.`,
	Example: `  worktime record alice start
  worktime record alice end lunch
  worktime record alice end end_of_day --at 2026-03-02T18:00:00Z`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runRecord,
}

var holidaysCmd = &cobra.Command{
	Use:   "holidays [SUBJECT]",
	Short: "List the public and custom holidays of a year",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHolidays,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration helpers",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	RunE:  runConfigInit,
}

func init() {
	balanceCmd.Flags().StringVar(&balanceAt, "at", "", "Instant to compute at (RFC3339, default: now)")
	balanceCmd.Flags().BoolVar(&balanceJSON, "json", false, "Print the snapshot as JSON")
	recordCmd.Flags().StringVar(&recordAt, "at", "", "Event instant (RFC3339, default: now)")
	holidaysCmd.Flags().IntVar(&holidaysYear, "year", 0, "Year (default: current)")
	configInitCmd.Flags().StringVarP(&configInitOut, "output", "o", "", "Output path (default: --config)")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(balanceCmd, recordCmd, holidaysCmd, configCmd)
}

func runBalance(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	now := a.svc.Now()
	if balanceAt != "" {
		if now, err = time.Parse(time.RFC3339, balanceAt); err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
	}

	subject := worktime.SubjectID(args[0])
	snap, err := a.svc.Balance(context.Background(), subject, now)
	if err != nil {
		return err
	}

	if balanceJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	status := "idle"
	switch {
	case snap.Working:
		status = "working"
	case snap.OnBreak:
		status = "on break"
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Subject\t%s\n", subject)
	fmt.Fprintf(w, "Date\t%s (%s)\n", snap.Date, status)
	if snap.Holiday != nil {
		fmt.Fprintf(w, "Holiday\t%s\n", snap.Holiday.Name)
	}
	fmt.Fprintf(w, "Worked today\t%sh\n", factory.FormatHours(snap.WorkedTodayMinutes))
	fmt.Fprintf(w, "Breaks today\t%sh\n", factory.FormatHours(snap.BreakTodayMinutes))
	fmt.Fprintf(w, "Required today\t%sh\n", factory.FormatHours(snap.EffectiveRequiredTodayMinutes))
	fmt.Fprintf(w, "Remaining today\t%sh\n", factory.FormatHours(snap.RemainingTodayMinutes))
	fmt.Fprintf(w, "Monthly balance\t%sh (%s)\n", factory.FormatHours(snap.MonthlyBalanceMinutes), snap.Policy)
	for _, d := range snap.Diagnostics {
		fmt.Fprintf(w, "Warning\t%s\n", d)
	}
	return w.Flush()
}

func runRecord(cmd *cobra.Command, args []string) error {
	eventType, err := worktime.ParseEventType(args[1])
	if err != nil {
		return err
	}
	var reason worktime.Reason
	if len(args) == 3 {
		if reason, err = worktime.ParseReason(args[2]); err != nil {
			return err
		}
	}
	req := tracker.RecordRequest{Type: eventType, Reason: reason}
	if recordAt != "" {
		t, err := time.Parse(time.RFC3339, recordAt)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		req.At = &t
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	res, err := a.svc.RecordEvent(context.Background(), worktime.SubjectID(args[0]), req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Recorded %s %s at %s\n", res.Event.Type, res.Event.ID, res.Event.At.In(a.svc.Location()).Format(time.RFC3339))
	for _, d := range res.Diagnostics {
		fmt.Fprintf(out, "Warning: %s\n", d)
	}
	return nil
}

func runHolidays(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	year := holidaysYear
	if year == 0 {
		year = a.svc.Today().Year
	}
	var subject worktime.SubjectID
	if len(args) == 1 {
		subject = worktime.SubjectID(args[0])
	}

	views, err := a.svc.Holidays(context.Background(), subject, year)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tDAY\tNAME\tORIGIN\tSTATUS")
	for _, v := range views {
		status := "active"
		if v.Disabled {
			status = "disabled"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", v.Date, v.Date.Weekday().String()[:3], v.Name, v.Origin, status)
	}
	return w.Flush()
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configInitOut
	if path == "" {
		path = configPath
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := config.Save(path, config.Default()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
	return nil
}
