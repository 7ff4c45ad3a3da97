package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/harrisonrobin/recur/pkg/auth"
	"github.com/harrisonrobin/recur/pkg/cadence"
	"github.com/harrisonrobin/recur/pkg/config"
	"github.com/harrisonrobin/recur/pkg/google"
	"github.com/harrisonrobin/recur/pkg/history"
	"github.com/harrisonrobin/recur/pkg/model"
	"github.com/harrisonrobin/recur/pkg/reconcile"
	"github.com/harrisonrobin/recur/pkg/snapshot"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	flagLists           []string
	flagSnapshot        string
	flagToday           string
	flagQuiet           bool
	flagDryRun          bool
	flagFailOnError     bool
	flagStopOnListError bool
	flagJSON            bool
	flagYAML            bool
	flagDump            string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "recur",
		Short: "Advance recurring Google Tasks tagged #daily, #weekly or #monthly",
		Long: `recur scans task lists for tasks whose notes carry a #daily, #weekly or
#monthly tag. Completed tasks are unchecked and moved to their next due date,
and subtasks are reset so every cycle starts from a clean checklist.`,
		SilenceUsage: true,
		RunE:         runReconcile,
	}

	rootCmd.PersistentFlags().StringSliceVar(&flagLists, "list", nil, "Task list title to reconcile (repeatable, overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagSnapshot, "snapshot", "", "Use a JSON snapshot file instead of Google Tasks")
	rootCmd.PersistentFlags().StringVar(&flagToday, "today", "", "Reconcile as of this date (YYYY-MM-DD) instead of the local date")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Only print the run summary")
	addRunFlags(rootCmd)

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(planCmd())
	rootCmd.AddCommand(listsCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(authCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Compute updates without writing them")
	cmd.Flags().BoolVar(&flagFailOnError, "fail-on-error", false, "Exit non-zero if any task or list failed")
	cmd.Flags().BoolVar(&flagStopOnListError, "stop-on-list-error", false, "Abort at the first list that cannot be loaded")
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile recurring tasks and write the updates",
		RunE:  runReconcile,
	}
	addRunFlags(cmd)
	return cmd
}

func planCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the updates a run would make without writing them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			today, err := resolveToday()
			if err != nil {
				return err
			}
			store, _, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}

			logger := engineLogger()
			runner := &reconcile.Runner{
				Store:      store,
				Logger:     logger,
				Reconciler: reconcile.New(logger),
				Lists:      cfg.Lists,
				DryRun:     true,
			}
			rep, err := runner.Run(ctx, today)
			if err != nil {
				return err
			}
			return printPlans(os.Stdout, rep)
		},
	}
	cmd.Flags().BoolVar(&flagJSON, "json", false, "Machine-readable JSON output")
	cmd.Flags().BoolVar(&flagYAML, "yaml", false, "YAML output")
	return cmd
}

func listsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lists",
		Short: "List task lists, optionally dumping them to a snapshot file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, _, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}

			lists, err := store.ListTaskLists(ctx)
			if err != nil {
				return err
			}
			tasks := make(map[string][]model.Task)
			for _, l := range lists {
				items, err := store.ListTasks(ctx, l.ID)
				if err != nil {
					log.Printf("Error listing tasks of %q: %v", l.Title, err)
					continue
				}
				tasks[l.ID] = items
				fmt.Printf("%-30s %-40s %3d tasks, %3d recurring\n", l.Title, l.ID, len(items), countTagged(items))
			}

			if flagDump == "" {
				return nil
			}
			f, err := os.Create(flagDump)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := snapshot.New(lists, tasks).Encode(f); err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}
			fmt.Printf("Snapshot written to %s\n", flagDump)
			return nil
		},
	}
	cmd.Flags().StringVar(&flagDump, "dump", "", "Write every list and task to this snapshot file")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the outcome of the last run per task list",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := history.NewTable()
			if err != nil {
				return err
			}
			entries := table.Sorted()
			if len(entries) == 0 {
				fmt.Println("No runs recorded yet.")
				return nil
			}
			for _, e := range entries {
				mode := ""
				if e.DryRun {
					mode = " (dry run)"
				}
				if e.LoadError != "" {
					fmt.Printf("%-30s %s  load failed: %s%s\n", e.ListTitle, e.Today, e.LoadError, mode)
					continue
				}
				fmt.Printf("%-30s %s  planned %d, applied %d, failed %d%s\n",
					e.ListTitle, e.Today, e.Planned, e.Applied, e.Failed, mode)
			}
			return nil
		},
	}
}

func authCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with Google Tasks, replacing any cached token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			if err := auth.RemoveToken(); err != nil {
				return err
			}
			if _, err := auth.GetClient(ctx, auth.TasksScopes); err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}
			path, _ := auth.TokenPath()
			log.Printf("Authentication successful! Token saved to %s", path)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the recur configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set-lists [title...]",
		Short: "Set the default task lists to reconcile (no arguments means all lists)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.Lists = args
			if err := config.Save(cfg); err != nil {
				return fmt.Errorf("error saving config: %w", err)
			}
			if len(args) == 0 {
				fmt.Println("Default task lists cleared: all lists will be reconciled")
				return nil
			}
			fmt.Printf("Default task lists set to: %s\n", strings.Join(args, ", "))
			return nil
		},
	})
	return cmd
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	today, err := resolveToday()
	if err != nil {
		return err
	}
	store, save, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	logger := engineLogger()
	runner := &reconcile.Runner{
		Store:           store,
		Logger:          logger,
		Reconciler:      reconcile.New(logger),
		Lists:           cfg.Lists,
		DryRun:          flagDryRun,
		StopOnListError: cfg.StopOnListError || flagStopOnListError,
	}

	log.Printf("Starting tagged recurring task update for %s...", today.Format(time.DateOnly))
	rep, err := runner.Run(ctx, today)
	if err != nil {
		return err
	}
	if err := save(); err != nil {
		log.Printf("Warning: failed to save snapshot: %v", err)
	}

	if cfg.History {
		table, err := history.NewTable()
		if err != nil {
			log.Printf("Warning: failed to open run history: %v", err)
		} else {
			table.Record(rep, time.Now())
			if err := table.Save(); err != nil {
				log.Printf("Warning: failed to save run history: %v", err)
			}
		}
	}

	printSummary(os.Stdout, rep)
	if flagFailOnError && !rep.OK() {
		return fmt.Errorf("run %s finished with %d failed task(s) and %d failed list(s)", rep.RunID, rep.Failed(), len(rep.ListErrors))
	}
	return nil
}

type planOutput struct {
	Today  string           `json:"today" yaml:"today"`
	Lists  []listPlanOutput `json:"lists" yaml:"lists"`
	Failed []string         `json:"failed_lists,omitempty" yaml:"failed_lists,omitempty"`
}

type listPlanOutput struct {
	ID     string            `json:"id" yaml:"id"`
	Title  string            `json:"title" yaml:"title"`
	Writes []reconcile.Write `json:"writes" yaml:"writes"`
	Errors []string          `json:"errors,omitempty" yaml:"errors,omitempty"`
}

func printPlans(w io.Writer, rep *reconcile.RunReport) error {
	out := planOutput{Today: rep.Today.Format(time.DateOnly)}
	for _, l := range rep.Lists {
		lo := listPlanOutput{ID: l.ListID, Title: l.ListTitle, Writes: []reconcile.Write{}}
		for _, r := range l.Results {
			lo.Writes = append(lo.Writes, r.Write)
		}
		for _, e := range l.Errors {
			lo.Errors = append(lo.Errors, e.Error())
		}
		out.Lists = append(out.Lists, lo)
	}
	for _, le := range rep.ListErrors {
		out.Failed = append(out.Failed, le.Error())
	}

	switch {
	case flagJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case flagYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(out)
	}

	for _, lo := range out.Lists {
		fmt.Fprintf(w, "%s (%d updates)\n", lo.Title, len(lo.Writes))
		for _, wr := range lo.Writes {
			due := "none"
			if wr.Update.Due != nil {
				due = wr.Update.Due.Format(time.DateOnly)
			}
			fmt.Fprintf(w, "  %-16s %-40q status=%s due=%s\n", wr.Action, wr.Update.Title, wr.Update.Status, due)
		}
		for _, e := range lo.Errors {
			fmt.Fprintf(w, "  error: %s\n", e)
		}
	}
	for _, f := range out.Failed {
		fmt.Fprintf(w, "error: %s\n", f)
	}
	return nil
}

func printSummary(w io.Writer, rep *reconcile.RunReport) {
	mode := ""
	if rep.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "Run %s for %s%s\n", rep.RunID, rep.Today.Format(time.DateOnly), mode)
	for _, l := range rep.Lists {
		fmt.Fprintf(w, "  %-30s planned %d, applied %d, failed %d\n", l.ListTitle, l.Planned, l.Applied, len(l.Errors))
		for _, e := range l.Errors {
			fmt.Fprintf(w, "    %v\n", e)
		}
		if l.Interrupted {
			fmt.Fprintln(w, "    interrupted before all updates were sent")
		}
	}
	for _, le := range rep.ListErrors {
		fmt.Fprintf(w, "  %v\n", le)
	}
}

// loadConfig applies the priority flag > config file > default.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if len(flagLists) > 0 {
		cfg.Lists = flagLists
	}
	return cfg, nil
}

func resolveToday() (time.Time, error) {
	if flagToday == "" {
		return cadence.Today(time.Now()), nil
	}
	t, err := time.Parse(time.DateOnly, flagToday)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --today %q: %w", flagToday, err)
	}
	return cadence.Date(t), nil
}

// openStore returns the task store and a function that persists local
// changes, which is a no-op for Google Tasks.
func openStore(ctx context.Context, cfg *config.Config) (reconcile.Store, func() error, error) {
	if flagSnapshot != "" {
		s, err := snapshot.Open(flagSnapshot)
		if err != nil {
			return nil, nil, fmt.Errorf("error opening snapshot: %w", err)
		}
		return s, s.Save, nil
	}

	c, err := google.NewClient(ctx, cfg.MaxRetries)
	if err != nil {
		return nil, nil, fmt.Errorf("error creating Google Tasks client: %w", err)
	}
	return c, func() error { return nil }, nil
}

func engineLogger() *log.Logger {
	if flagQuiet {
		return log.New(io.Discard, "", 0)
	}
	return log.Default()
}

func countTagged(tasks []model.Task) int {
	n := 0
	for _, t := range tasks {
		if cadence.Parse(t.Notes) != cadence.None {
			n++
		}
	}
	return n
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
