package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"daytask/internal/bootstrap"
	plugindto "daytask/internal/modules/plugin/dto"
	taskdto "daytask/internal/modules/task/dto"
	"daytask/internal/platform/config"
)

const dueLayout = "2006-01-02 15:04"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	dir    string
	memory bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "daytask",
		Short:         "Week-at-a-glance task planner",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dir, "dir", config.DefaultDataDir(), "data directory")
	root.PersistentFlags().BoolVar(&opts.memory, "memory", false, "keep tasks in memory for this run only")

	root.AddCommand(newTUICmd(opts))
	root.AddCommand(newWeekCmd(opts))
	root.AddCommand(newDayCmd(opts))
	root.AddCommand(newAddCmd(opts))
	root.AddCommand(newEditCmd(opts))
	root.AddCommand(newCompleteCmd(opts))
	root.AddCommand(newDeleteCmd(opts))
	root.AddCommand(newExportCmd(opts))
	root.AddCommand(newConfigCmd(opts))
	root.AddCommand(newPluginCmd(opts))
	return root
}

// withApp builds the app with CLI logging to stderr and closes it after fn.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(*bootstrap.App) error) (err error) {
	cfg, err := config.New(opts.dir)
	if err != nil {
		return err
	}
	app, err := bootstrap.New(cfg, bootstrap.Options{Memory: opts.memory, LogWriter: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(app)
}

func newTUICmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run the terminal UI",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.New(opts.dir)
			if err != nil {
				return err
			}
			app, err := bootstrap.New(cfg, bootstrap.Options{Memory: opts.memory})
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			return bootstrap.RunTUI(app)
		},
	}
}

func newWeekCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "week",
		Short: "Print the seven days of the current week",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(app *bootstrap.App) error {
				for _, d := range app.TaskCLI.Week().Days {
					mark := " "
					if d.Today {
						mark = "*"
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", mark, d.Date.Format(time.DateOnly), d.Date.Format("Mon"))
				}
				return nil
			})
		},
	}
}

func newDayCmd(opts *rootOptions) *cobra.Command {
	var date string
	day := &cobra.Command{
		Use:   "day [--date YYYY-MM-DD]",
		Short: "List the tasks due on a day, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(app *bootstrap.App) error {
				d, err := parseDate(date, app.Location)
				if err != nil {
					return err
				}
				out, err := app.TaskCLI.Day(context.Background(), d)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), out.Day.Format("Monday, January 2, 2006"))
				if len(out.Tasks) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No tasks found!!!")
					return nil
				}
				for _, t := range out.Tasks {
					printTask(cmd.OutOrStdout(), t)
				}
				return nil
			})
		},
	}
	day.Flags().StringVar(&date, "date", "", "day to list (YYYY-MM-DD, default today)")
	return day
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	var title, description, due string
	add := &cobra.Command{
		Use:   "add --title <title> --description <text> [--due \"YYYY-MM-DD HH:MM\"]",
		Short: "Create a task",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(app *bootstrap.App) error {
				var dueAt time.Time
				if strings.TrimSpace(due) != "" {
					parsed, err := time.ParseInLocation(dueLayout, strings.TrimSpace(due), app.Location)
					if err != nil {
						return fmt.Errorf("--due must look like %q", dueLayout)
					}
					dueAt = parsed
				}
				task, err := app.TaskCLI.Add(context.Background(), title, description, dueAt)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created %s due=%s\n", task.ID, task.DueAt.Format(dueLayout))
				return nil
			})
		},
	}
	add.Flags().StringVar(&title, "title", "", "task title")
	add.Flags().StringVar(&description, "description", "", "task description (markdown)")
	add.Flags().StringVar(&due, "due", "", "due date and time (default now)")
	return add
}

func newEditCmd(opts *rootOptions) *cobra.Command {
	var taskID, title, description string
	edit := &cobra.Command{
		Use:   "edit --id <id> [--title <title>] [--description <text>]",
		Short: "Change a task's title or description; the due date is fixed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(taskID) == "" {
				return fmt.Errorf("--id is required")
			}
			return withApp(cmd, opts, func(app *bootstrap.App) error {
				task, err := app.TaskCLI.Edit(context.Background(), taskID, title, description)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", task.ID)
				return nil
			})
		},
	}
	edit.Flags().StringVar(&taskID, "id", "", "task id")
	edit.Flags().StringVar(&title, "title", "", "new title (default unchanged)")
	edit.Flags().StringVar(&description, "description", "", "new description (default unchanged)")
	return edit
}

func newCompleteCmd(opts *rootOptions) *cobra.Command {
	var taskID string
	complete := &cobra.Command{
		Use:   "complete --id <id>",
		Short: "Mark a task completed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(taskID) == "" {
				return fmt.Errorf("--id is required")
			}
			return withApp(cmd, opts, func(app *bootstrap.App) error {
				task, err := app.TaskCLI.Complete(context.Background(), taskID)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "completed %s\n", task.ID)
				return nil
			})
		},
	}
	complete.Flags().StringVar(&taskID, "id", "", "task id")
	return complete
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	var taskID string
	del := &cobra.Command{
		Use:   "delete --id <id>",
		Short: "Delete a task",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(taskID) == "" {
				return fmt.Errorf("--id is required")
			}
			return withApp(cmd, opts, func(app *bootstrap.App) error {
				if err := app.TaskCLI.Delete(context.Background(), taskID); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", taskID)
				return nil
			})
		},
	}
	del.Flags().StringVar(&taskID, "id", "", "task id")
	return del
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var date string
	export := &cobra.Command{
		Use:   "export [--date YYYY-MM-DD]",
		Short: "Write a day's tasks to a markdown agenda note",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(app *bootstrap.App) error {
				d, err := parseDate(date, app.Location)
				if err != nil {
					return err
				}
				out, err := app.TaskCLI.Export(context.Background(), d)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "exported %d tasks to %s\n", out.Count, out.Path)
				return nil
			})
		},
	}
	export.Flags().StringVar(&date, "date", "", "day to export (YYYY-MM-DD, default today)")
	return export
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Configuration file commands"}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default config.yaml into the data directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := filepath.Join(opts.dir, config.FileName)
			if err := config.WriteDefault(path, config.Default(opts.dir)); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.New(opts.dir)
			if err != nil {
				return err
			}
			payload, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "data_dir: %s\n%s", cfg.DataDir, payload)
			return nil
		},
	})
	return cfgCmd
}

func newPluginCmd(opts *rootOptions) *cobra.Command {
	plugin := &cobra.Command{Use: "plugin", Short: "Plugin operations"}
	plugin.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List plugin manifests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(app *bootstrap.App) error {
				plugins, err := app.PluginCLI.List(context.Background())
				if err != nil {
					return err
				}
				if len(plugins) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no plugins configured")
					return nil
				}
				for _, p := range plugins {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s@%s enabled=%t binary=%s capabilities=%s\n",
						p.Name, p.Version, p.Enabled, p.Binary, strings.Join(p.Capabilities, ","))
				}
				return nil
			})
		},
	})

	plugin.AddCommand(&cobra.Command{
		Use:   "doctor",
		Short: "Validate plugin checksums and lifecycle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(app *bootstrap.App) error {
				results, err := app.PluginCLI.Doctor(context.Background())
				if err != nil {
					return err
				}
				if len(results) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no plugins configured")
					return nil
				}
				for _, r := range results {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s checksum=%t binary=%t lifecycle=%t", r.Name, r.ChecksumValid, r.BinaryReachable, r.LifecycleOK)
					if r.Error != "" {
						_, _ = fmt.Fprintf(cmd.OutOrStdout(), " error=%q", r.Error)
					}
					_, _ = fmt.Fprintln(cmd.OutOrStdout())
				}
				return nil
			})
		},
	})

	var commandPluginName string
	commandsCmd := &cobra.Command{
		Use:   "commands --plugin <name>",
		Short: "List commands exposed by a plugin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(commandPluginName) == "" {
				return fmt.Errorf("--plugin is required")
			}
			return withApp(cmd, opts, func(app *bootstrap.App) error {
				commands, err := app.PluginCLI.ListCommands(context.Background(), commandPluginName)
				if err != nil {
					return err
				}
				if len(commands) == 0 {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no commands")
					return nil
				}
				for _, item := range commands {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s kind=%s timeout_ms=%d title=%q\n", item.ID, item.Kind, item.TimeoutMS, item.Title)
				}
				return nil
			})
		},
	}
	commandsCmd.Flags().StringVar(&commandPluginName, "plugin", "", "plugin name")
	plugin.AddCommand(commandsCmd)

	var execPluginName, execCommandID, execInputJSON, execTaskID, execDate string
	execCmd := &cobra.Command{
		Use:   "exec --plugin <name> --command <id>",
		Short: "Execute a plugin command against a day's tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(execPluginName) == "" || strings.TrimSpace(execCommandID) == "" {
				return fmt.Errorf("--plugin and --command are required")
			}
			if err := validateJSONInput(execInputJSON); err != nil {
				return err
			}
			return withApp(cmd, opts, func(app *bootstrap.App) error {
				d, err := parseDate(execDate, app.Location)
				if err != nil {
					return err
				}
				day, err := app.TaskCLI.Day(context.Background(), d)
				if err != nil {
					return err
				}
				out, err := app.PluginCLI.Exec(context.Background(), plugindto.RunInput{
					PluginName: execPluginName,
					CommandID:  execCommandID,
					InputJSON:  execInputJSON,
					TaskID:     execTaskID,
					Day:        day.Day.Format(time.DateOnly),
					Tasks:      taskRefs(day.Tasks),
				})
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "plugin=%s command=%s kind=%s exit=%d\n", out.PluginName, out.CommandID, out.Kind, out.ExitCode)
				if strings.TrimSpace(out.Stdout) != "" {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), out.Stdout)
				}
				if strings.TrimSpace(out.Stderr) != "" {
					_, _ = fmt.Fprintln(cmd.ErrOrStderr(), out.Stderr)
				}
				if strings.TrimSpace(out.OutputJSON) != "" {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), out.OutputJSON)
				}
				return nil
			})
		},
	}
	execCmd.Flags().StringVar(&execPluginName, "plugin", "", "plugin name")
	execCmd.Flags().StringVar(&execCommandID, "command", "", "command id")
	execCmd.Flags().StringVar(&execInputJSON, "input-json", "", "JSON input payload")
	execCmd.Flags().StringVar(&execTaskID, "task-id", "", "optional task id")
	execCmd.Flags().StringVar(&execDate, "date", "", "day passed to the plugin (YYYY-MM-DD, default today)")
	plugin.AddCommand(execCmd)
	return plugin
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("--date must look like YYYY-MM-DD")
	}
	return d, nil
}

func printTask(w io.Writer, t taskdto.TaskOutput) {
	box := "[ ]"
	if t.Completed {
		box = "[x]"
	}
	_, _ = fmt.Fprintf(w, "%s %s  %s  (%s)\n", box, t.DueAt.Format("15:04"), t.Title, t.ID)
	for _, line := range strings.Split(strings.TrimSpace(t.Description), "\n") {
		_, _ = fmt.Fprintf(w, "      %s\n", line)
	}
}

func taskRefs(tasks []taskdto.TaskOutput) []plugindto.TaskRef {
	refs := make([]plugindto.TaskRef, len(tasks))
	for i, t := range tasks {
		refs[i] = plugindto.TaskRef{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			DueAt:       t.DueAt,
			Completed:   t.Completed,
		}
	}
	return refs
}

func validateJSONInput(input string) error {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	if !json.Valid([]byte(input)) {
		return fmt.Errorf("--input-json must be valid JSON")
	}
	return nil
}
