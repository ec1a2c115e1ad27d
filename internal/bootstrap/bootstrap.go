package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	plugininadapter "daytask/internal/modules/plugin/adapter/in"
	pluginoutadapter "daytask/internal/modules/plugin/adapter/out"
	pluginin "daytask/internal/modules/plugin/port/in"
	pluginservice "daytask/internal/modules/plugin/service"
	pluginusecase "daytask/internal/modules/plugin/usecase"
	taskinadapter "daytask/internal/modules/task/adapter/in"
	taskoutadapter "daytask/internal/modules/task/adapter/out"
	"daytask/internal/modules/task/domain"
	taskdto "daytask/internal/modules/task/dto"
	taskin "daytask/internal/modules/task/port/in"
	taskout "daytask/internal/modules/task/port/out"
	taskservice "daytask/internal/modules/task/service"
	taskusecase "daytask/internal/modules/task/usecase"
	"daytask/internal/platform/clock"
	"daytask/internal/platform/config"
	"daytask/internal/platform/id"
	"daytask/internal/platform/logging"
	uiapp "daytask/internal/ui/app"
)

type Options struct {
	// Memory keeps tasks in process memory instead of SQLite.
	Memory bool
	// LogWriter receives logs at warn and above. Nil means cfg.LogFile at cfg.LogLevel.
	LogWriter io.Writer
}

type App struct {
	Config   config.Config
	Location *time.Location
	Logger   *slog.Logger

	Planner taskin.Usecase
	Plugins pluginin.Usecase

	TaskCLI   taskinadapter.CLIHandler
	PluginCLI plugininadapter.CLIHandler

	closers []func() error
}

func New(cfg config.Config, opts Options) (*App, error) {
	app := &App{Config: cfg}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	weekStart, err := config.ParseWeekday(cfg.WeekStart)
	if err != nil {
		return nil, err
	}
	app.Location = loc

	logOut := opts.LogWriter
	level := cfg.LogLevel
	if logOut != nil {
		level = cliLevel(cfg.LogLevel)
	} else {
		f, err := logging.OpenFile(cfg.LogFile)
		if err != nil {
			return nil, err
		}
		logOut = f
		app.closers = append(app.closers, f.Close)
	}
	app.Logger = logging.New(logOut, level)

	clk := clock.SystemClock{}
	ids := id.UUID{}

	var store taskout.TaskStore
	if opts.Memory {
		store = taskoutadapter.NewMemoryTaskStore(clk, ids)
	} else {
		sqlStore, err := taskoutadapter.NewSQLiteTaskStore(cfg.DBPath, clk, ids)
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("open task store: %w", err)
		}
		store = sqlStore
		app.closers = append(app.closers, sqlStore.Close)
	}

	cal := domain.Calendar{
		Location:         loc,
		WeekStart:        weekStart,
		LegacyWeekOffset: cfg.LegacyWeekOffset,
	}
	app.Planner = taskusecase.NewPlanner(
		taskservice.NewScheduleService(clk, cal, store),
		taskservice.NewTaskService(store),
		taskoutadapter.NewVaultAgendaWriter(cfg.DataDir, clk),
		app.Logger,
	)
	app.Plugins = pluginusecase.NewInteractor(pluginservice.NewPluginService(
		pluginoutadapter.NewFileManifestStore(cfg.DataDir),
		pluginoutadapter.NewGRPCHost(logOut),
	))

	app.TaskCLI = taskinadapter.NewCLIHandler(app.Planner)
	app.PluginCLI = plugininadapter.NewCLIHandler(app.Plugins, cfg.DataDir)

	app.Logger.Debug("app ready", "data_dir", cfg.DataDir, "memory", opts.Memory, "timezone", loc.String())
	return app, nil
}

// Close releases the store and log file in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func RunTUI(app *App) error {
	model := uiapp.NewModel(app.Config.DataDir, app.Planner, app.Plugins)
	program := tea.NewProgram(model, tea.WithAltScreen())

	// Send blocks until the event loop reads, and planner calls are made
	// from inside Update, so deliver asynchronously.
	unsubscribe := app.Planner.Subscribe(func(s taskdto.SnapshotOutput) {
		go program.Send(uiapp.SnapshotMsg{Snapshot: s})
	})
	defer unsubscribe()

	_, err := program.Run()
	if err != nil {
		app.Logger.Error("tui exited", "err", err)
	}
	return err
}

// cliLevel keeps CLI stderr quiet below warn.
func cliLevel(level string) string {
	if strings.EqualFold(strings.TrimSpace(level), "error") {
		return "error"
	}
	return "warn"
}
