package in

import (
	"context"
	"os"

	"daytask/internal/modules/plugin/dto"
	pluginin "daytask/internal/modules/plugin/port/in"
)

type CLIHandler struct {
	usecase pluginin.Usecase
	dataDir string
}

func NewCLIHandler(usecase pluginin.Usecase, dataDir string) CLIHandler {
	return CLIHandler{usecase: usecase, dataDir: dataDir}
}

func (h CLIHandler) List(ctx context.Context) ([]dto.PluginInfo, error) {
	return h.usecase.List(ctx)
}

func (h CLIHandler) Doctor(ctx context.Context) ([]dto.DoctorResult, error) {
	return h.usecase.Doctor(ctx)
}

func (h CLIHandler) ListCommands(ctx context.Context, pluginName string) ([]dto.CommandInfo, error) {
	return h.usecase.ListCommands(ctx, pluginName)
}

// Exec fills in the data dir and working directory when the caller left
// them empty.
func (h CLIHandler) Exec(ctx context.Context, input dto.RunInput) (dto.RunOutput, error) {
	if input.DataDir == "" {
		input.DataDir = h.dataDir
	}
	if input.Cwd == "" {
		if cwd, err := os.Getwd(); err == nil {
			input.Cwd = cwd
		} else {
			input.Cwd = h.dataDir
		}
	}
	return h.usecase.Run(ctx, input)
}
