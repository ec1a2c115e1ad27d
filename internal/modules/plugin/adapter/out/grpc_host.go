package out

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	pluginrpc "daytask/internal/modules/plugin/adapter/out/rpc"
	"daytask/internal/modules/plugin/domain"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"
)

const (
	defaultStartTimeout = 3 * time.Second
	defaultCallTimeout  = 5 * time.Second
)

// GRPCHost starts the plugin binary for every call and kills it afterwards.
// go-plugin's own log lines go to logOutput at warn level.
type GRPCHost struct {
	logOutput io.Writer
}

func NewGRPCHost(logOutput io.Writer) *GRPCHost {
	if logOutput == nil {
		logOutput = io.Discard
	}
	return &GRPCHost{logOutput: logOutput}
}

func (h *GRPCHost) CheckLifecycle(ctx context.Context, manifest domain.Manifest) error {
	_, err := h.GetMetadata(ctx, manifest)
	return err
}

func (h *GRPCHost) GetMetadata(ctx context.Context, manifest domain.Manifest) (domain.Metadata, error) {
	var out domain.Metadata
	err := h.withClient(ctx, manifest, defaultCallTimeout, func(ctx context.Context, client pluginrpc.TaskPluginClient) error {
		meta, err := client.GetMetadata(ctx)
		if err != nil {
			return fmt.Errorf("get metadata: %w", err)
		}
		out = domain.Metadata{Name: meta.Name, Version: meta.Version}
		for _, capability := range meta.Capabilities {
			out.Capabilities = append(out.Capabilities, domain.Capability(capability))
		}
		return nil
	})
	return out, err
}

func (h *GRPCHost) ListCommands(ctx context.Context, manifest domain.Manifest) ([]domain.CommandDescriptor, error) {
	var out []domain.CommandDescriptor
	err := h.withClient(ctx, manifest, defaultCallTimeout, func(ctx context.Context, client pluginrpc.TaskPluginClient) error {
		response, err := client.ListCommands(ctx)
		if err != nil {
			return fmt.Errorf("list commands: %w", err)
		}
		out = make([]domain.CommandDescriptor, 0, len(response.Commands))
		for _, cmd := range response.Commands {
			out = append(out, domain.CommandDescriptor{
				ID:              cmd.ID,
				Title:           cmd.Title,
				Description:     cmd.Description,
				Kind:            domain.CommandKind(cmd.Kind),
				InputSchemaJSON: cmd.InputSchemaJSON,
				TimeoutMS:       int(cmd.TimeoutMS),
			})
		}
		return nil
	})
	return out, err
}

func (h *GRPCHost) Execute(ctx context.Context, manifest domain.Manifest, req domain.ExecuteRequest) (domain.ExecuteResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	var out domain.ExecuteResult
	err := h.withClient(ctx, manifest, timeout, func(ctx context.Context, client pluginrpc.TaskPluginClient) error {
		response, err := client.Execute(ctx, toWireRequest(req))
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: command %s after %s", domain.ErrPluginTimeout, req.CommandID, timeout)
			}
			return fmt.Errorf("execute command %s: %w", req.CommandID, err)
		}
		out = domain.ExecuteResult{
			Stdout:     response.Stdout,
			Stderr:     response.Stderr,
			OutputJSON: response.OutputJSON,
			ExitCode:   int(response.ExitCode),
		}
		return nil
	})
	return out, err
}

func (h *GRPCHost) withClient(ctx context.Context, manifest domain.Manifest, callTimeout time.Duration, fn func(context.Context, pluginrpc.TaskPluginClient) error) error {
	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig:  pluginrpc.HandshakeConfig,
		AllowedProtocols: []plugin.Protocol{plugin.ProtocolGRPC},
		Plugins:          pluginrpc.PluginMap(nil),
		Cmd:              exec.Command(manifest.Binary),
		Managed:          true,
		StartTimeout:     defaultStartTimeout,
		Logger: hclog.New(&hclog.LoggerOptions{
			Name:   "plugin." + manifest.Name,
			Output: h.logOutput,
			Level:  hclog.Warn,
		}),
	})
	defer client.Kill()

	rpcClient, err := client.Client()
	if err != nil {
		return fmt.Errorf("start plugin %s: %w", manifest.Name, err)
	}
	raw, err := rpcClient.Dispense(pluginrpc.PluginMapKey)
	if err != nil {
		return fmt.Errorf("dispense plugin %s: %w", manifest.Name, err)
	}
	typed, ok := raw.(pluginrpc.TaskPluginClient)
	if !ok {
		return fmt.Errorf("plugin %s: unexpected rpc client %T", manifest.Name, raw)
	}

	callCtx, cancel := callContext(ctx, callTimeout)
	defer cancel()
	return fn(callCtx, typed)
}

// callContext keeps a caller deadline when there is one.
func callContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

func toWireRequest(req domain.ExecuteRequest) *pluginrpc.ExecuteRequest {
	tasks := make([]pluginrpc.Task, 0, len(req.Context.Tasks))
	for _, task := range req.Context.Tasks {
		tasks = append(tasks, pluginrpc.Task{
			ID:          task.ID,
			Title:       task.Title,
			Description: task.Description,
			DueAt:       task.DueAt,
			Completed:   task.Completed,
		})
	}
	return &pluginrpc.ExecuteRequest{
		CommandID: req.CommandID,
		InputJSON: req.InputJSON,
		Context: pluginrpc.ExecuteContext{
			DataDir: req.Context.DataDir,
			TaskID:  req.Context.TaskID,
			Day:     req.Context.Day,
			Tasks:   tasks,
			Cwd:     req.Context.Cwd,
			Env:     req.Context.Env,
		},
	}
}
