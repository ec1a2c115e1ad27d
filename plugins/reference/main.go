// Command reference is a minimal daytask plugin. It answers "echo" and
// "day-summary" and exists mostly so the host can be tested end to end.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	pluginrpc "daytask/internal/modules/plugin/adapter/out/rpc"

	"github.com/hashicorp/go-plugin"
)

type server struct{}

func (s *server) GetMetadata(_ context.Context, _ *pluginrpc.Empty) (*pluginrpc.Metadata, error) {
	return &pluginrpc.Metadata{
		Name:         "reference",
		Version:      "1.0.0",
		Capabilities: []string{"command", "analyze"},
	}, nil
}

func (s *server) ListCommands(_ context.Context, _ *pluginrpc.Empty) (*pluginrpc.ListCommandsResponse, error) {
	return &pluginrpc.ListCommandsResponse{Commands: []pluginrpc.CommandDescriptor{
		{ID: "echo", Title: "Echo", Description: "Echoes the input JSON", Kind: "command", TimeoutMS: 2000},
		{ID: "day-summary", Title: "Day summary", Description: "Counts open and completed tasks of the selected day", Kind: "analyze", TimeoutMS: 2500},
	}}, nil
}

func (s *server) Execute(_ context.Context, in *pluginrpc.ExecuteRequest) (*pluginrpc.ExecuteResponse, error) {
	switch in.CommandID {
	case "echo":
		if strings.TrimSpace(in.InputJSON) == "" {
			return &pluginrpc.ExecuteResponse{Stdout: "echo", OutputJSON: `{"echo":""}`}, nil
		}
		return &pluginrpc.ExecuteResponse{Stdout: in.InputJSON, OutputJSON: fmt.Sprintf(`{"echo":%q}`, in.InputJSON)}, nil
	case "day-summary":
		return summarize(in.Context)
	default:
		return nil, fmt.Errorf("unknown command: %s", in.CommandID)
	}
}

type summary struct {
	Day       string `json:"day"`
	Total     int    `json:"total"`
	Completed int    `json:"completed"`
	Open      int    `json:"open"`
	Next      string `json:"next,omitempty"`
}

func summarize(ctx pluginrpc.ExecuteContext) (*pluginrpc.ExecuteResponse, error) {
	out := summary{Day: ctx.Day, Total: len(ctx.Tasks)}
	open := make([]pluginrpc.Task, 0, len(ctx.Tasks))
	for _, task := range ctx.Tasks {
		if task.Completed {
			out.Completed++
			continue
		}
		open = append(open, task)
	}
	out.Open = len(open)
	sort.Slice(open, func(i, j int) bool { return open[i].DueAt.Before(open[j].DueAt) })
	if len(open) > 0 {
		out.Next = open[0].Title
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	stdout := fmt.Sprintf("%s: %d/%d done", ctx.Day, out.Completed, out.Total)
	return &pluginrpc.ExecuteResponse{Stdout: stdout, OutputJSON: string(raw)}, nil
}

func main() {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: pluginrpc.HandshakeConfig,
		Plugins:         pluginrpc.PluginMap(&server{}),
		GRPCServer:      plugin.DefaultGRPCServer,
	})
}
