// Package rpc is the wire contract between daytask and its plugins: a
// hand-registered gRPC service whose messages travel as JSON.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-plugin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	PluginMapKey  = "daytask"
	serviceName   = "daytask.plugin.v1.TaskPlugin"
	jsonCodecName = "json"

	methodGetMetadata  = "/" + serviceName + "/GetMetadata"
	methodListCommands = "/" + serviceName + "/ListCommands"
	methodExecute      = "/" + serviceName + "/Execute"
)

var HandshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "DAYTASK_PLUGIN",
	MagicCookieValue: "daytask",
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return jsonCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type Empty struct{}

type Metadata struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	Capabilities []string `json:"capabilities"`
}

type CommandDescriptor struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Kind            string `json:"kind"`
	InputSchemaJSON string `json:"input_schema_json"`
	TimeoutMS       int32  `json:"timeout_ms"`
}

type ListCommandsResponse struct {
	Commands []CommandDescriptor `json:"commands"`
}

type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueAt       time.Time `json:"due_at"`
	Completed   bool      `json:"completed"`
}

type ExecuteContext struct {
	DataDir string            `json:"data_dir"`
	TaskID  string            `json:"task_id,omitempty"`
	Day     string            `json:"day,omitempty"`
	Tasks   []Task            `json:"tasks,omitempty"`
	Cwd     string            `json:"cwd"`
	Env     map[string]string `json:"env,omitempty"`
}

type ExecuteRequest struct {
	CommandID string         `json:"command_id"`
	InputJSON string         `json:"input_json"`
	Context   ExecuteContext `json:"context"`
}

type ExecuteResponse struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	OutputJSON string `json:"output_json"`
	ExitCode   int32  `json:"exit_code"`
}

type TaskPluginServer interface {
	GetMetadata(ctx context.Context, in *Empty) (*Metadata, error)
	ListCommands(ctx context.Context, in *Empty) (*ListCommandsResponse, error)
	Execute(ctx context.Context, in *ExecuteRequest) (*ExecuteResponse, error)
}

type TaskPluginClient interface {
	GetMetadata(ctx context.Context) (*Metadata, error)
	ListCommands(ctx context.Context) (*ListCommandsResponse, error)
	Execute(ctx context.Context, in *ExecuteRequest) (*ExecuteResponse, error)
}

type taskPluginClient struct {
	conn grpc.ClientConnInterface
}

func NewTaskPluginClient(conn grpc.ClientConnInterface) TaskPluginClient {
	return &taskPluginClient{conn: conn}
}

func (c *taskPluginClient) GetMetadata(ctx context.Context) (*Metadata, error) {
	out := &Metadata{}
	return out, c.invoke(ctx, methodGetMetadata, &Empty{}, out)
}

func (c *taskPluginClient) ListCommands(ctx context.Context) (*ListCommandsResponse, error) {
	out := &ListCommandsResponse{}
	return out, c.invoke(ctx, methodListCommands, &Empty{}, out)
}

func (c *taskPluginClient) Execute(ctx context.Context, in *ExecuteRequest) (*ExecuteResponse, error) {
	out := &ExecuteResponse{}
	return out, c.invoke(ctx, methodExecute, in, out)
}

func (c *taskPluginClient) invoke(ctx context.Context, method string, in, out any) error {
	return c.conn.Invoke(ctx, method, in, out, grpc.CallContentSubtype(jsonCodecName))
}

// unary builds a method descriptor that decodes Req and hands it to call,
// going through the server interceptor when one is installed.
func unary[Req any](name, fullMethod string, call func(context.Context, *Req) (any, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				typed, ok := req.(*Req)
				if !ok {
					return nil, fmt.Errorf("invalid request type %T for %s", req, fullMethod)
				}
				return call(ctx, typed)
			})
		},
	}
}

func RegisterTaskPluginServer(server grpc.ServiceRegistrar, impl TaskPluginServer) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*TaskPluginServer)(nil),
		Methods: []grpc.MethodDesc{
			unary("GetMetadata", methodGetMetadata, func(ctx context.Context, in *Empty) (any, error) {
				return impl.GetMetadata(ctx, in)
			}),
			unary("ListCommands", methodListCommands, func(ctx context.Context, in *Empty) (any, error) {
				return impl.ListCommands(ctx, in)
			}),
			unary("Execute", methodExecute, func(ctx context.Context, in *ExecuteRequest) (any, error) {
				return impl.Execute(ctx, in)
			}),
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "daytask/plugin/v1",
	}, impl)
}

type GRPCPlugin struct {
	plugin.NetRPCUnsupportedPlugin
	Impl TaskPluginServer
}

func (p *GRPCPlugin) GRPCServer(_ *plugin.GRPCBroker, server *grpc.Server) error {
	RegisterTaskPluginServer(server, p.Impl)
	return nil
}

func (p *GRPCPlugin) GRPCClient(_ context.Context, _ *plugin.GRPCBroker, conn *grpc.ClientConn) (any, error) {
	return NewTaskPluginClient(conn), nil
}

func PluginMap(impl TaskPluginServer) map[string]plugin.Plugin {
	return map[string]plugin.Plugin{
		PluginMapKey: &GRPCPlugin{Impl: impl},
	}
}
