package sandbox

import (
	"context"
	"fmt"
	"net/rpc"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-plugin"

	"github.com/meshgate/core/pkg/types"
)

// handshakeConfig is the shared secret plugin binaries must present to
// be accepted as sandbox executors.
var handshakeConfig = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "MESHGATE_SANDBOX_PLUGIN",
	MagicCookieValue: "meshgate_sandbox_v1",
}

// ToolExecutor is implemented by the out-of-process plugin binary that
// actually runs a tool. It is dispensed over go-plugin's net/rpc
// transport rather than gRPC: writing a new gRPC service by hand
// without protoc would mean fragile, hand-marshaled wire code, where
// net/rpc is a fully supported go-plugin transport that needs none of
// that — see DESIGN.md.
type ToolExecutor interface {
	Execute(args ToolExecuteArgs) (ToolExecuteReply, error)
}

// ToolExecuteArgs is the net/rpc request for one tool invocation.
type ToolExecuteArgs struct {
	ToolName  string
	Arguments map[string]any
}

// ToolExecuteReply is the net/rpc response for one tool invocation.
type ToolExecuteReply struct {
	Success  bool
	Output   any
	ErrCode  string
	ErrMsg   string
	Stdout   string
	Stderr   string
	ExitCode *int
}

// ToolExecutorPlugin adapts a ToolExecutor to go-plugin's net/rpc
// plugin.Plugin interface.
type ToolExecutorPlugin struct {
	Impl ToolExecutor
}

func (p *ToolExecutorPlugin) Server(*plugin.MuxBroker) (any, error) {
	return &toolExecutorRPCServer{impl: p.Impl}, nil
}

func (p *ToolExecutorPlugin) Client(_ *plugin.MuxBroker, c *rpc.Client) (any, error) {
	return &toolExecutorRPCClient{client: c}, nil
}

type toolExecutorRPCServer struct {
	impl ToolExecutor
}

func (s *toolExecutorRPCServer) Execute(args ToolExecuteArgs, reply *ToolExecuteReply) error {
	r, err := s.impl.Execute(args)
	if err != nil {
		return err
	}
	*reply = r
	return nil
}

type toolExecutorRPCClient struct {
	client *rpc.Client
}

func (c *toolExecutorRPCClient) Execute(args ToolExecuteArgs) (ToolExecuteReply, error) {
	var reply ToolExecuteReply
	err := c.client.Call("Plugin.Execute", args, &reply)
	return reply, err
}

// PluginDriverConfig locates the per-tool executor binaries.
type PluginDriverConfig struct {
	// BinaryDir holds one executable per image name (tool-<id> or
	// generic-runtime), matching SandboxConfig.Image.
	BinaryDir string
}

// PluginDriver launches each sandbox as a real OS process over
// hashicorp/go-plugin, giving process-level isolation without a
// container runtime.
type PluginDriver struct {
	cfg    PluginDriverConfig
	logger hclog.Logger
}

// NewPluginDriver returns a PluginDriver that looks up executor
// binaries under cfg.BinaryDir.
func NewPluginDriver(cfg PluginDriverConfig) *PluginDriver {
	return &PluginDriver{
		cfg: cfg,
		logger: hclog.New(&hclog.LoggerOptions{
			Name:  "meshgate-sandbox-plugin",
			Level: hclog.Info,
		}),
	}
}

type pluginHandle struct {
	client   *plugin.Client
	executor ToolExecutor
}

func (d *PluginDriver) Create(ctx context.Context, cfg types.SandboxConfig) (Handle, error) {
	path := filepath.Join(d.cfg.BinaryDir, cfg.Image)

	client := plugin.NewClient(&plugin.ClientConfig{
		HandshakeConfig: handshakeConfig,
		Plugins:         map[string]plugin.Plugin{"tool_executor": &ToolExecutorPlugin{}},
		Cmd:             exec.Command(path),
		Logger:          d.logger,
		AllowedProtocols: []plugin.Protocol{
			plugin.ProtocolNetRPC,
		},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("sandbox create: %w", err)
	}

	raw, err := rpcClient.Dispense("tool_executor")
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("sandbox create: dispense: %w", err)
	}

	executor, ok := raw.(ToolExecutor)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("sandbox create: plugin at %s does not implement ToolExecutor", path)
	}

	return &pluginHandle{client: client, executor: executor}, nil
}

func (d *PluginDriver) Run(ctx context.Context, handle Handle, tool types.ToolDefinition, args map[string]any, timeout time.Duration) (*types.ExecutionResult, error) {
	h, ok := handle.(*pluginHandle)
	if !ok {
		return nil, fmt.Errorf("sandbox run: invalid handle")
	}

	type outcome struct {
		reply ToolExecuteReply
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		reply, err := h.executor.Execute(ToolExecuteArgs{ToolName: tool.Name, Arguments: args})
		done <- outcome{reply: reply, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, &types.ExecutionError{Code: "TIMEOUT", Message: fmt.Sprintf("tool execution exceeded %s", timeout)}
	case o := <-done:
		if o.err != nil {
			return nil, fmt.Errorf("sandbox run: %w", o.err)
		}
		if !o.reply.Success {
			return &types.ExecutionResult{
				Success: false,
				Err: &types.ExecutionError{
					Code:     o.reply.ErrCode,
					Message:  o.reply.ErrMsg,
					Stdout:   o.reply.Stdout,
					Stderr:   o.reply.Stderr,
					ExitCode: o.reply.ExitCode,
				},
			}, nil
		}
		return &types.ExecutionResult{Success: true, Output: o.reply.Output}, nil
	}
}

func (d *PluginDriver) Destroy(ctx context.Context, handle Handle) error {
	h, ok := handle.(*pluginHandle)
	if !ok {
		return fmt.Errorf("sandbox destroy: invalid handle")
	}
	h.client.Kill()
	return nil
}

var _ Driver = (*PluginDriver)(nil)
