package playback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/cookify/internal/gesture"
	"github.com/ayusman/cookify/internal/plugin"
)

// PluginSink forwards commands to an executable plugin, for players that
// are driven through OS media keys instead of a web API.
type PluginSink struct {
	manager  *plugin.Manager
	executor *plugin.Executor
	name     string
}

// NewPluginSink creates a sink that runs the plugin called name.
func NewPluginSink(manager *plugin.Manager, executor *plugin.Executor, name string) *PluginSink {
	return &PluginSink{manager: manager, executor: executor, name: name}
}

// Dispatch implements Sink.
func (p *PluginSink) Dispatch(ctx context.Context, cmd gesture.Command) error {
	plug, err := p.manager.Get(p.name)
	if err != nil {
		return fmt.Errorf("plugin %s: %w", p.name, err)
	}

	action := string(cmd.Action)
	if !plug.Manifest.Supports(action) {
		return fmt.Errorf("plugin %s does not support %q", p.name, action)
	}

	req := &plugin.Request{
		ID:     EventID(ctx),
		Action: action,
	}
	if cmd.Action == gesture.SetVolume {
		params, err := json.Marshal(map[string]int{"volume": cmd.Volume})
		if err != nil {
			return err
		}
		req.Params = params
	}

	resp, err := p.executor.Execute(ctx, plug, req)
	if err != nil {
		return err
	}
	if !resp.Success {
		if resp.Error == "" {
			return errors.New("plugin reported failure")
		}
		return fmt.Errorf("plugin %s: %s", p.name, resp.Error)
	}
	return nil
}
