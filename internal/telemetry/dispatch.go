package telemetry

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Handler answers one control command, given its raw args, returning
// a JSON-serializable result or an error.
type Handler func(args json.RawMessage) (interface{}, error)

// Dispatcher routes named control commands (pause, resume, close_all,
// get_state, load_model, ...) to handlers registered by the
// orchestrator, per the command surface in §4.8.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewDispatcher returns an empty Dispatcher; register commands with
// Register before wiring it into a Hub.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

// Register binds a command name to its handler. Re-registering a name
// replaces the previous handler.
func (d *Dispatcher) Register(command string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[command] = h
}

// Dispatch decodes msg's CommandPayload and invokes the matching
// handler, returning a CommandResultPayload ready to be published
// back to the caller under the same correlation id.
func (d *Dispatcher) Dispatch(msg Message) CommandResultPayload {
	var cmd CommandPayload
	if err := json.Unmarshal(msg.Data, &cmd); err != nil {
		return CommandResultPayload{OK: false, Error: "malformed command payload: " + err.Error()}
	}

	d.mu.RLock()
	handler, ok := d.handlers[cmd.Command]
	d.mu.RUnlock()
	if !ok {
		return CommandResultPayload{OK: false, Error: fmt.Sprintf("unknown command %q", cmd.Command)}
	}

	result, err := handler(cmd.Args)
	if err != nil {
		return CommandResultPayload{OK: false, Error: err.Error()}
	}
	data, err := json.Marshal(result)
	if err != nil {
		return CommandResultPayload{OK: false, Error: "failed to marshal result: " + err.Error()}
	}
	return CommandResultPayload{OK: true, Result: data}
}

// Commands enumerates the full control-command surface; orchestrator
// wiring registers a Handler for each it supports.
const (
	CmdPause              = "pause"
	CmdResume             = "resume"
	CmdCloseAll           = "close_all"
	CmdClosePosition      = "close_position"
	CmdStatus             = "status"
	CmdGetState           = "get_state"
	CmdListModels         = "list_models"
	CmdGetAvailableModels = "get_available_models"
	CmdLoadModel          = "load_model"
	CmdUnloadModel        = "unload_model"
	CmdGetSymbolConfig    = "get_symbol_config"
	CmdSetSymbolConfig    = "set_symbol_config"
	CmdGetGeneralConfig   = "get_general_config"
	CmdSetGeneralConfig   = "set_general_config"
)
