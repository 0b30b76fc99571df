// Package main provides a system control plugin for macOS and Linux.
// It drives the desktop media player: AppleScript on macOS, playerctl and
// pactl on Linux.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
)

// Request represents the input from the plugin executor.
type Request struct {
	ID     string          `json:"id,omitempty"`
	Action string          `json:"action"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// volumeParams carries the target level of a volume action.
type volumeParams struct {
	Volume *int `json:"volume"`
}

// actionHandler defines a function type for handling specific actions.
type actionHandler func(params json.RawMessage) error

// actionHandlers maps action names to their handler functions.
var actionHandlers = map[string]actionHandler{
	"play":     func(json.RawMessage) error { return media("play") },
	"pause":    func(json.RawMessage) error { return media("pause") },
	"next":     func(json.RawMessage) error { return media("next") },
	"previous": func(json.RawMessage) error { return media("previous") },
	"volume":   setVolume,
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	handler, ok := actionHandlers[req.Action]
	if !ok {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	if err := handler(req.Params); err != nil {
		writeErrorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
		return
	}

	writeSuccessResponse()
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}

// macKeyCodes are the System Events key codes of the media keys.
var macKeyCodes = map[string]int{
	"play":     100,
	"pause":    100,
	"next":     101,
	"previous": 98,
}

// media sends a transport command to the active player.
func media(action string) error {
	switch runtime.GOOS {
	case "darwin":
		return runAppleScript(fmt.Sprintf("tell application \"System Events\"\n\tkey code %d\nend tell", macKeyCodes[action]))
	case "linux":
		return run("playerctl", action)
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
}

// setVolume sets the output volume to an absolute level.
func setVolume(raw json.RawMessage) error {
	var p volumeParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return fmt.Errorf("invalid params: %w", err)
		}
	}
	if p.Volume == nil {
		return fmt.Errorf("missing volume")
	}
	v := *p.Volume
	if v < 0 || v > 100 {
		return fmt.Errorf("volume %d out of range 0-100", v)
	}

	switch runtime.GOOS {
	case "darwin":
		return runAppleScript(fmt.Sprintf("set volume output volume %d", v))
	case "linux":
		return run("pactl", "set-sink-volume", "@DEFAULT_SINK@", strconv.Itoa(v)+"%")
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
}

// runAppleScript executes an AppleScript command and returns any error.
func runAppleScript(script string) error {
	return run("osascript", "-e", script)
}

func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}
