// File: internal/jsonrpc/methods.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package jsonrpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/momentics/hioload-rpc/api"
)

// Version is the interface version triple.
type Version struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`
}

// DefaultVersion is reported unless WithVersion overrides it.
var DefaultVersion = Version{Major: 13, Minor: 0, Patch: 0}

// Configuration is the per-client notification setup.
type Configuration struct {
	Notifications map[string]bool `json:"notifications"`
}

type notifyAllParams struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func (p *Processor) registerBuiltins() {
	p.Register("JSONRPC.Ping", api.PermissionReadData, func(context.Context, *Call) (any, *Error) {
		return "pong", nil
	})
	p.Register("JSONRPC.Version", api.PermissionReadData, func(context.Context, *Call) (any, *Error) {
		return map[string]Version{"version": p.version}, nil
	})
	p.Register("JSONRPC.Permission", api.PermissionReadData, permission)
	p.Register("JSONRPC.GetConfiguration", api.PermissionReadData, func(_ context.Context, call *Call) (any, *Error) {
		return configuration(call.Client.AnnouncementFlags()), nil
	})
	p.Register("JSONRPC.SetConfiguration", api.PermissionControlNotify, setConfiguration)
	p.Register("JSONRPC.NotifyAll", api.PermissionControlNotify, p.notifyAll)
}

func permission(_ context.Context, call *Call) (any, *Error) {
	granted := call.Client.PermissionFlags()
	out := make(map[string]bool)
	for bit := api.PermissionFlags(1); bit <= api.PermissionAll; bit <<= 1 {
		out[bit.String()] = granted.Has(bit)
	}
	return out, nil
}

func configuration(flags api.AnnouncementFlags) Configuration {
	cfg := Configuration{Notifications: make(map[string]bool)}
	for bit := api.AnnouncementFlags(1); bit <= api.AnnounceAll; bit <<= 1 {
		cfg.Notifications[bit.String()] = flags&bit != 0
	}
	return cfg
}

func setConfiguration(_ context.Context, call *Call) (any, *Error) {
	var params Configuration
	if len(call.Params) == 0 {
		return nil, InvalidParams("notifications required")
	}
	if err := json.Unmarshal(call.Params, &params); err != nil {
		return nil, InvalidParams(err.Error())
	}

	flags := call.Client.AnnouncementFlags()
	for name, on := range params.Notifications {
		bit, ok := api.ParseAnnouncementFlag(name)
		if !ok {
			return nil, InvalidParams(fmt.Sprintf("unknown notification %q", name))
		}
		if on {
			flags |= bit
		} else {
			flags &^= bit
		}
	}
	if !call.Client.SetAnnouncementFlags(flags) {
		return nil, newError(CodeInternalError, "client disconnected")
	}
	return configuration(flags), nil
}

func (p *Processor) notifyAll(_ context.Context, call *Call) (any, *Error) {
	var params notifyAllParams
	if len(call.Params) == 0 {
		return nil, InvalidParams("sender and message required")
	}
	if err := json.Unmarshal(call.Params, &params); err != nil {
		return nil, InvalidParams(err.Error())
	}
	if params.Sender == "" || params.Message == "" {
		return nil, InvalidParams("sender and message required")
	}

	announcer := p.announcer
	if announcer == nil {
		announcer, _ = call.Transport.(api.Announcer)
	}
	if announcer == nil || !call.Transport.GetCapabilities().Has(api.CapabilityAnnouncing) {
		return nil, newError(CodeInternalError, "transport cannot announce")
	}
	announcer.Announce(api.AnnounceOther, params.Sender, params.Message, params.Data)
	return "OK", nil
}
