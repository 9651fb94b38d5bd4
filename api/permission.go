// File: api/permission.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import (
	"net"
	"strings"
)

// PermissionFlags is a bitset of operations a client is authorized for.
type PermissionFlags uint32

const (
	PermissionReadData PermissionFlags = 1 << iota
	PermissionControlPlayback
	PermissionControlNotify
	PermissionControlPower
	PermissionUpdateData
	PermissionRemoveData
	PermissionNavigate
	PermissionWriteFile
	PermissionControlSystem
	PermissionControlGUI
	PermissionManageAddon
	PermissionExecuteAddon
	PermissionControlPVR
)

// PermissionAll grants every operation.
const PermissionAll = PermissionReadData | PermissionControlPlayback | PermissionControlNotify |
	PermissionControlPower | PermissionUpdateData | PermissionRemoveData | PermissionNavigate |
	PermissionWriteFile | PermissionControlSystem | PermissionControlGUI | PermissionManageAddon |
	PermissionExecuteAddon | PermissionControlPVR

var permissionNames = []string{
	"ReadData",
	"ControlPlayback",
	"ControlNotify",
	"ControlPower",
	"UpdateData",
	"RemoveData",
	"Navigate",
	"WriteFile",
	"ControlSystem",
	"ControlGUI",
	"ManageAddon",
	"ExecuteAddon",
	"ControlPVR",
}

// Has reports whether every bit of o is granted.
func (p PermissionFlags) Has(o PermissionFlags) bool {
	return p&o == o
}

// Names lists the granted permissions in bit order.
func (p PermissionFlags) Names() []string {
	var out []string
	for i, name := range permissionNames {
		if p&(1<<i) != 0 {
			out = append(out, name)
		}
	}
	return out
}

func (p PermissionFlags) String() string {
	if p == 0 {
		return "none"
	}
	return strings.Join(p.Names(), "|")
}

// PermissionPolicy decides the permissions of a freshly accepted peer.
// The result is fixed for the lifetime of the connection.
type PermissionPolicy interface {
	Permissions(remote net.Addr) PermissionFlags
}

// PermissionPolicyFunc adapts a function to PermissionPolicy.
type PermissionPolicyFunc func(remote net.Addr) PermissionFlags

// Permissions calls f(remote).
func (f PermissionPolicyFunc) Permissions(remote net.Addr) PermissionFlags {
	return f(remote)
}

// AllowAll grants PermissionAll to every peer.
var AllowAll PermissionPolicy = PermissionPolicyFunc(func(net.Addr) PermissionFlags {
	return PermissionAll
})
