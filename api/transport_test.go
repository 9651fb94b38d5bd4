// File: api/transport_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapabilityHas(t *testing.T) {
	c := CapabilityResponse | CapabilityAnnouncing

	assert.True(t, c.Has(CapabilityResponse))
	assert.True(t, c.Has(CapabilityResponse|CapabilityAnnouncing))
	assert.False(t, c.Has(CapabilityFileDownloadDirect))
	assert.False(t, c.Has(CapabilityAnnouncing|CapabilityFileDownloadRedirect))
}

func TestPermissionFlags(t *testing.T) {
	tests := []struct {
		name  string
		flags PermissionFlags
		want  string
	}{
		{name: "none", flags: 0, want: "none"},
		{name: "single", flags: PermissionReadData, want: "ReadData"},
		{name: "pair", flags: PermissionReadData | PermissionNavigate, want: "ReadData|Navigate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.flags.String())
		})
	}

	assert.True(t, PermissionAll.Has(PermissionControlPVR|PermissionReadData))
	assert.Len(t, PermissionAll.Names(), 13)
	assert.Equal(t, PermissionAll, AllowAll.Permissions(nil))
}
