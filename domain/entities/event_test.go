package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveSource(t *testing.T) {
	tests := []struct {
		name       string
		source     string
		scope      EventScope
		wantSource string
		wantOK     bool
	}{
		{name: "net to network", source: "net:12", scope: ScopeNetwork, wantSource: "12", wantOK: true},
		{name: "net to local", source: "net:12", scope: ScopeLocal, wantOK: false},
		{name: "internal to local", source: "internal-net:7", scope: ScopeLocal, wantSource: "7", wantOK: true},
		{name: "internal to network", source: "internal-net:7", scope: ScopeNetwork, wantSource: "7", wantOK: true},
		{name: "unmarked to local", source: "resource", scope: ScopeLocal, wantSource: "", wantOK: true},
		{name: "unmarked to network", source: "resource", scope: ScopeNetwork, wantOK: false},
		{name: "empty to local", source: "", scope: ScopeLocal, wantSource: "", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, ok := ResolveSource(tt.source, tt.scope)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantSource, src)
			}
		})
	}
}

func TestEventScope_String(t *testing.T) {
	assert.Equal(t, "local", ScopeLocal.String())
	assert.Equal(t, "network", ScopeNetwork.String())
}
