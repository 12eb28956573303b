package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"empty", Config{}, false},
		{"path only", Config{PluginPath: "/p.so"}, false},
		{"string params", Config{PluginPath: "/p.so", Params: "a:b"}, false},
		{"map params", Config{PluginPath: "/p.so", ParamMap: ParamMap{"a": "b"}}, false},
		{"empty map without path", Config{ParamMap: ParamMap{}}, false},
		{"both forms", Config{PluginPath: "/p.so", Params: "a:b", ParamMap: ParamMap{}}, true},
		{"params without path", Config{Params: "a:b"}, true},
		{"map without path", Config{ParamMap: ParamMap{"a": "b"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Enabled(t *testing.T) {
	assert.False(t, (&Config{}).Enabled())
	assert.False(t, (&Config{PluginPath: " \t"}).Enabled())
	assert.True(t, (&Config{PluginPath: "/p.so"}).Enabled())
}
