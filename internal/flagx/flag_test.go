package flagx

import (
	"os"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-c", "conf.json", "-a", "localhost"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "long flag with equals",
			args:         []string{"--config=alt.json", "-a", "localhost"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"--config=alt.json"},
		},
		{
			name:         "unknown flags ignored",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{},
		},
		{
			name:         "flag without value at end is kept as-is",
			args:         []string{"-c"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "flag followed by another flag (no value)",
			args:         []string{"-c", "-notvalue"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "multiple allowed flags kept in order",
			args:         []string{"-a", ":8080", "-w", "Wallet111", "-l", "http://rpc", "--other", "x"},
			allowedFlags: []string{"-a", "-w", "-l"},
			want:         []string{"-a", ":8080", "-w", "Wallet111", "-l", "http://rpc"},
		},
		{
			name:         "empty args",
			args:         []string{},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "repeated allowed flag is preserved in order",
			args:         []string{"-c", "one.json", "-c", "two.json"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c", "one.json", "-c", "two.json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowedFlags)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("FilterArgs() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestConfigPath(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("short -c with value", func(t *testing.T) {
		t.Setenv(ConfigEnvVar, "")
		os.Args = []string{"testbin", "-c", "/path/short.json"}
		assert.Equal(t, "/path/short.json", ConfigPath())
	})

	t.Run("long -config with value", func(t *testing.T) {
		t.Setenv(ConfigEnvVar, "")
		os.Args = []string{"testbin", "-config", "/path/long.json"}
		assert.Equal(t, "/path/long.json", ConfigPath())
	})

	t.Run("flag wins over env", func(t *testing.T) {
		t.Setenv(ConfigEnvVar, "/path/env.json")
		os.Args = []string{"testbin", "-c", "/path/flag.json"}
		assert.Equal(t, "/path/flag.json", ConfigPath())
	})

	t.Run("env used when no flag", func(t *testing.T) {
		t.Setenv(ConfigEnvVar, "/path/env.json")
		os.Args = []string{"testbin", "-x", "1"}
		assert.Equal(t, "/path/env.json", ConfigPath())
	})

	t.Run("nothing set", func(t *testing.T) {
		t.Setenv(ConfigEnvVar, "")
		os.Args = []string{"testbin"}
		assert.Empty(t, ConfigPath())
	})
}
