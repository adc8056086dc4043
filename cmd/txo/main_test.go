package main

import "testing"

func TestConfigDir(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"absent", []string{"analyze"}, ""},
		{"separate value", []string{"--config", "/tmp/txo", "analyze"}, "/tmp/txo"},
		{"equals form", []string{"state", "show", "--config=/etc/txo"}, "/etc/txo"},
		{"missing value", []string{"analyze", "--config"}, ""},
		{"after terminator", []string{"legs", "import", "--", "--config=x"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := configDir(tt.args); got != tt.want {
				t.Errorf("configDir(%v) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}
