package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	t.Run("registers all subcommands", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		want := []string{"crawl", "export", "status", "reset", "version"}

		for _, name := range want {
			found := false
			for _, sub := range cmd.Commands() {
				if sub.Name() == name {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("subcommand %q not registered", name)
			}
		}
	})

	t.Run("help output describes the tool", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetErr(&buf)
		cmd.SetArgs([]string{"--help"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("help failed: %v", err)
		}
		if !strings.Contains(buf.String(), "lexicrawl") {
			t.Error("help output missing tool name")
		}
		if !strings.Contains(buf.String(), "resumable") {
			t.Error("help output missing resumability description")
		}
	})

	t.Run("unknown command fails", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"no-such-command"})

		if err := cmd.Execute(); err == nil {
			t.Error("unknown command should fail")
		}
	})

	t.Run("has verbose persistent flag", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		if cmd.PersistentFlags().Lookup("verbose") == nil {
			t.Error("verbose persistent flag not registered")
		}
	})
}
