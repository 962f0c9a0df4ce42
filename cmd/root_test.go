package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "tablesched dev") {
		t.Fatalf("got %q", out.String())
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	root := NewRootCmd()
	for _, name := range []string{"server", "check", "reservation", "version"} {
		c, _, err := root.Find([]string{name})
		if err != nil || c.Name() != name {
			t.Errorf("command %q not registered: %v", name, err)
		}
	}
	c, _, err := root.Find([]string{"reservation", "cancel"})
	if err != nil || c.Name() != "cancel" {
		t.Errorf("reservation cancel not registered: %v", err)
	}
	if f := c.Flags().Lookup("id"); f == nil {
		t.Error("cancel has no --id flag")
	}
}
