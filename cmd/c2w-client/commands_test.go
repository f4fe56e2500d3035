package main

import "testing"

func TestConnectCmdRegistersFlags(t *testing.T) {
	cmd := newConnectCmd()
	for _, name := range []string{"server", "transport", "username", "loss-pr", "log-level"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected --%s flag to be registered", name)
		}
	}
}

func TestDoneSignalFireIsIdempotent(t *testing.T) {
	d := newDoneSignal()
	d.fire()
	d.fire() // must not panic on double close
	select {
	case <-d.ch:
	default:
		t.Fatalf("expected done channel to be closed")
	}
}
