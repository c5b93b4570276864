package session

import "testing"

func TestGateStartsAtGivenLevel(t *testing.T) {
	if !NewGate(true).IsSet() {
		t.Error("NewGate(true) should be set")
	}
	if NewGate(false).IsSet() {
		t.Error("NewGate(false) should be clear")
	}
}

func TestGateSetWakesWaiters(t *testing.T) {
	g := NewGate(false)
	ch := g.Chan()
	select {
	case <-ch:
		t.Fatal("channel should not be closed before Set")
	default:
	}
	g.Set()
	select {
	case <-ch:
	default:
		t.Fatal("channel should be closed after Set")
	}
}

func TestGateClearProducesFreshChannel(t *testing.T) {
	g := NewGate(true)
	first := g.Chan()
	g.Clear()
	second := g.Chan()
	select {
	case <-second:
		t.Fatal("fresh channel should not be closed")
	default:
	}
	select {
	case <-first:
	default:
		t.Fatal("the old snapshot should stay closed even after Clear")
	}
}

func TestGateSetIsIdempotent(t *testing.T) {
	g := NewGate(false)
	g.Set()
	g.Set() // must not panic on a double close
	if !g.IsSet() {
		t.Error("expected gate to remain set")
	}
}
