package circuitbreaker

import (
	"errors"
	"testing"
	"time"
)

var errUpstream = errors.New("upstream down")

func TestCircuitBreaker_OpensAfterFailureThreshold(t *testing.T) {
	cb := New(Config{FailureThreshold: 3, SuccessThreshold: 1, Timeout: time.Minute})

	for i := 0; i < 3; i++ {
		if err := cb.Call(func() error { return errUpstream }); !errors.Is(err, errUpstream) {
			t.Fatalf("call %d error = %v, want errUpstream", i, err)
		}
	}
	if cb.State() != StateOpen {
		t.Fatalf("state = %s, want open", cb.State())
	}

	called := false
	err := cb.Call(func() error { called = true; return nil })
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("error = %v, want ErrOpen", err)
	}
	if called {
		t.Error("fn called while circuit open")
	}
}

func TestCircuitBreaker_HalfOpenProbeRecovers(t *testing.T) {
	cb := New(Config{FailureThreshold: 1, SuccessThreshold: 2, Timeout: 10 * time.Millisecond})

	_ = cb.Call(func() error { return errUpstream })
	if cb.State() != StateOpen {
		t.Fatalf("state = %s, want open", cb.State())
	}

	time.Sleep(20 * time.Millisecond)

	for i := 0; i < 2; i++ {
		if err := cb.Call(func() error { return nil }); err != nil {
			t.Fatalf("probe %d error = %v", i, err)
		}
	}
	if cb.State() != StateClosed {
		t.Fatalf("state = %s, want closed after successful probes", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := New(Config{FailureThreshold: 1, SuccessThreshold: 2, Timeout: 10 * time.Millisecond})

	_ = cb.Call(func() error { return errUpstream })
	time.Sleep(20 * time.Millisecond)

	_ = cb.Call(func() error { return errUpstream })
	if cb.State() != StateOpen {
		t.Fatalf("state = %s, want open after half-open failure", cb.State())
	}
}

func TestCircuitBreaker_StateChangeHook(t *testing.T) {
	var transitions []string
	cb := New(Config{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          10 * time.Millisecond,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_ = cb.Call(func() error { return errUpstream })
	time.Sleep(20 * time.Millisecond)
	_ = cb.Call(func() error { return nil })

	want := []string{"closed->open", "open->half_open", "half_open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transitions[%d] = %s, want %s", i, transitions[i], want[i])
		}
	}
}
