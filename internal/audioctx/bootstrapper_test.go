package audioctx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebovdev/lullaby-cli/internal/device"
	"go.uber.org/goleak"
)

type fakeContext struct {
	suspended   bool
	resumeErr   error
	resumeBlock chan struct{}
	resumes     int
	closed      bool
}

func (f *fakeContext) Suspended() bool { return f.suspended }

func (f *fakeContext) Resume(ctx context.Context) error {
	f.resumes++
	if f.resumeBlock != nil {
		select {
		case <-f.resumeBlock:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.resumeErr != nil {
		return f.resumeErr
	}
	f.suspended = false
	return nil
}

func (f *fakeContext) Close() error {
	f.closed = true
	return nil
}

var mobile = device.Profile{IsMobile: true, IsIOS: true, Network: device.NetworkFast}

func TestEnsureReadyDesktop(t *testing.T) {
	calls := 0
	b := NewBootstrapper(func() (Context, error) {
		calls++
		return &fakeContext{}, nil
	})

	if !b.EnsureReady(context.Background(), device.DefaultProfile()) {
		t.Error("desktop should be ready immediately")
	}
	if calls != 0 {
		t.Errorf("desktop should not create a context, factory called %d times", calls)
	}

	var nilBootstrapper *Bootstrapper
	if !nilBootstrapper.EnsureReady(context.Background(), device.DefaultProfile()) {
		t.Error("desktop should be ready without a bootstrapper")
	}
}

func TestEnsureReadyMobileCreatesOnce(t *testing.T) {
	calls := 0
	fc := &fakeContext{suspended: true}
	b := NewBootstrapper(func() (Context, error) {
		calls++
		return fc, nil
	})

	for i := 0; i < 3; i++ {
		if !b.EnsureReady(context.Background(), mobile) {
			t.Fatalf("call %d: expected ready", i)
		}
	}

	if calls != 1 {
		t.Errorf("factory called %d times, want 1", calls)
	}
	if fc.resumes != 1 {
		t.Errorf("Resume called %d times, want 1", fc.resumes)
	}
	if !b.Created() {
		t.Error("Created() = false after successful bootstrap")
	}
}

func TestEnsureReadyMobileFailures(t *testing.T) {
	tests := []struct {
		name    string
		factory Factory
	}{
		{"construction error", func() (Context, error) { return nil, errors.New("no audio device") }},
		{"construction panic", func() (Context, error) { panic("oto exploded") }},
		{"nil context", func() (Context, error) { return nil, nil }},
		{"resume error", func() (Context, error) {
			return &fakeContext{suspended: true, resumeErr: errors.New("not allowed")}, nil
		}},
		{"no factory", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBootstrapper(tt.factory)
			if b.EnsureReady(context.Background(), mobile) {
				t.Error("expected not ready")
			}
		})
	}
}

func TestEnsureReadyRetriesAfterFailure(t *testing.T) {
	calls := 0
	b := NewBootstrapper(func() (Context, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("gesture required")
		}
		return &fakeContext{}, nil
	})

	if b.EnsureReady(context.Background(), mobile) {
		t.Fatal("first attempt should fail")
	}
	if b.Created() {
		t.Fatal("failed construction should not be retained")
	}
	if !b.EnsureReady(context.Background(), mobile) {
		t.Fatal("second attempt should succeed")
	}
	if calls != 2 {
		t.Errorf("factory called %d times, want 2", calls)
	}
}

func TestEnsureReadyResumeTimeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	block := make(chan struct{})
	defer close(block)

	b := NewBootstrapper(func() (Context, error) {
		return &fakeContext{suspended: true, resumeBlock: block}, nil
	})
	b.timeout = 20 * time.Millisecond

	start := time.Now()
	if b.EnsureReady(context.Background(), mobile) {
		t.Fatal("hung resume should report not ready")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("EnsureReady took %v, want bounded by timeout", elapsed)
	}
}

func TestClose(t *testing.T) {
	fc := &fakeContext{}
	b := NewBootstrapper(func() (Context, error) { return fc, nil })

	if err := b.Close(); err != nil {
		t.Fatalf("Close() before creation = %v", err)
	}

	b.EnsureReady(context.Background(), mobile)
	if err := b.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if !fc.closed {
		t.Error("context should be closed")
	}
	if b.Created() {
		t.Error("Created() should be false after Close")
	}
}
