package audio

import (
	"context"
	"testing"

	"github.com/glebovdev/lullaby-cli/internal/audioctx"
)

var _ audioctx.Context = (*Speaker)(nil)

func TestSpeakerStartsSuspended(t *testing.T) {
	s := NewSpeaker()
	if !s.Suspended() {
		t.Fatal("a new speaker should report suspended until first resumed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Resume(ctx); err == nil {
		t.Error("Resume() with a cancelled context should fail")
	}
	if !s.Suspended() {
		t.Error("a failed resume must leave the speaker suspended")
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close() on an unopened speaker = %v", err)
	}
	if !s.Suspended() {
		t.Error("speaker should stay suspended after Close")
	}
}
