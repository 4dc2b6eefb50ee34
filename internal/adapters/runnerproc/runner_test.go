package runnerproc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartStop_TerminatesProcess(t *testing.T) {
	r := New([]string{"sleep", "60"}, "", nil)

	require.NoError(t, r.Start(context.Background()))

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestStart_PassesConfigFlag(t *testing.T) {
	// The script exits 0 only when --config carries the expected path.
	r := New([]string{"sh", "-c", `test "$2" = "runner.conf"`, "runner"}, "runner.conf", nil)

	require.NoError(t, r.Start(context.Background()))
	err := <-r.waitCh
	assert.NoError(t, err, "runner should have seen --config runner.conf")
}

func TestStop_BeforeStartIsNoop(t *testing.T) {
	r := New([]string{"sleep", "60"}, "", nil)
	require.NoError(t, r.Stop())

	// Terminal: Start after Stop is refused.
	assert.Error(t, r.Start(context.Background()))
}

func TestStop_Idempotent(t *testing.T) {
	r := New([]string{"sleep", "60"}, "", nil)
	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Stop())
	require.NoError(t, r.Stop())
}

func TestStart_Twice(t *testing.T) {
	r := New([]string{"sleep", "60"}, "", nil)
	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	assert.Error(t, r.Start(context.Background()))
}

func TestStart_MissingBinary(t *testing.T) {
	r := New([]string{"definitely-not-a-real-binary-xyz"}, "", nil)
	assert.Error(t, r.Start(context.Background()))
}
