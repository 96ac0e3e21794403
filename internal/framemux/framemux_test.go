package framemux

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/backhand/internal/luma"
)

// waitUntil polls cond until it holds or the deadline passes.
func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

func recvEvent(t *testing.T, ch chan FrameEvent) FrameEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "subscriber channel closed unexpectedly")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for frame event")
		return FrameEvent{}
	}
}

func startMux(t *testing.T) (*FrameMux[*io.PipeReader], *io.PipeWriter, chan error, context.CancelFunc) {
	t.Helper()
	r, w := io.Pipe()
	mux := NewFrameMux(r)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- mux.Monitor(ctx)
	}()
	return mux, w, done, cancel
}

func TestFrameMuxDeliversDecodedFrames(t *testing.T) {
	mux, w, done, cancel := startMux(t)
	defer cancel()
	defer mux.Close()

	id, ch := mux.Subscribe()
	defer mux.Unsubscribe(id)

	f1 := luma.NewFrame(4, 5)
	f1.Fill(60)
	p1, err := EncodePacket(0, f1)
	require.NoError(t, err)
	_, err = w.Write(p1)
	require.NoError(t, err)

	ev := recvEvent(t, ch)
	assert.Equal(t, uint32(0), ev.Seq)
	assert.Equal(t, uint8(60), ev.Frame.At(0, 0))
	assert.False(t, ev.T.IsZero())

	f2 := luma.NewFrame(4, 5)
	f2.Fill(61)
	p2, err := EncodePacket(1, f2)
	require.NoError(t, err)
	_, err = w.Write(p2)
	require.NoError(t, err)

	ev = recvEvent(t, ch)
	assert.Equal(t, uint32(1), ev.Seq)
	assert.Equal(t, uint8(61), ev.Frame.At(3, 4))

	stats := mux.Stats()
	assert.Equal(t, int64(2), stats.Decoded)
	assert.Equal(t, int64(0), stats.SeqGaps)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not exit after cancel")
	}
}

func TestFrameMuxCountsSequenceGaps(t *testing.T) {
	mux, w, _, cancel := startMux(t)
	defer cancel()
	defer mux.Close()

	id, ch := mux.Subscribe()
	defer mux.Unsubscribe(id)

	f := luma.NewFrame(3, 3)
	for _, seq := range []uint32{0, 1, 5, 6} {
		pkt, err := EncodePacket(seq, f)
		require.NoError(t, err)
		_, err = w.Write(pkt)
		require.NoError(t, err)
		recvEvent(t, ch)
	}

	assert.Equal(t, int64(1), mux.Stats().SeqGaps)
}

func TestFrameMuxRejectsBadPackets(t *testing.T) {
	mux, w, _, cancel := startMux(t)
	defer cancel()
	defer mux.Close()

	id, ch := mux.Subscribe()
	defer mux.Unsubscribe(id)

	f := luma.NewFrame(3, 3)
	bad, err := EncodePacket(0, f)
	require.NoError(t, err)
	bad[2] = 99 // unsupported version still frames correctly

	good, err := EncodePacket(1, f)
	require.NoError(t, err)

	_, err = w.Write(append(append([]byte(nil), bad...), good...))
	require.NoError(t, err)

	ev := recvEvent(t, ch)
	assert.Equal(t, uint32(1), ev.Seq, "the bad packet is dropped, the good one delivered")
	assert.Equal(t, int64(1), mux.Stats().Rejected)
}

func TestFrameMuxShedsWhenSubscriberBusy(t *testing.T) {
	mux, w, _, cancel := startMux(t)
	defer cancel()
	defer mux.Close()

	// subscribed but never reading: the one-slot buffer takes the first
	// frame, later ones are shed
	id, _ := mux.Subscribe()
	defer mux.Unsubscribe(id)

	f := luma.NewFrame(3, 3)
	for seq := uint32(0); seq < 3; seq++ {
		pkt, err := EncodePacket(seq, f)
		require.NoError(t, err)
		_, err = w.Write(pkt)
		require.NoError(t, err)
	}

	waitUntil(t, 2*time.Second, func() bool {
		return mux.Stats().Shed >= 2
	})
}

func TestFrameMuxUnsubscribeClosesChannel(t *testing.T) {
	mux, _, _, cancel := startMux(t)
	defer cancel()
	defer mux.Close()

	id, ch := mux.Subscribe()
	mux.Unsubscribe(id)

	_, ok := <-ch
	assert.False(t, ok)

	// unknown IDs are ignored
	mux.Unsubscribe("not-there")
}

func TestFrameMuxCloseStopsMonitor(t *testing.T) {
	mux, w, done, cancel := startMux(t)
	defer cancel()

	_, ch := mux.Subscribe()

	f := luma.NewFrame(3, 3)
	pkt, err := EncodePacket(0, f)
	require.NoError(t, err)
	_, err = w.Write(pkt)
	require.NoError(t, err)
	recvEvent(t, ch)

	require.NoError(t, mux.Close())

	// the subscriber channel is closed and the source read fails
	_, ok := <-ch
	assert.False(t, ok)

	w.Write(pkt)
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, io.ErrClosedPipe) && !errors.Is(err, context.Canceled) {
			t.Logf("Monitor returned: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Monitor did not exit after Close")
	}
}
