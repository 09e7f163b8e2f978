package client

import (
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/cfxwasm/sdk/domain/entities"
	"github.com/cfxwasm/sdk/events"
	"github.com/cfxwasm/sdk/invoker"
	"github.com/cfxwasm/sdk/scheduler"
	"github.com/cfxwasm/sdk/wireformat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHost struct {
	hash uint64
	args []entities.Arg
}

func (h *recordingHost) Invoke(hash uint64, args []entities.Arg, _ entities.ReturnType, _ []byte) int32 {
	h.hash = hash
	h.args = args
	return 0
}

func (h *recordingHost) CanonicalizeRef(uint32, []byte) int32 { return 0 }

func (h *recordingHost) InvokeRefFunc(string, []byte, []byte) int32 { return -2 }

func (h *recordingHost) Log(string) {}

func TestEmitNet(t *testing.T) {
	h := &recordingHost{}
	invoker.SetHost(h)
	t.Cleanup(func() { invoker.SetHost(nil) })

	require.NoError(t, EmitNet("ready", struct {
		Slot int `msgpack:"slot"`
	}{Slot: 2}))

	assert.Equal(t, entities.NativeTriggerServerEventInternal, h.hash)
	require.Len(t, h.args, 3)
	assert.Equal(t, "ready", string(h.args[0].Data))

	var m map[string]int
	require.NoError(t, wireformat.Unmarshal(h.args[1].Data, &m))
	assert.Equal(t, 2, m["slot"])
}

func TestGameTypeStartStream(t *testing.T) {
	invoker.SetHost(&recordingHost{})
	pool := scheduler.NewPool(scheduler.WithClock(clock.NewMock()))
	r := events.NewRegistry(pool)
	t.Cleanup(func() {
		pool.Close()
		invoker.SetHost(nil)
	})

	s := GameTypeStartStream(r)
	payload, err := wireformat.Marshal(GameTypeStart{ResourceName: "basic-gamemode"})
	require.NoError(t, err)

	r.Dispatch(GameTypeStartEvent, payload, "net:1")
	assert.Equal(t, 0, s.Len(), "local subscription ignores network events")

	r.Dispatch(GameTypeStartEvent, payload, "")
	ev, ok := s.TryNext()
	require.True(t, ok)
	assert.Equal(t, "basic-gamemode", ev.Payload.ResourceName)
}
