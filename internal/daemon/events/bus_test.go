package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBus_PublishDeliversToTypedSubscriber(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsub := Subscribe[ServiceStateChanged](b, 1)
	defer unsub()

	evt := ServiceStateChanged{PassID: "p1", Previous: "inactive", Desired: "running", Action: "start", Succeeded: true}
	require.NoError(t, b.Publish(t.Context(), evt))

	select {
	case got := <-ch:
		require.Equal(t, "p1", got.PassID)
		require.Equal(t, "start", got.Action)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_TypeIsolation(t *testing.T) {
	b := NewBus()
	defer b.Close()

	stateCh, unsub1 := Subscribe[ServiceStateChanged](b, 1)
	defer unsub1()
	reloadCh, unsub2 := Subscribe[ConfigReloaded](b, 1)
	defer unsub2()

	require.NoError(t, b.Publish(t.Context(), ConfigReloaded{Path: "/tmp/mode.json"}))

	select {
	case got := <-reloadCh:
		require.Equal(t, "/tmp/mode.json", got.Path)
	case <-time.After(time.Second):
		t.Fatal("reload event not delivered")
	}
	select {
	case <-stateCh:
		t.Fatal("state subscriber must not receive reload events")
	default:
	}
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsub := Subscribe[ReconcileCompleted](b, 1)
	require.Equal(t, 1, SubscriberCount[ReconcileCompleted](b))

	unsub()
	require.Equal(t, 0, SubscriberCount[ReconcileCompleted](b))

	_, open := <-ch
	require.False(t, open)
}

func TestBus_PublishAfterCloseFails(t *testing.T) {
	b := NewBus()
	b.Close()

	err := b.Publish(t.Context(), ConfigReloaded{})
	require.Error(t, err)
}

func TestBus_SubscribeAfterCloseReturnsClosedChannel(t *testing.T) {
	b := NewBus()
	b.Close()

	ch, unsub := Subscribe[ConfigReloaded](b, 1)
	unsub()

	_, open := <-ch
	require.False(t, open)
}
