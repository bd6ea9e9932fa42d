package events

import (
	"context"
	"testing"
	"time"

	ferrors "git.home.luguber.info/inful/docsync/internal/foundation/errors"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsubscribe := Subscribe[RevisionCommitted](b, 1)
	defer unsubscribe()

	require.NoError(t, b.Publish(context.Background(), RevisionCommitted{Revision: 3, Cause: "patch"}))

	select {
	case got := <-ch:
		require.Equal(t, uint64(3), got.Revision)
	case <-time.After(250 * time.Millisecond):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_InterfaceSubscriptionReceivesConcreteEvents(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsubscribe := Subscribe[Event](b, 2)
	defer unsubscribe()

	require.NoError(t, b.Publish(context.Background(), Thinking{Message: "hmm"}))
	require.NoError(t, b.Publish(context.Background(), TreeRebuilt{Reason: "not_found"}))

	require.Equal(t, "thinking", (<-ch).Kind())
	require.Equal(t, "tree_rebuilt", (<-ch).Kind())
}

func TestBus_PublishBackpressure(t *testing.T) {
	b := NewBus()
	defer b.Close()

	_, unsubscribe := Subscribe[Thinking](b, 0) // unbuffered; no receiver => blocks
	defer unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := b.Publish(ctx, Thinking{Message: "x"})
	require.Error(t, err)

	classified, ok := ferrors.AsClassified(err)
	require.True(t, ok)
	require.Equal(t, ferrors.CategoryRuntime, classified.Category())
}

func TestBus_LossySubscriptionDropsWhenFull(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch, unsubscribe := SubscribeLossy[Event](b, 1)
	defer unsubscribe()

	require.NoError(t, b.Publish(context.Background(), Thinking{Message: "a"}))
	require.NoError(t, b.Publish(context.Background(), Thinking{Message: "b"}))
	require.Equal(t, uint64(1), b.Dropped())

	got := <-ch
	require.Equal(t, "a", got.(Thinking).Message)
}

func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()

	_, unsubscribe := Subscribe[Thinking](b, 1)
	require.Equal(t, 1, SubscriberCount[Thinking](b))
	unsubscribe()
	require.Equal(t, 0, SubscriberCount[Thinking](b))
}

func TestBus_Close(t *testing.T) {
	b := NewBus()

	ch, _ := Subscribe[Thinking](b, 1)
	b.Close()

	// Channel must be closed on bus close.
	_, ok := <-ch
	require.False(t, ok)

	err := b.Publish(context.Background(), Thinking{})
	require.Error(t, err)
}
