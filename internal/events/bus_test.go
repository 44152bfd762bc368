package events

import (
	"testing"

	"foodshare/pkg/types"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToEverySubscriber(t *testing.T) {
	logger, _ := test.NewNullLogger()
	bus := NewBus(logger)

	first, unsubscribeFirst := bus.Subscribe(4)
	second, unsubscribeSecond := bus.Subscribe(4)
	defer unsubscribeSecond()

	event := StatusChanged{DonationID: "d1", From: types.DonationStatusPending, To: types.DonationStatusAccepted, NGOID: "n1"}
	bus.Publish(event)

	assert.Equal(t, event, <-first)
	assert.Equal(t, event, <-second)

	unsubscribeFirst()
	unsubscribeFirst()
	assert.Equal(t, 1, bus.Subscribers())

	_, open := <-first
	assert.False(t, open, "unsubscribe closes the channel")

	bus.Publish(event)
	assert.Equal(t, event, <-second)
}

func TestBusDropsForSlowSubscriber(t *testing.T) {
	logger, hook := test.NewNullLogger()
	bus := NewBus(logger)

	ch, unsubscribe := bus.Subscribe(1)
	defer unsubscribe()

	bus.Publish(StatusChanged{DonationID: "d1"})
	bus.Publish(StatusChanged{DonationID: "d2"})

	assert.Equal(t, "d1", (<-ch).DonationID)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected event %+v", extra)
	default:
	}

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "d2", entry.Data["donation_id"])
}
