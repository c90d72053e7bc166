package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pramacoder/BookingApartSystem-sub000/internal/infrastructure/config"
)

func TestHubDeliversInOrder(t *testing.T) {
	hub := NewHub()
	var got []string

	_, unsubA := hub.Subscribe("announcements", func(e ChangeEvent) { got = append(got, "a:"+string(e.Type)) })
	hub.Subscribe(AllTables, func(e ChangeEvent) { got = append(got, "all:"+e.Table) })
	hub.Subscribe("payments", func(e ChangeEvent) { got = append(got, "p") })

	hub.Publish(ChangeEvent{Table: "announcements", Type: EventInsert})
	hub.Publish(ChangeEvent{Table: "units", Type: EventUpdate})

	assert.Equal(t, []string{"a:INSERT", "all:announcements", "all:units"}, got)

	unsubA()
	unsubA()
	assert.Equal(t, 2, hub.SubscriberCount())
}

func TestHubRecoversPanickingHandler(t *testing.T) {
	hub := NewHub()
	delivered := false

	hub.Subscribe("units", func(ChangeEvent) { panic("boom") })
	hub.Subscribe("units", func(e ChangeEvent) {
		delivered = true
		assert.False(t, e.At.IsZero())
	})

	assert.NotPanics(t, func() { hub.Publish(ChangeEvent{Table: "units", Type: EventDelete}) })
	assert.True(t, delivered)
}

func TestMQTTBridgeForwardsEvents(t *testing.T) {
	hub := NewHub()
	cfg := &config.Config{MQTTBrokerURL: "tcp://127.0.0.1:1883", MQTTClientID: "test", MQTTTopicPrefix: "apartment/changes/"}
	bridge := NewMQTTBridge(cfg, hub)

	published := map[string][]byte{}
	bridge.publish = func(topic string, payload []byte) error {
		published[topic] = payload
		return nil
	}
	bridge.Start()
	defer bridge.Stop()

	hub.Publish(ChangeEvent{Table: "facility_bookings", Type: EventUpdate, New: []map[string]interface{}{{"id": 1, "status": "confirmed"}}})

	require.Contains(t, published, "apartment/changes/facility_bookings")
	var event ChangeEvent
	require.NoError(t, json.Unmarshal(published["apartment/changes/facility_bookings"], &event))
	assert.Equal(t, EventUpdate, event.Type)
	assert.Equal(t, "confirmed", event.New[0]["status"])
}
