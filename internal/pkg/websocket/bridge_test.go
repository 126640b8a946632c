package websocket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wellbornbaba/ccdelete-sub001/internal/pkg/models"
)

func TestBridgeEmit_RegistrationOrder(t *testing.T) {
	bridge := NewBridge()

	var order []int
	bridge.On("evt", func(interface{}) { order = append(order, 1) })
	bridge.On("evt", func(interface{}) { order = append(order, 2) })
	bridge.On("evt", func(interface{}) { order = append(order, 3) })

	bridge.Emit("evt", nil)

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestBridgeOn_UnsubscribeRemovesOnlyThatHandler(t *testing.T) {
	bridge := NewBridge()

	var first, second int
	off := bridge.On("evt", func(interface{}) { first++ })
	bridge.On("evt", func(interface{}) { second++ })

	bridge.Emit("evt", nil)
	off()
	bridge.Emit("evt", nil)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)

	// Unsubscribing twice is harmless.
	off()
	bridge.Emit("evt", nil)
	assert.Equal(t, 1, first)
	assert.Equal(t, 3, second)
}

func TestBridgeOff_RemovesAllHandlers(t *testing.T) {
	bridge := NewBridge()

	var calls int
	bridge.On("evt", func(interface{}) { calls++ })
	bridge.On("evt", func(interface{}) { calls++ })

	bridge.Off("evt")
	bridge.Emit("evt", nil)

	assert.Zero(t, calls)
}

func TestBridgeEmit_NoReplayForLateSubscribers(t *testing.T) {
	bridge := NewBridge()

	bridge.Emit("evt", "early")

	var got interface{}
	bridge.On("evt", func(payload interface{}) { got = payload })

	assert.Nil(t, got)
}

func TestBridgeEmit_PayloadDeliveredVerbatim(t *testing.T) {
	bridge := NewBridge()

	var got interface{}
	bridge.On("evt", func(payload interface{}) { got = payload })

	msg := models.WSMessage{Type: "tripStarted"}
	bridge.Emit("evt", msg)

	assert.Equal(t, msg, got)
}

func TestOnTyped_DecodesRawJSON(t *testing.T) {
	bridge := NewBridge()

	var got models.RideAssignment
	OnTyped(bridge, "activeRideAssigned", func(a models.RideAssignment) { got = a })

	bridge.Emit("activeRideAssigned", json.RawMessage(`{"rideid":"r1","passengerid":"p1"}`))

	assert.Equal(t, "r1", got.RideID)
	assert.Equal(t, "p1", got.PassengerID)
}

func TestOnTyped_PassesThroughTypedPayloads(t *testing.T) {
	bridge := NewBridge()

	var calls int
	var got models.RideAssignment
	OnTyped(bridge, "activeRideAssigned", func(a models.RideAssignment) {
		calls++
		got = a
	})

	bridge.Emit("activeRideAssigned", models.RideAssignment{RideID: "r2"})

	assert.Equal(t, 1, calls)
	assert.Equal(t, "r2", got.RideID)
}

func TestOnTyped_DropsUndecodablePayloads(t *testing.T) {
	bridge := NewBridge()

	var calls int
	OnTyped(bridge, "activeRideAssigned", func(models.RideAssignment) { calls++ })

	bridge.Emit("activeRideAssigned", json.RawMessage(`not json`))

	assert.Zero(t, calls)
}

func TestOnTyped_Unsubscribe(t *testing.T) {
	bridge := NewBridge()

	var calls int
	off := OnTyped(bridge, "evt", func(models.RideAssignment) { calls++ })
	off()

	bridge.Emit("evt", models.RideAssignment{})

	assert.Zero(t, calls)
}
