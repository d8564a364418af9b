package jeelabs

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopics(t *testing.T) {
	assert.Equal(t, "graylogic/state/jeelabs/3", StateTopic("3"))
	assert.Equal(t, "graylogic/health/jeelabs", HealthTopic())
	assert.Equal(t, "graylogic/request/jeelabs/+", RequestSubscribeTopic())
	assert.Equal(t, "graylogic/response/jeelabs/req-1", ResponseTopic("req-1"))
}

func TestValues_MarshalJSONKeepsOrder(t *testing.T) {
	r, err := ParseFrame("OK 3 1 100 101 215 0")
	require.NoError(t, err)

	data, err := json.Marshal(r.Values)
	require.NoError(t, err)

	assert.Equal(t, `{"Light":"100","Humidity":"50","Temperature":"21.5","Motion":"1","Battery":"0"}`, string(data))
}

func TestValues_UnmarshalJSON(t *testing.T) {
	var v Values
	require.NoError(t, json.Unmarshal([]byte(`{"Lux":"12","Pressure":"1013.25","Temperature":"21.5"}`), &v))

	assert.Equal(t, []string{FieldLux, FieldPressure, FieldTemperature}, v.Names())
	got, ok := v.Get(FieldPressure)
	assert.True(t, ok)
	assert.Equal(t, "1013.25", got)

	assert.Error(t, json.Unmarshal([]byte(`["Lux"]`), &v))
	assert.Error(t, json.Unmarshal([]byte(`{"Lux":12}`), &v))

	require.NoError(t, json.Unmarshal([]byte(`null`), &v))
	assert.Nil(t, v)
}

func TestValues_Get(t *testing.T) {
	v := Values{{Name: FieldLight, Value: "7"}}

	got, ok := v.Get(FieldLight)
	assert.True(t, ok)
	assert.Equal(t, "7", got)

	_, ok = v.Get(FieldBattery)
	assert.False(t, ok)
}

func TestNodeType_String(t *testing.T) {
	assert.Equal(t, "roomnode", NodeTypeRoom.String())
	assert.Equal(t, "outside", NodeTypeOutside.String())
	assert.Equal(t, "unknown", NodeType(9).String())
}

func TestNewStateMessage(t *testing.T) {
	r, err := ParseFrame("OK 7 2 1 2 3 4 5 6")
	require.NoError(t, err)

	msg := NewStateMessage("jeelabs-attic", r)

	assert.NotEmpty(t, msg.ReadingID)
	assert.Equal(t, "7", msg.DeviceID)
	assert.Equal(t, "7", msg.Address)
	assert.Equal(t, "outside", msg.NodeType)
	assert.Equal(t, Protocol, msg.Protocol)
	assert.Equal(t, "jeelabs-attic", msg.BridgeID)
	assert.Equal(t, time.UTC, msg.Timestamp.Location())

	other := NewStateMessage("jeelabs-attic", r)
	assert.NotEqual(t, msg.ReadingID, other.ReadingID)
}

func TestNewHealthMessage(t *testing.T) {
	start := time.Now().Add(-90 * time.Second)
	connected := time.Now().Add(-time.Minute)
	last := time.Now()

	msg := NewHealthMessage("b", "1.2.3", "/dev/ttyUSB0", HealthHealthy, Stats{
		FramesReceived:  10,
		IgnoredLines:    2,
		SerialConnected: true,
		ConnectedSince:  connected,
		LastFrame:       last,
	}, start)

	assert.Equal(t, HealthHealthy, msg.Status)
	assert.GreaterOrEqual(t, msg.UptimeSeconds, int64(90))
	require.NotNil(t, msg.Connection)
	assert.Equal(t, "connected", msg.Connection.Status)
	assert.Equal(t, "/dev/ttyUSB0", msg.Connection.Address)
	require.NotNil(t, msg.Connection.ConnectedSince)
	require.NotNil(t, msg.Statistics)
	assert.Equal(t, uint64(10), msg.Statistics.FramesReceived)
	assert.Equal(t, uint64(2), msg.Statistics.IgnoredLines)
	require.NotNil(t, msg.Statistics.LastFrame)
}

func TestNewHealthMessage_Disconnected(t *testing.T) {
	msg := NewHealthMessage("b", "", "/dev/ttyUSB0", HealthDegraded, Stats{}, time.Now())

	assert.Equal(t, "disconnected", msg.Connection.Status)
	assert.Nil(t, msg.Connection.ConnectedSince)
	assert.Nil(t, msg.Statistics.LastFrame)

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "last_frame")
	assert.NotContains(t, string(data), "version")
}

func TestNewLWTMessage(t *testing.T) {
	msg := NewLWTMessage("jeelabs-attic")

	assert.Equal(t, HealthOffline, msg.Status)
	assert.Equal(t, "unexpected_disconnect", msg.Reason)
	assert.Nil(t, msg.Statistics)
}
