package bridge

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visiona/armdeck/internal/config"
	"github.com/visiona/armdeck/internal/pose"
)

func testEmitter() *Emitter {
	cfg := config.Default()
	cfg.Publish.AutoPublish = true
	return NewEmitter(cfg, func() pose.Pose {
		return pose.Pose{"A1": 45, "A2": -30}
	})
}

func TestEmitterClientID(t *testing.T) {
	e := testEmitter()
	assert.True(t, strings.HasPrefix(e.ClientID(), "armdeck-0-"))

	// Two emitters never share an identity.
	assert.NotEqual(t, e.ClientID(), testEmitter().ClientID())
}

func TestEmitterRateControls(t *testing.T) {
	e := testEmitter()
	assert.Equal(t, 2.0, e.Rate())

	require.NoError(t, e.SetRate(10))
	assert.Equal(t, 10.0, e.Rate())

	assert.Error(t, e.SetRate(0))
	assert.Error(t, e.SetRate(-1))
	assert.Equal(t, 10.0, e.Rate(), "rejected rate must not apply")
}

func TestEmitterAutoPublishToggle(t *testing.T) {
	e := testEmitter()
	assert.True(t, e.AutoPublish())

	e.SetAutoPublish(false)
	assert.False(t, e.AutoPublish())
}

func TestPublishPoseNotConnected(t *testing.T) {
	e := testEmitter()

	err := e.PublishPose()
	require.Error(t, err)
	assert.Equal(t, uint64(1), e.EmitterStats().Errors)
}

// TestPoseMessageWireFormat pins the outbound contract: epoch-ms timestamp,
// flat joints map, clientId.
func TestPoseMessageWireFormat(t *testing.T) {
	msg := PoseMessage{
		Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC).UnixMilli(),
		Joints:    map[string]float64{"A1": 45},
		ClientID:  "armdeck-0-deadbeef",
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "timestamp")
	assert.Contains(t, decoded, "joints")
	assert.Contains(t, decoded, "clientId")
	assert.Equal(t, float64(1717243200000), decoded["timestamp"])
}
