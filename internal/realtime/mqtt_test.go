package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	err      error
	complete bool
}

func (t *fakeToken) Wait() bool                     { return t.complete }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return t.complete }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if t.complete {
		close(ch)
	}
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type publishCall struct {
	topic   string
	qos     byte
	payload []byte
}

type fakePublisher struct {
	calls []publishCall
	token *fakeToken
}

func (p *fakePublisher) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	p.calls = append(p.calls, publishCall{topic: topic, qos: qos, payload: payload.([]byte)})
	return p.token
}

func TestMQTTEmitter_Emit(t *testing.T) {
	pub := &fakePublisher{token: &fakeToken{complete: true}}
	e := NewMQTTEmitter(pub, "/service-center/")

	err := e.Emit(context.Background(), "user_42", EventProgressUpdate, map[string]int{"progress": 40})
	require.NoError(t, err)

	require.Len(t, pub.calls, 1)
	assert.Equal(t, "service-center/user_42/progressUpdate", pub.calls[0].topic)
	assert.Equal(t, byte(1), pub.calls[0].qos)

	var frame struct {
		Event string         `json:"event"`
		Data  map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(pub.calls[0].payload, &frame))
	assert.Equal(t, EventProgressUpdate, frame.Event)
	assert.Equal(t, 40, frame.Data["progress"])
}

func TestMQTTEmitter_Errors(t *testing.T) {
	pub := &fakePublisher{token: &fakeToken{complete: false}}
	e := NewMQTTEmitter(pub, "")
	assert.Equal(t, "user_1/systemNotification", e.Topic("user_1", EventSystemNotification))

	err := e.Emit(context.Background(), "user_1", EventSystemNotification, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")

	pub.token = &fakeToken{complete: true, err: errors.New("not connected")}
	err = e.Emit(context.Background(), "user_1", EventSystemNotification, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}
