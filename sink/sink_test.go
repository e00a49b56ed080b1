package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	"github.com/gr-butler/joystick/link"
	"github.com/gr-butler/joystick/receive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var source = link.Addr{0x7C, 0xDF, 0xA1, 0x12, 0x34, 0x56}

func telemetry() receive.Event {
	return receive.Event{
		Kind:   receive.KindTelemetry,
		Source: source,
		X:      10,
		Y:      250,
		Button: 1,
		Time:   time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
	}
}

func diagnostic() receive.Event {
	return receive.Event{
		Kind:   receive.KindDiagnostic,
		Source: source,
		Raw:    []byte{1, 2},
		Error:  "unexpected frame length 2, want 3",
		Time:   time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
	}
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	require.NoError(t, c.Publish(telemetry()))
	require.NoError(t, c.Publish(diagnostic()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "From 7C:DF:A1:12:34:56")
	assert.Contains(t, lines[0], "X: 10 Y: 250 BTN: 1")
	assert.Contains(t, lines[1], "01 02")
	assert.Contains(t, lines[1], "unexpected frame length")
}

type fakeToken struct {
	done bool
	err  error
}

func (f *fakeToken) Wait() bool                     { return f.done }
func (f *fakeToken) WaitTimeout(time.Duration) bool { return f.done }
func (f *fakeToken) Error() error                   { return f.err }
func (f *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if f.done {
		close(ch)
	}
	return ch
}

type fakePublisher struct {
	token    *fakeToken
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

func (f *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.topic, f.qos, f.retained = topic, qos, retained
	f.payload = payload.([]byte)
	return f.token
}

func TestMQTTPublish(t *testing.T) {
	p := &fakePublisher{token: &fakeToken{done: true}}
	m := NewMQTT(p, "joystick/telemetry")

	require.NoError(t, m.Publish(telemetry()))
	assert.Equal(t, "joystick/telemetry", p.topic)
	assert.Equal(t, byte(0), p.qos)
	assert.False(t, p.retained)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(p.payload, &got))
	assert.Equal(t, "telemetry", got["kind"])
	assert.Equal(t, "7C:DF:A1:12:34:56", got["source"])
	assert.Equal(t, 250.0, got["y"])
	require.NoError(t, m.Close())
}

func TestMQTTPublishErrors(t *testing.T) {
	m := NewMQTT(&fakePublisher{token: &fakeToken{done: false}}, "t")
	require.Error(t, m.Publish(telemetry()))

	boom := errors.New("not connected")
	m = NewMQTT(&fakePublisher{token: &fakeToken{done: true, err: boom}}, "t")
	require.ErrorIs(t, m.Publish(telemetry()), boom)
}

func TestWebhook(t *testing.T) {
	queries := make(chan url.Values, 2)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		queries <- r.URL.Query()
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL + "/ingest?token=abc")
	require.NoError(t, w.Publish(telemetry()))
	require.NoError(t, w.Publish(diagnostic()))

	q := <-queries
	assert.Equal(t, "abc", q.Get("token"))
	assert.Equal(t, "telemetry", q.Get("kind"))
	assert.Equal(t, "7C:DF:A1:12:34:56", q.Get("peer"))
	assert.Equal(t, "10", q.Get("x"))
	assert.Equal(t, "250", q.Get("y"))
	assert.Equal(t, "1", q.Get("button"))
	assert.Equal(t, "2024-05-01 12:30:00", q.Get("time"))
	assert.Empty(t, q.Get("raw"))

	q = <-queries
	assert.Equal(t, "diagnostic", q.Get("kind"))
	assert.Equal(t, "0102", q.Get("raw"))
	assert.NotEmpty(t, q.Get("error"))
}

func TestWebhookHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewWebhook(srv.URL).Publish(telemetry())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestHub(t *testing.T) {
	hub := NewHub()
	mux := http.NewServeMux()
	hub.Register(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()
	defer hub.Close()

	resp, err := http.Get(srv.URL + "/api/latest")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(telemetry()))
	require.NoError(t, hub.Publish(diagnostic()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got receive.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, receive.KindTelemetry, got.Kind)
	assert.Equal(t, source, got.Source)
	assert.Equal(t, uint8(250), got.Y)
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, receive.KindDiagnostic, got.Kind)
	assert.Equal(t, []byte{1, 2}, got.Raw)

	// diagnostics do not replace the latest telemetry
	resp, err = http.Get(srv.URL + "/api/latest")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var latest receive.Event
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&latest))
	assert.Equal(t, receive.KindTelemetry, latest.Kind)
	assert.Equal(t, uint8(10), latest.X)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestPostgres(t *testing.T) {
	dsn, ok := os.LookupEnv("JOYSTICK_TEST_PG_DSN")
	if !ok {
		t.Skip("JOYSTICK_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	p, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer p.Close()

	before, err := p.Count(ctx, receive.KindTelemetry)
	require.NoError(t, err)
	require.NoError(t, p.Publish(telemetry()))
	require.NoError(t, p.Publish(diagnostic()))
	after, err := p.Count(ctx, receive.KindTelemetry)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)
}
