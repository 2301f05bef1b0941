package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smokyabdulrahman/mawaqit/internal/api"
	"github.com/smokyabdulrahman/mawaqit/internal/controller"
	"github.com/smokyabdulrahman/mawaqit/internal/prayer"
)

// doneToken is an already completed MQTT token.
type doneToken struct{ err error }

func (t doneToken) Wait() bool { return true }

func (t doneToken) WaitTimeout(time.Duration) bool { return true }

func (t doneToken) Error() error { return t.err }

func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	retained bool
	payload  []byte
}

// fakeBroker records publishes instead of sending them.
type fakeBroker struct {
	mu           sync.Mutex
	sent         []published
	err          error
	disconnected bool
}

func (b *fakeBroker) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, published{topic, retained, payload.([]byte)})
	return doneToken{b.err}
}

func (b *fakeBroker) Disconnect(uint) {
	b.mu.Lock()
	b.disconnected = true
	b.mu.Unlock()
}

func (b *fakeBroker) messages() []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]published(nil), b.sent...)
}

type staticFetcher struct{}

func (staticFetcher) TodayPrayerTime(ctx context.Context, city string) (*api.PrayerTime, error) {
	return &api.PrayerTime{
		FajrFirstTime: "05:15", SunriseTime: "06:45", DhuhrTime: "12:15",
		AsrTime: "15:30", MaghribTime: "17:45", IshaTime: "19:15",
	}, nil
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) set(hour, minute int) {
	c.mu.Lock()
	c.t = time.Date(2026, 10, 19, hour, minute, 0, 0, time.UTC)
	c.mu.Unlock()
}

func readyController(t *testing.T, clk *clock, city string) *controller.Controller {
	t.Helper()
	c := controller.New(staticFetcher{}, controller.WithClock(clk.now), controller.WithInterval(time.Hour))
	t.Cleanup(c.Close)
	c.Select(city)
	require.Eventually(t, func() bool { return c.Snapshot().State == controller.Ready }, 2*time.Second, 2*time.Millisecond)
	return c
}

func TestTopic(t *testing.T) {
	p := newPublisher(&fakeBroker{}, "/masjid/", zerolog.Nop())
	assert.Equal(t, "masjid/طرابلس/period", p.Topic(" طرابلس "))
	assert.Equal(t, "masjid/a_b_c_/period", p.Topic("a/b+c#"))

	p = newPublisher(&fakeBroker{}, "", zerolog.Nop())
	assert.Equal(t, "mawaqit/x/period", p.Topic("x"))
}

func TestPublish_Ready(t *testing.T) {
	b := &fakeBroker{}
	p := newPublisher(b, "mawaqit", zerolog.Nop())
	clk := &clock{}
	clk.set(13, 0)
	c := readyController(t, clk, "طرابلس")

	require.NoError(t, p.Publish(c.Snapshot()))

	msgs := b.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "mawaqit/طرابلس/period", msgs[0].topic)
	assert.True(t, msgs[0].retained, "period messages are retained")

	var m Message
	require.NoError(t, json.Unmarshal(msgs[0].payload, &m))
	assert.Equal(t, prayer.Dhuhr, m.Period)
	assert.Equal(t, "الظهر", m.Arabic)
	assert.Equal(t, "#38BDF8", m.Color)
	require.NotNil(t, m.Next)
	assert.Equal(t, prayer.Asr, m.Next.Name)
}

func TestPublish_SkipsNonReady(t *testing.T) {
	b := &fakeBroker{}
	p := newPublisher(b, "mawaqit", zerolog.Nop())

	require.NoError(t, p.Publish(controller.ViewModel{State: controller.Loading, City: "x"}))
	assert.Empty(t, b.messages())
}

func TestPublish_Error(t *testing.T) {
	b := &fakeBroker{err: errors.New("not connected")}
	p := newPublisher(b, "mawaqit", zerolog.Nop())
	clk := &clock{}
	clk.set(13, 0)
	c := readyController(t, clk, "Tripoli")

	err := p.Publish(c.Snapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestAttach_PublishesOnPeriodChangeOnly(t *testing.T) {
	b := &fakeBroker{}
	p := newPublisher(b, "mawaqit", zerolog.Nop())
	clk := &clock{}
	clk.set(15, 28)
	c := readyController(t, clk, "Tripoli")

	detach := p.Attach(c)
	require.Len(t, b.messages(), 1, "current period published on attach")

	clk.set(15, 29)
	c.Tick()
	assert.Len(t, b.messages(), 1, "same period must not be republished")

	clk.set(15, 31)
	c.Tick()
	msgs := b.messages()
	require.Len(t, msgs, 2)
	var m Message
	require.NoError(t, json.Unmarshal(msgs[1].payload, &m))
	assert.Equal(t, prayer.Asr, m.Period)

	detach()
	clk.set(17, 50)
	c.Tick()
	assert.Len(t, b.messages(), 2, "detached publisher must stay quiet")
}

func TestClose_Disconnects(t *testing.T) {
	b := &fakeBroker{}
	newPublisher(b, "mawaqit", zerolog.Nop()).Close()
	assert.True(t, b.disconnected)
}

// TestBroker_Integration needs a broker at MAWAQIT_TEST_MQTT
// (default tcp://localhost:1883) and is skipped without one.
func TestBroker_Integration(t *testing.T) {
	url := os.Getenv("MAWAQIT_TEST_MQTT")
	if url == "" {
		url = "tcp://localhost:1883"
	}
	p, err := Connect(url, fmt.Sprintf("mawaqit-test-%d", time.Now().UnixNano()), "mawaqit-test", zerolog.Nop())
	if err != nil {
		t.Skipf("MQTT broker not available, skipping test: %v", err)
	}
	defer p.Close()

	clk := &clock{}
	clk.set(13, 0)
	c := readyController(t, clk, "Tripoli")
	assert.NoError(t, p.Publish(c.Snapshot()))
}
