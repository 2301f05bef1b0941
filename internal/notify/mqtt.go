// Package notify broadcasts period changes over MQTT so wall displays, lights
// or speakers can follow the active prayer period without polling.
//
// Each city gets a retained message on <prefix>/<city>/period, so a device
// that connects late still learns the current period.
package notify

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/smokyabdulrahman/mawaqit/internal/controller"
	"github.com/smokyabdulrahman/mawaqit/internal/prayer"
	"github.com/smokyabdulrahman/mawaqit/internal/theme"
)

const (
	qos            = 1
	publishTimeout = 5 * time.Second
)

// Message is the JSON payload of a period update.
type Message struct {
	City      string           `json:"city"`
	Period    prayer.Name      `json:"period"`
	Arabic    string           `json:"arabic"`
	Color     string           `json:"color"`
	Next      *prayer.Prayer   `json:"next,omitempty"`
	Remaining prayer.Remaining `json:"remaining"`
	Progress  float64          `json:"progress"`
	At        time.Time        `json:"at"`
}

// broker is the part of mqtt.Client the publisher uses.
type broker interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Publisher sends period updates to one topic prefix.
type Publisher struct {
	client broker
	prefix string
	log    zerolog.Logger
}

// Connect dials brokerURL (e.g. tcp://localhost:1883) and returns a Publisher
// for topics under prefix.
func Connect(brokerURL, clientID, prefix string, log zerolog.Logger) (*Publisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(publishTimeout)
	opts.OnConnect = func(mqtt.Client) {
		log.Info().Str("broker", brokerURL).Msg("connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", brokerURL).Msg("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: timed out", brokerURL)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", brokerURL, err)
	}

	return newPublisher(client, prefix, log), nil
}

func newPublisher(client broker, prefix string, log zerolog.Logger) *Publisher {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "mawaqit"
	}
	return &Publisher{client: client, prefix: prefix, log: log}
}

// Topic returns the period topic for city. MQTT wildcard and level
// characters in the name are replaced.
func (p *Publisher) Topic(city string) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#':
			return '_'
		}
		return r
	}, strings.TrimSpace(city))
	return p.prefix + "/" + safe + "/period"
}

// Publish sends the period carried by vm. View models that are not Ready
// are skipped.
func (p *Publisher) Publish(vm controller.ViewModel) error {
	if vm.State != controller.Ready {
		return nil
	}

	pal := theme.For(vm.Theme)
	msg := Message{
		City:      vm.City,
		Period:    vm.Theme,
		Arabic:    pal.Arabic,
		Color:     string(pal.From),
		Next:      vm.Next,
		Remaining: vm.Remaining,
		Progress:  vm.Progress,
		At:        vm.UpdatedAt,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal period message: %w", err)
	}

	topic := p.Topic(vm.City)
	token := p.client.Publish(topic, qos, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	p.log.Debug().Str("topic", topic).Str("period", string(vm.Theme)).Msg("period published")
	return nil
}

// Attach publishes c's current period now and again whenever the city or
// the period changes. The returned func stops following c.
func (p *Publisher) Attach(c *controller.Controller) (detach func()) {
	var (
		mu   sync.Mutex
		last string
	)
	publish := func(vm controller.ViewModel) {
		if vm.State != controller.Ready {
			return
		}
		key := vm.City + "\x00" + string(vm.Theme)
		mu.Lock()
		if key == last {
			mu.Unlock()
			return
		}
		last = key
		mu.Unlock()

		if err := p.Publish(vm); err != nil {
			p.log.Warn().Err(err).Str("city", vm.City).Msg("failed to publish period")
		}
	}

	unsubscribe := c.Subscribe(publish)
	publish(c.Snapshot())
	return unsubscribe
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
