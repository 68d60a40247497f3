// Package events publishes domain events for downstream consumers such as
// moderator notifications and the review summariser.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// Event types.
const (
	ReviewPosted       = "review.posted"
	SpotSuggested      = "spot.suggested"
	SubmissionApproved = "submission.approved"
	SubmissionRejected = "submission.rejected"
)

const (
	defaultTopicPrefix = "mama-odekake"
	defaultPublishWait = 5 * time.Second
	defaultConnectWait = 10 * time.Second
)

const publishQoS byte = 1

// ErrPublishTimeout is returned when the broker does not acknowledge in time.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// Event is a domain event. Data is marshalled as JSON.
type Event struct {
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

// New stamps an event with the current time.
func New(eventType string, data interface{}) Event {
	return Event{Type: eventType, OccurredAt: time.Now().UTC(), Data: data}
}

// Publisher sends domain events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close()
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() {}

// mqttClient is the part of mqtt.Client the publisher needs.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes events as JSON to {prefix}/{type} at QoS 1.
type MQTTPublisher struct {
	client mqttClient
	prefix string
	wait   time.Duration
}

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

// NewMQTTPublisher connects to the broker.
func NewMQTTPublisher(cfg MQTTConfig) (*MQTTPublisher, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt broker is empty")
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("mama-odekake-%d", time.Now().UnixNano())
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(defaultConnectWait).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("MQTT connection lost")
		}).
		SetOnConnectHandler(func(mqtt.Client) {
			log.WithField("broker", cfg.Broker).Info("MQTT connected")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(defaultConnectWait) {
		return nil, fmt.Errorf("mqtt connect to %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}

	return newMQTTPublisher(client, cfg.TopicPrefix), nil
}

func newMQTTPublisher(client mqttClient, prefix string) *MQTTPublisher {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = defaultTopicPrefix
	}
	return &MQTTPublisher{client: client, prefix: prefix, wait: defaultPublishWait}
}

// Topic returns the topic an event type is published to.
func (p *MQTTPublisher) Topic(eventType string) string {
	return p.prefix + "/" + eventType
}

// Publish sends e and waits for the broker acknowledgement, the context or
// the publish timeout, whichever comes first.
func (p *MQTTPublisher) Publish(ctx context.Context, e Event) error {
	if e.Type == "" {
		return errors.New("publish: event type is empty")
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("publish %s: marshal: %w", e.Type, err)
	}

	token := p.client.Publish(p.Topic(e.Type), publishQoS, false, payload)

	timer := time.NewTimer(p.wait)
	defer timer.Stop()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", e.Type, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", e.Type, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("publish %s: %w", e.Type, ErrPublishTimeout)
	}
}

// Close disconnects from the broker, allowing in-flight messages 250ms.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
