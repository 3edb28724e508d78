package telemetry

import (
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/digiexchris/HeatTreatFurnace/internal/models"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

var newClient = paho.NewClient

// Config is the broker connection used by RealPublisher.
type Config struct {
	Broker      string
	ClientID    string
	TopicPrefix string
	Username    string
	Password    string
	QoS         byte
}

// RealPublisher publishes to an actual MQTT broker. The broker announces
// "offline" on the status topic if the connection drops.
type RealPublisher struct {
	client paho.Client
	prefix string
	qos    byte
}

// NewRealPublisher connects to cfg.Broker and announces "online".
func NewRealPublisher(cfg Config) (*RealPublisher, error) {
	status := Topic(cfg.TopicPrefix, TopicStatus)

	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetWill(status, StatusOffline, 1, true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	// Re-announce after every (re)connect so the retained status stays correct.
	opts.SetOnConnectHandler(func(c paho.Client) {
		c.Publish(status, 1, true, StatusOnline)
	})

	client := newClient(opts)
	token := client.Connect()
	// The client keeps retrying in the background until disconnected, so a
	// failed publisher must not leave it running.
	if !token.WaitTimeout(connectTimeout) {
		client.Disconnect(0)
		return nil, errors.New("mqtt: connection timeout")
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt: connect to broker: %w", err)
	}

	return &RealPublisher{client: client, prefix: cfg.TopicPrefix, qos: cfg.QoS}, nil
}

func (p *RealPublisher) PublishTransition(ev models.FurnaceEvent) error {
	payload, err := FormatTransition(ev)
	if err != nil {
		return fmt.Errorf("format transition: %w", err)
	}
	return p.publish(Topic(p.prefix, TopicTransitions), false, payload)
}

func (p *RealPublisher) PublishState(st models.FurnaceState) error {
	payload, err := FormatState(st)
	if err != nil {
		return fmt.Errorf("format state: %w", err)
	}
	return p.publish(Topic(p.prefix, TopicState), true, payload)
}

func (p *RealPublisher) publish(topic string, retained bool, payload []byte) error {
	token := p.client.Publish(topic, p.qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt: publish %s timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt: publish %s: %w", topic, err)
	}
	return nil
}

// Close marks the controller offline and disconnects.
func (p *RealPublisher) Close() error {
	token := p.client.Publish(Topic(p.prefix, TopicStatus), 1, true, StatusOffline)
	token.WaitTimeout(publishTimeout)
	p.client.Disconnect(1000)
	return nil
}
