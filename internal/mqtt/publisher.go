package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"weather-dashboard/internal/weather"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type Publisher struct {
	client      mqtt.Client
	topicPrefix string
	enabled     bool
}

type PublisherConfig struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	Enabled     bool
}

func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if !cfg.Enabled {
		return &Publisher{enabled: false}, nil
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			log.Printf("MQTT connection lost: %v", err)
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			log.Println("MQTT connected")
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &Publisher{
		client:      client,
		topicPrefix: cfg.TopicPrefix,
		enabled:     true,
	}, nil
}

// PublishObservation publishes per-field values plus a retained full
// JSON state message under {prefix}/{city}/...
func (p *Publisher) PublishObservation(obs *weather.Observation) error {
	if !p.enabled || obs == nil {
		return nil
	}

	city := topicSegment(obs.City)

	topics := map[string]interface{}{
		"temperature": obs.Temperature,
		"feels_like":  obs.FeelsLike,
		"humidity":    obs.Humidity,
		"description": obs.Description,
	}

	for name, value := range topics {
		topic := fmt.Sprintf("%s/%s/%s", p.topicPrefix, city, name)
		payload := fmt.Sprintf("%v", value)
		token := p.client.Publish(topic, 0, false, payload)
		token.Wait()
		if token.Error() != nil {
			log.Printf("Failed to publish to %s: %v", topic, token.Error())
		}
	}

	stateJSON, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("failed to marshal observation: %w", err)
	}

	stateTopic := fmt.Sprintf("%s/%s/state", p.topicPrefix, city)
	token := p.client.Publish(stateTopic, 0, true, stateJSON)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish state: %w", token.Error())
	}

	return nil
}

func (p *Publisher) IsConnected() bool {
	if !p.enabled {
		return false
	}
	return p.client.IsConnected()
}

func (p *Publisher) Close() {
	if p.enabled && p.client != nil {
		p.client.Disconnect(1000)
	}
}

// topicSegment makes a city name safe for use inside an MQTT topic.
func topicSegment(city string) string {
	s := strings.ReplaceAll(city, " ", "_")
	s = strings.ReplaceAll(s, "/", "-")
	return s
}
