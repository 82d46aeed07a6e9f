// Package broker connects to the MQTT broker that carries accelerometer and
// GPS readings from the bike's sensor board.
package broker

import (
	"context"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/manav03panchal/bikeguard/internal/config"
	"github.com/manav03panchal/bikeguard/internal/errors"
	"github.com/manav03panchal/bikeguard/internal/logging"
)

const (
	connectTimeout  = 10 * time.Second
	disconnectQuiet = 250 // ms
)

// Options builds client options for one subscriber. role is appended to the
// configured client id so the sensor and location clients do not evict each other.
func Options(cfg config.MQTTConfig, role string) *mqtt.ClientOptions {
	clientID := cfg.ClientID
	if role != "" {
		clientID += "-" + role
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	return opts
}

// Connect opens a client and waits for the connection.
func Connect(cfg config.MQTTConfig, role string) (mqtt.Client, error) {
	client := mqtt.NewClient(Options(cfg, role))
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, errors.Wrapf(errors.ErrNetworkUnavailable, "mqtt %s: %v", cfg.Broker, token.Error())
	}
	logging.Info("connected to MQTT broker", logging.KeyComponent, role, "broker", cfg.Broker)
	return client, nil
}

// Subscribe connects, subscribes to topic and calls fn for every payload
// until ctx is done, then unsubscribes and disconnects.
func Subscribe(ctx context.Context, cfg config.MQTTConfig, role, topic string, fn func(payload []byte)) error {
	client, err := Connect(cfg, role)
	if err != nil {
		return err
	}

	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		fn(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		client.Disconnect(disconnectQuiet)
		return errors.Wrapf(token.Error(), "subscribe %s", topic)
	}
	logging.Info("subscribed to MQTT topic", logging.KeyComponent, role, "topic", topic)

	go func() {
		<-ctx.Done()
		client.Unsubscribe(topic).WaitTimeout(time.Second)
		client.Disconnect(disconnectQuiet)
	}()
	return nil
}
