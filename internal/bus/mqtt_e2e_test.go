//go:build e2e

package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/i474232898/forecast-telemetry/internal/config"
	"github.com/i474232898/forecast-telemetry/internal/weather"
)

func startMosquitto(t *testing.T) (string, int) {
	t.Helper()
	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2",
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp").WithStartupTimeout(30 * time.Second),
	}

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start mosquitto container: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := c.MappedPort(ctx, "1883/tcp")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return host, port.Int()
}

func connectPeer(t *testing.T, host string, port int) mqtt.Client {
	t.Helper()
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", host, port)).
		SetClientID("e2e-peer")
	peer := mqtt.NewClient(opts)
	if token := peer.Connect(); !token.WaitTimeout(10*time.Second) || token.Error() != nil {
		t.Fatalf("peer connect: %v", token.Error())
	}
	t.Cleanup(func() { peer.Disconnect(100) })
	return peer
}

func TestBusRoundTrip(t *testing.T) {
	host, port := startMosquitto(t)

	cfg := &config.AppConfig{MQTTBroker: host, MQTTPort: port, MQTTClientID: "e2e-bus", MQTTTopicPrefix: "signalk"}
	sink := &fakeSink{}
	b := NewBus(cfg, quietLogger)
	b.SetSink(sink)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := b.Connect(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer b.Disconnect()

	peer := connectPeer(t, host, port)

	received := make(chan mqtt.Message, 4)
	token := peer.Subscribe("signalk/environment/#", 1, func(_ mqtt.Client, msg mqtt.Message) {
		received <- msg
	})
	if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("peer subscribe: %v", token.Error())
	}

	batch := weather.Batch{
		Kind:      weather.BatchValues,
		Timestamp: time.Now().UTC(),
		Deltas:    []weather.Delta{{Path: "environment.forecast.temperature", Value: 292.0}},
	}
	if err := b.Publish(ctx, batch); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-received:
		if msg.Topic() != "signalk/environment/forecast/temperature" {
			t.Fatalf("topic = %s", msg.Topic())
		}
		var payload struct {
			Value float64 `json:"value"`
		}
		if err := json.Unmarshal(msg.Payload(), &payload); err != nil || payload.Value != 292 {
			t.Fatalf("payload = %s (%v)", msg.Payload(), err)
		}
	case <-ctx.Done():
		t.Fatalf("value message not received")
	}

	// Host inputs published by a peer reach the sink. Retained, so the
	// bus subscription racing the publish still sees it.
	peer.Publish("signalk/navigation/position", 1, true, `{"latitude": 10, "longitude": 20}`).Wait()
	for {
		if positions, _ := sink.snapshot(); len(positions) == 1 {
			if positions[0] != (weather.Position{Latitude: 10, Longitude: 20}) {
				t.Fatalf("position = %v", positions[0])
			}
			break
		}
		select {
		case <-ctx.Done():
			t.Fatalf("position not forwarded to sink")
		case <-time.After(50 * time.Millisecond):
		}
	}
}
