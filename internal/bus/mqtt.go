package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/i474232898/forecast-telemetry/internal/config"
	"github.com/i474232898/forecast-telemetry/internal/weather"
)

const (
	qos            = byte(1) // At least once delivery
	publishWait    = 5 * time.Second
	subscribeWait  = 5 * time.Second
	positionLeaf   = "navigation/position"
	elevationLeaf  = "navigation/gnss/antennaAltitude"
	metaTopicInfix = "meta"
)

// Sink receives the host inputs read from the bus. *weather.Service satisfies it.
type Sink interface {
	IngestPosition(pos weather.Position)
	IngestElevation(v any)
}

// Bus publishes batches to MQTT topics and feeds position and elevation
// updates back into the sink. It implements weather.Publisher.
type Bus struct {
	client    mqtt.Client
	cfg       *config.AppConfig
	prefix    string
	sink      Sink
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

// valueMessage is the payload of a value topic.
type valueMessage struct {
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBus(cfg *config.AppConfig, logger *slog.Logger) *Bus {
	b := &Bus{
		cfg:    cfg,
		prefix: strings.Trim(cfg.MQTTTopicPrefix, "/"),
		logger: logger.With("component", "mqtt"),
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)

	// Session settings
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	// Keepalive / timeouts
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// Subscriptions do not survive a clean-session reconnect; renew them here.
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		b.setConnected(true)
		b.logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
		if err := b.subscribe(); err != nil {
			b.logger.Error("mqtt subscribe failed", "error", err)
		}
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		b.setConnected(false)
		b.logger.Warn("mqtt connection lost", "error", err)
	})

	b.client = mqtt.NewClient(opts)
	return b
}

// SetSink sets the receiver of position and elevation updates.
func (b *Bus) SetSink(sink Sink) {
	b.mu.Lock()
	b.sink = sink
	b.mu.Unlock()
}

// Topic maps a bus path onto a topic under prefix.
func Topic(prefix, path string) string {
	return strings.Trim(prefix, "/") + "/" + strings.ReplaceAll(path, ".", "/")
}

// MetaTopic maps a bus path onto its retained meta topic.
func MetaTopic(prefix, path string) string {
	return Topic(prefix, metaTopicInfix+"."+path)
}

// Connect establishes connection to the MQTT broker. Subscriptions are made by
// the connect handler.
func (b *Bus) Connect(ctx context.Context) error {
	// Fail fast if already stopped.
	select {
	case <-b.stopCh:
		return fmt.Errorf("bus stopped")
	default:
	}

	// Fast path.
	if b.IsConnected() {
		return nil
	}

	token := b.client.Connect()

	// Wait in a ctx/stop-aware loop.
	const poll = 200 * time.Millisecond
	for !token.WaitTimeout(poll) {
		select {
		case <-ctx.Done():
			b.client.Disconnect(0)
			return ctx.Err()
		case <-b.stopCh:
			b.client.Disconnect(0)
			return fmt.Errorf("bus stopped")
		default:
		}
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

func (b *Bus) subscribe() error {
	filters := map[string]byte{
		Topic(b.prefix, positionLeaf):  qos,
		Topic(b.prefix, elevationLeaf): qos,
	}
	token := b.client.SubscribeMultiple(filters, func(_ mqtt.Client, msg mqtt.Message) {
		b.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(subscribeWait) {
		return fmt.Errorf("subscribe timeout for %d topics", len(filters))
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	b.logger.Info("subscribed to host inputs", "position", Topic(b.prefix, positionLeaf), "elevation", Topic(b.prefix, elevationLeaf))
	return nil
}

func (b *Bus) handleMessage(topic string, payload []byte) {
	b.logger.Debug("received mqtt message", "topic", topic, "size", len(payload))

	b.mu.RLock()
	sink := b.sink
	b.mu.RUnlock()
	if sink == nil {
		return
	}

	switch topic {
	case Topic(b.prefix, positionLeaf):
		pos, err := DecodePosition(payload)
		if err != nil {
			b.logger.Warn("failed to parse position message",
				"topic", topic,
				"error", err,
				"payload", string(payload),
			)
			return
		}
		sink.IngestPosition(pos)
	case Topic(b.prefix, elevationLeaf):
		sink.IngestElevation(DecodeElevation(payload))
	default:
		b.logger.Debug("ignoring message on unexpected topic", "topic", topic)
	}
}

type positionFields struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// DecodePosition accepts a bare {"latitude","longitude"} object or one wrapped
// in a {"value": ...} envelope.
func DecodePosition(payload []byte) (weather.Position, error) {
	var envelope struct {
		Value *positionFields `json:"value"`
		positionFields
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return weather.Position{}, err
	}
	fields := envelope.positionFields
	if envelope.Value != nil {
		fields = *envelope.Value
	}
	if fields.Latitude == nil || fields.Longitude == nil {
		return weather.Position{}, fmt.Errorf("latitude and longitude are required")
	}
	pos := weather.Position{Latitude: *fields.Latitude, Longitude: *fields.Longitude}
	if !pos.Valid() {
		return weather.Position{}, fmt.Errorf("position out of range: %v, %v", pos.Latitude, pos.Longitude)
	}
	return pos, nil
}

// DecodeElevation returns the elevation carried by payload: a bare JSON value
// or a {"value": ...} envelope. Unparseable payloads decode to nil.
func DecodeElevation(payload []byte) any {
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil
	}
	if obj, ok := v.(map[string]any); ok {
		return obj["value"]
	}
	return v
}

// Publish sends every delta of the batch to its topic. Meta batches are retained
// so late subscribers learn units and descriptions.
func (b *Bus) Publish(ctx context.Context, batch weather.Batch) error {
	if !b.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	retained := batch.Kind == weather.BatchMeta
	var errs []error
	for _, d := range batch.Deltas {
		topic := Topic(b.prefix, d.Path)
		var payload any = valueMessage{Value: d.Value, Timestamp: batch.Timestamp}
		if retained {
			topic = MetaTopic(b.prefix, d.Path)
			payload = d.Value
		}
		data, err := json.Marshal(payload)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.Path, err))
			continue
		}
		token := b.client.Publish(topic, qos, retained, data)
		if err := waitToken(ctx, token); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", topic, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	b.logger.Debug("batch published", "id", batch.ID, "kind", batch.Kind, "deltas", len(batch.Deltas))
	return nil
}

func waitToken(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishWait):
		return fmt.Errorf("publish timeout")
	}
}

// IsConnected returns whether the client is connected.
func (b *Bus) IsConnected() bool {
	b.mu.RLock()
	connected := b.connected
	b.mu.RUnlock()
	return connected && b.client.IsConnected()
}

// Disconnect stops the bus and closes the MQTT connection.
// Idempotent and safe to call multiple times.
func (b *Bus) Disconnect() {
	// Signal shutdown once (unblocks any Connect loops).
	b.stopOnce.Do(func() { close(b.stopCh) })

	if b.client != nil && b.IsConnected() {
		token := b.client.Unsubscribe(Topic(b.prefix, positionLeaf), Topic(b.prefix, elevationLeaf))
		token.WaitTimeout(2 * time.Second)
	}

	if b.client != nil {
		b.client.Disconnect(250)
	}

	b.setConnected(false)
	b.logger.Info("mqtt bus disconnected")
}

func (b *Bus) setConnected(v bool) {
	b.mu.Lock()
	b.connected = v
	b.mu.Unlock()
}
