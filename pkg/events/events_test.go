package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attos/attos-backend/pkg/enums"
	"github.com/attos/attos-backend/pkg/logger"
)

type orderPayload struct {
	OrderID string `json:"orderId"`
}

func TestNewEnvelope(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	env, err := NewEnvelope(enums.EventOrderPlaced, "ord-1", at, orderPayload{OrderID: "ord-1"})
	require.NoError(t, err)

	id, err := uuid.Parse(env.EventID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.Equal(t, EnvelopeVersion, env.Version)
	assert.Equal(t, time.UTC, env.OccurredAt.Location())

	var decoded orderPayload
	require.NoError(t, env.Decode(&decoded))
	assert.Equal(t, "ord-1", decoded.OrderID)
}

func TestNewEnvelopeValidation(t *testing.T) {
	_, err := NewEnvelope("order.teleported", "ord-1", time.Now(), nil)
	assert.Error(t, err)
	_, err = NewEnvelope(enums.EventOrderPlaced, "", time.Now(), nil)
	assert.Error(t, err)
}

func TestBusDispatchesByType(t *testing.T) {
	bus := NewBus()
	var placed, all int
	bus.Subscribe(enums.EventOrderPlaced, HandlerFunc(func(context.Context, Envelope) error {
		placed++
		return nil
	}))
	bus.Subscribe("", HandlerFunc(func(context.Context, Envelope) error {
		all++
		return nil
	}))

	require.NoError(t, bus.Publish(context.Background(), Envelope{EventType: enums.EventOrderPlaced}))
	require.NoError(t, bus.Publish(context.Background(), Envelope{EventType: enums.EventOrderDelivered}))
	assert.Equal(t, 1, placed)
	assert.Equal(t, 2, all)
}

func TestBusRunsAllHandlersAndJoinsErrors(t *testing.T) {
	bus := NewBus()
	var ran int
	for i := 0; i < 2; i++ {
		bus.Subscribe(enums.EventOrderPlaced, HandlerFunc(func(context.Context, Envelope) error {
			ran++
			return errors.New("boom")
		}))
	}
	err := bus.Publish(context.Background(), Envelope{EventType: enums.EventOrderPlaced})
	require.Error(t, err)
	assert.Equal(t, 2, ran)
}

func TestMultiPublisher(t *testing.T) {
	var calls int
	ok := PublisherFunc(func(context.Context, Envelope) error { calls++; return nil })
	failing := PublisherFunc(func(context.Context, Envelope) error { calls++; return errors.New("down") })

	err := Multi{ok, nil, failing, Nop{}}.Publish(context.Background(), Envelope{})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

type fakeTopic struct {
	msgs []*gcppubsub.Message
	err  error
}

func (f *fakeTopic) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	f.msgs = append(f.msgs, msg)
	return fakeResult{err: f.err}
}

type fakeResult struct{ err error }

func (r fakeResult) Get(context.Context) (string, error) { return "server-id", r.err }

func TestPubSubPublisherEncodesEnvelope(t *testing.T) {
	topic := &fakeTopic{}
	pub := &PubSubPublisher{topic: topic, timeout: time.Second}
	env, err := NewEnvelope(enums.EventOrderStageAdvanced, "ord-9", time.Now(), map[string]string{"stage": "preparing"})
	require.NoError(t, err)

	require.NoError(t, pub.Publish(context.Background(), env))
	require.Len(t, topic.msgs, 1)
	msg := topic.msgs[0]
	assert.Equal(t, env.EventID, msg.Attributes[AttrEventID])
	assert.Equal(t, "order.stage_advanced", msg.Attributes[AttrEventType])
	assert.Equal(t, "ord-9", msg.Attributes[AttrAggregateID])

	decoded, err := DecodeMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, env.EventID, decoded.EventID)
	assert.JSONEq(t, string(env.Data), string(decoded.Data))

	topic.err = errors.New("unavailable")
	assert.Error(t, pub.Publish(context.Background(), env))
}

func TestDecodeMessageFallsBackToAttributes(t *testing.T) {
	data, err := json.Marshal(map[string]any{"data": map[string]string{"orderId": "ord-1"}})
	require.NoError(t, err)
	msg := &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			AttrEventID:     uuid.NewString(),
			AttrEventType:   "order.placed",
			AttrAggregateID: "ord-1",
			AttrOccurredAt:  "2026-03-01T12:00:00Z",
		},
	}
	env, err := DecodeMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, enums.EventOrderPlaced, env.EventType)
	assert.Equal(t, "ord-1", env.AggregateID)
	assert.Equal(t, 2026, env.OccurredAt.Year())

	_, err = DecodeMessage(&gcppubsub.Message{Data: []byte(`{"eventType":"order.placed"}`)})
	assert.Error(t, err, "missing event id")
	_, err = DecodeMessage(&gcppubsub.Message{Data: []byte("not json")})
	assert.Error(t, err)
}

type stubManager struct {
	checkResult bool
	checkErr    error
	checked     []uuid.UUID
	deleted     []uuid.UUID
}

func (s *stubManager) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	s.checked = append(s.checked, eventID)
	return s.checkResult, s.checkErr
}

func (s *stubManager) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	s.deleted = append(s.deleted, eventID)
	return nil
}

type stubHandler struct {
	called bool
	err    error
}

func (s *stubHandler) Handle(context.Context, Envelope) error {
	s.called = true
	return s.err
}

func newTestConsumer(handler Handler, manager *stubManager) *Consumer {
	return &Consumer{name: "ranking", handler: handler, manager: manager, logg: logger.Nop()}
}

func buildOrderMessage(t *testing.T) *gcppubsub.Message {
	t.Helper()
	env, err := NewEnvelope(enums.EventOrderPlaced, "ord-1", time.Now(), orderPayload{OrderID: "ord-1"})
	require.NoError(t, err)
	msg, err := EncodeMessage(env)
	require.NoError(t, err)
	msg.ID = "msg-1"
	return msg
}

func TestConsumerProcess(t *testing.T) {
	t.Run("handled once", func(t *testing.T) {
		manager := &stubManager{}
		handler := &stubHandler{}
		res := newTestConsumer(handler, manager).process(context.Background(), buildOrderMessage(t))
		assert.False(t, res.nack)
		assert.True(t, handler.called)
		assert.Len(t, manager.checked, 1)
	})

	t.Run("already processed", func(t *testing.T) {
		manager := &stubManager{checkResult: true}
		handler := &stubHandler{}
		res := newTestConsumer(handler, manager).process(context.Background(), buildOrderMessage(t))
		assert.False(t, res.nack)
		assert.False(t, handler.called)
	})

	t.Run("handler error releases mark and nacks", func(t *testing.T) {
		manager := &stubManager{}
		handler := &stubHandler{err: errors.New("boom")}
		res := newTestConsumer(handler, manager).process(context.Background(), buildOrderMessage(t))
		assert.True(t, res.nack)
		assert.Len(t, manager.deleted, 1)
	})

	t.Run("unsupported event acks", func(t *testing.T) {
		manager := &stubManager{}
		handler := &stubHandler{err: ErrUnsupportedEvent}
		res := newTestConsumer(handler, manager).process(context.Background(), buildOrderMessage(t))
		assert.False(t, res.nack)
		assert.Empty(t, manager.deleted)
	})

	t.Run("idempotency failure nacks", func(t *testing.T) {
		manager := &stubManager{checkErr: errors.New("redis down")}
		handler := &stubHandler{}
		res := newTestConsumer(handler, manager).process(context.Background(), buildOrderMessage(t))
		assert.True(t, res.nack)
		assert.False(t, handler.called)
	})

	t.Run("invalid envelope acks without touching idempotency", func(t *testing.T) {
		manager := &stubManager{}
		handler := &stubHandler{}
		res := newTestConsumer(handler, manager).process(context.Background(), &gcppubsub.Message{Data: []byte("invalid json")})
		assert.False(t, res.nack)
		assert.Empty(t, manager.checked)
	})
}

func TestNewConsumerValidation(t *testing.T) {
	_, err := NewConsumer(ConsumerParams{})
	assert.Error(t, err)
}
