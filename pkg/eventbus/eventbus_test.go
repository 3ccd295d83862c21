package eventbus

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/campus-hr/hrdesk/pkg/logging"
)

type args struct {
	data interface{}
}

func TestPublisher_Publish_NoMatch(t *testing.T) {
	type args2 struct {
		data interface{}
	}
	logBuffer := bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(&logBuffer)
	log.SetLevel(logrus.WarnLevel)

	publisher := NewEventPublisher(log)
	publisher.Subscribe(func(e *args) {
		t.Error("should not be called")
	})
	publisher.Publish(&args2{data: "test"})

	require.Contains(t, logBuffer.String(), "eventbus.Publish: no matching subscribers")
}

func TestPublisher_Subscribe(t *testing.T) {
	publisher := NewEventPublisher(logging.ConsoleLogger(logrus.WarnLevel))
	var data interface{}
	publisher.Subscribe(func(e *args) {
		data = e.data
	})
	publisher.Publish(&args{data: "test"})
	require.Equal(t, "test", data)
}

func TestPublisher_PanickingHandlerDoesNotStopOthers(t *testing.T) {
	log := logrus.New()
	log.SetOutput(&bytes.Buffer{})
	publisher := NewEventPublisher(log)

	called := false
	publisher.Subscribe(func(e *args) { panic("boom") })
	publisher.Subscribe(func(e *args) { called = true })

	require.NotPanics(t, func() { publisher.Publish(&args{}) })
	require.True(t, called)
}

func TestPublisher_Unsubscribe(t *testing.T) {
	publisher := NewEventPublisher(logging.ConsoleLogger(logrus.ErrorLevel))
	handler := func(e *args) {}
	other := func(e *args) {}
	publisher.Subscribe(handler)
	publisher.Subscribe(other)
	require.Equal(t, 2, publisher.SubscribersCount())

	publisher.Unsubscribe(handler)
	require.Equal(t, 1, publisher.SubscribersCount())

	publisher.Clear()
	require.Equal(t, 0, publisher.SubscribersCount())
}

func TestPublisher_PublishE(t *testing.T) {
	publisher := NewEventPublisher(logging.ConsoleLogger(logrus.ErrorLevel)).(EventBusWithError)

	require.ErrorIs(t, publisher.PublishE(&args{}), ErrNoSubscribers)

	boom := errors.New("boom")
	publisher.Subscribe(func(e *args) error { return boom })
	publisher.Subscribe(func(e *args) int { return 1 })
	publisher.Subscribe(func(e *args) error { return nil })

	err := publisher.PublishE(&args{})
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, err, ErrInvalidHandlerReturn)
}

func TestMatchSignature(t *testing.T) {
	type a struct{}
	type b struct{}

	require.True(t, MatchSignature(func(e *a) {}, []interface{}{&a{}}))
	require.False(t, MatchSignature(func(e *a) {}, []interface{}{&b{}}))
	require.False(t, MatchSignature(func(e *a) {}, []interface{}{}))
	require.False(t, MatchSignature(func(e *a) {}, []interface{}{&a{}, &a{}}))
	require.True(t, MatchSignature(func(ctx context.Context) {}, []interface{}{context.Background()}))
	require.True(t, MatchSignature(func(e *a) {}, []interface{}{nil}))
	require.False(t, MatchSignature("not a func", []interface{}{}))
}
