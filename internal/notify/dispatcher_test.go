package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Motasaith/mern-ecommerce-sub000/internal/model"
)

type stubUsers struct {
	err error
}

func (s *stubUsers) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.User{ID: id, Email: "buyer@example.com"}, nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	calls     []string
	tracking  *model.TrackingInfo
	err       error
	delivered chan struct{}
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{delivered: make(chan struct{}, 16)}
}

func (n *recordingNotifier) record(call string) error {
	n.mu.Lock()
	n.calls = append(n.calls, call)
	n.mu.Unlock()
	n.delivered <- struct{}{}
	return n.err
}

func (n *recordingNotifier) SendOrderConfirmation(ctx context.Context, user model.User, order model.Order) error {
	return n.record("confirmation:" + order.ID)
}

func (n *recordingNotifier) SendOrderShipped(ctx context.Context, user model.User, order model.Order, tracking *model.TrackingInfo) error {
	n.mu.Lock()
	n.tracking = tracking
	n.mu.Unlock()
	return n.record("shipped:" + order.ID)
}

func (n *recordingNotifier) SendOrderCancelled(ctx context.Context, user model.User, order model.Order) error {
	return n.record("cancelled:" + order.ID)
}

func (n *recordingNotifier) Calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []EventType
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e.Type)
	return nil
}

func waitDelivered(t *testing.T, n *recordingNotifier, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		select {
		case <-n.delivered:
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for notification %d", i+1)
		}
	}
}

func TestDispatcher_RoutesEvents(t *testing.T) {
	notifier := newRecordingNotifier()
	publisher := &recordingPublisher{}
	d := NewDispatcher(10, &stubUsers{}, notifier, zap.NewNop(), WithPublisher(publisher))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	now := time.Now()
	shipped := model.Order{ID: "o2", Shipment: model.ShipmentState{Tracking: &model.TrackingInfo{Number: "TRK1"}}}

	d.Publish(NewEvent(EventOrderCreated, model.Order{ID: "o1"}, now))
	d.Publish(NewEvent(EventOrderPaid, model.Order{ID: "o1"}, now))
	d.Publish(NewEvent(EventOrderShipped, shipped, now))
	d.Publish(NewEvent(EventOrderCancelled, model.Order{ID: "o3"}, now))

	waitDelivered(t, notifier, 3)
	cancel()
	<-done

	calls := notifier.Calls()
	want := []string{"confirmation:o1", "shipped:o2", "cancelled:o3"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls[%d] = %q, want %q", i, calls[i], want[i])
		}
	}
	if notifier.tracking == nil || notifier.tracking.Number != "TRK1" {
		t.Fatalf("tracking not passed to notifier: %+v", notifier.tracking)
	}

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	if len(publisher.events) != 4 {
		t.Fatalf("published %d events, want 4", len(publisher.events))
	}
}

func TestDispatcher_FailureIsSwallowed(t *testing.T) {
	notifier := newRecordingNotifier()
	notifier.err = errors.New("smtp unavailable")
	d := NewDispatcher(10, &stubUsers{}, notifier, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	d.Publish(NewEvent(EventOrderCreated, model.Order{ID: "o1"}, time.Now()))
	d.Publish(NewEvent(EventOrderCreated, model.Order{ID: "o2"}, time.Now()))

	waitDelivered(t, notifier, 2)
}

func TestDispatcher_PublishDoesNotBlockWhenFull(t *testing.T) {
	d := NewDispatcher(1, &stubUsers{}, newRecordingNotifier(), zap.NewNop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			d.Publish(NewEvent(EventOrderCreated, model.Order{ID: "o"}, time.Now()))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("Publish blocked on a full queue")
	}

	if len(d.queue) != 1 {
		t.Fatalf("queue length = %d, want 1", len(d.queue))
	}
}

func TestDispatcher_DrainsOnShutdown(t *testing.T) {
	notifier := newRecordingNotifier()
	d := NewDispatcher(10, &stubUsers{}, notifier, zap.NewNop())

	d.Publish(NewEvent(EventOrderCreated, model.Order{ID: "o1"}, time.Now()))
	d.Publish(NewEvent(EventOrderCreated, model.Order{ID: "o2"}, time.Now()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)

	if got := len(notifier.Calls()); got != 2 {
		t.Fatalf("delivered %d notifications, want 2", got)
	}
}

func TestParseBrokers(t *testing.T) {
	got := ParseBrokers(" kafka-1:9092, ,kafka-2:9092 ")
	if len(got) != 2 || got[0] != "kafka-1:9092" || got[1] != "kafka-2:9092" {
		t.Fatalf("ParseBrokers() = %v", got)
	}
	if len(ParseBrokers("")) != 0 {
		t.Fatalf("expected no brokers for empty string")
	}
}
