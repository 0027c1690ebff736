package event

import (
	"sync"
	"testing"
	"time"

	"github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"
)

func TestBus_SubscribeAndPublishSync(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var got []Event
	b.Subscribe(AnalysisCreated, func(e Event) {
		got = append(got, e)
	})

	session := &types.AnalysisSession{ID: "s1"}
	b.PublishSync(Event{Type: AnalysisCreated, Data: AnalysisCreatedData{Info: session}})
	b.PublishSync(Event{Type: AnalysisDeleted, Data: AnalysisDeletedData{SessionID: "s1"}})

	if len(got) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(got))
	}
	data, ok := got[0].Data.(AnalysisCreatedData)
	if !ok {
		t.Fatalf("Unexpected data type %T", got[0].Data)
	}
	if data.Info.ID != "s1" {
		t.Errorf("Expected session s1, got %s", data.Info.ID)
	}
}

func TestBus_SubscribeAllSeesEveryType(t *testing.T) {
	b := NewBus()
	defer b.Close()

	var mu sync.Mutex
	var seen []EventType
	b.SubscribeAll(func(e Event) {
		mu.Lock()
		seen = append(seen, e.Type)
		mu.Unlock()
	})

	b.PublishSync(Event{Type: AnalysisCreated})
	b.PublishSync(Event{Type: AnalysisFrame})
	b.PublishSync(Event{Type: AnalysisUpdated})

	if len(seen) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(seen))
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus()
	defer b.Close()

	calls := 0
	unsub := b.Subscribe(AnalysisFrame, func(e Event) { calls++ })

	b.PublishSync(Event{Type: AnalysisFrame})
	unsub()
	b.PublishSync(Event{Type: AnalysisFrame})

	if calls != 1 {
		t.Errorf("Expected 1 call, got %d", calls)
	}
}

func TestBus_AsyncPublishDelivers(t *testing.T) {
	b := NewBus()
	defer b.Close()

	done := make(chan Event, 1)
	b.Subscribe(AnalysisFrame, func(e Event) { done <- e })

	frame := types.DeltaFrame("chunk")
	b.Publish(Event{Type: AnalysisFrame, Data: AnalysisFrameData{SessionID: "s1", Frame: frame}})

	select {
	case e := <-done:
		data := e.Data.(AnalysisFrameData)
		if data.Frame.Kind != types.FrameDelta {
			t.Errorf("Expected delta frame, got %s", data.Frame.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_ClosedBusDropsEverything(t *testing.T) {
	b := NewBus()

	calls := 0
	b.Subscribe(AnalysisCreated, func(e Event) { calls++ })
	b.Close()

	b.PublishSync(Event{Type: AnalysisCreated})
	if calls != 0 {
		t.Errorf("Expected no calls after close, got %d", calls)
	}

	// Subscribing after close is inert.
	unsub := b.Subscribe(AnalysisCreated, func(e Event) { calls++ })
	unsub()
}
