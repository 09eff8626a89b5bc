package realtime

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/optocase-backend/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubReconnectAndOrdering(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := CaseAttemptsChannel(uuid.New())

	clientA := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientA, channel)

	first := SSEMessage{Channel: channel, Event: SSEEventAttemptEnsured, Data: map[string]any{"seq": 1}}
	second := SSEMessage{Channel: channel, Event: SSEEventAttemptSaved, Data: map[string]any{"seq": 2}}
	hub.Broadcast(first)
	hub.Broadcast(second)

	gotFirst := recvMessage(t, clientA.Outbound, time.Second)
	gotSecond := recvMessage(t, clientA.Outbound, time.Second)
	if gotFirst.Event != SSEEventAttemptEnsured {
		t.Fatalf("first event: want=%s got=%s", SSEEventAttemptEnsured, gotFirst.Event)
	}
	if gotSecond.Event != SSEEventAttemptSaved {
		t.Fatalf("second event: want=%s got=%s", SSEEventAttemptSaved, gotSecond.Event)
	}

	hub.CloseClient(clientA)
	select {
	case _, ok := <-clientA.Outbound:
		if ok {
			t.Fatalf("clientA outbound should be closed after disconnect")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for clientA channel close")
	}

	clientB := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientB, channel)
	reconnect := SSEMessage{Channel: channel, Event: SSEEventAttemptCompleted, Data: map[string]any{"seq": 3}}
	hub.Broadcast(reconnect)
	gotReconnect := recvMessage(t, clientB.Outbound, time.Second)
	if gotReconnect.Event != SSEEventAttemptCompleted {
		t.Fatalf("reconnect event: want=%s got=%s", SSEEventAttemptCompleted, gotReconnect.Event)
	}
}

func TestSSEHubChannelIsolation(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	caseChannel := CaseAttemptsChannel(uuid.New())
	userChannel := UserChannel(uuid.New())

	caseClient := hub.NewSSEClient(uuid.New())
	hub.AddChannel(caseClient, caseChannel)

	userClient := hub.NewSSEClient(uuid.New())
	hub.AddChannel(userClient, userChannel)

	hub.Broadcast(SSEMessage{Channel: caseChannel, Event: SSEEventAttemptSaved})

	got := recvMessage(t, caseClient.Outbound, time.Second)
	if got.Channel != caseChannel {
		t.Fatalf("case client channel: want=%s got=%s", caseChannel, got.Channel)
	}
	select {
	case msg := <-userClient.Outbound:
		t.Fatalf("user client should not receive case events, got %s", msg.Event)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSSEHubRepeatedSaveEventsAllDelivered(t *testing.T) {
	hub := NewSSEHub(mustTestLogger(t))
	channel := CaseAttemptsChannel(uuid.New())
	client := hub.NewSSEClient(uuid.New())
	hub.AddChannel(client, channel)

	dup := SSEMessage{Channel: channel, Event: SSEEventAttemptSaved, Data: map[string]any{"section": "exam"}}
	hub.Broadcast(dup)
	hub.Broadcast(dup)

	gotOne := recvMessage(t, client.Outbound, time.Second)
	gotTwo := recvMessage(t, client.Outbound, time.Second)
	if gotOne.Event != SSEEventAttemptSaved || gotTwo.Event != SSEEventAttemptSaved {
		t.Fatalf("expected both save events to be delivered, got=%s and %s", gotOne.Event, gotTwo.Event)
	}
}
