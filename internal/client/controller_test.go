package client

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"
)

// fakeTransport hands out scripted stream bodies in order.
type fakeTransport struct {
	mu        sync.Mutex
	bodies    []io.ReadCloser
	initErr   error
	chatErr   error
	initiates int
	lastChat  ChatRequest
}

func (f *fakeTransport) nextBody() io.ReadCloser {
	if len(f.bodies) == 0 {
		return io.NopCloser(strings.NewReader(""))
	}
	body := f.bodies[0]
	f.bodies = f.bodies[1:]
	return body
}

func (f *fakeTransport) Initiate(ctx context.Context, query types.AnalysisQuery) (*InitiateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initErr != nil {
		return nil, f.initErr
	}
	f.initiates++
	return &InitiateResult{SessionID: "s1", Token: "t1", StreamURL: "/api/v1/analysis/stream/t1"}, nil
}

func (f *fakeTransport) OpenStream(ctx context.Context, streamURL string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextBody(), nil
}

func (f *fakeTransport) Chat(ctx context.Context, req ChatRequest) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	f.lastChat = req
	return f.nextBody(), nil
}

func (f *fakeTransport) Models(ctx context.Context) ([]types.Model, error) {
	return nil, nil
}

func sseBody(events string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(events))
}

func completedStream(text string) io.ReadCloser {
	return sseBody("data: {\"delta\":\"" + text + "\"}\n\nevent: complete\ndata: {}\n\n")
}

// stallBody blocks reads until released, then fails them. Close leaves the
// pending read blocked, so a superseded stream can surface its failure long
// after the controller has moved on.
type stallBody struct {
	release chan struct{}
	once    sync.Once
}

func newStallBody() *stallBody { return &stallBody{release: make(chan struct{})} }

func (b *stallBody) Read(p []byte) (int, error) {
	<-b.release
	return 0, io.ErrUnexpectedEOF
}

func (b *stallBody) Close() error { return nil }

func (b *stallBody) fail() { b.once.Do(func() { close(b.release) }) }

func waitSettled(t *testing.T, ctrl *Controller) {
	t.Helper()
	require.Eventually(t, func() bool { return !ctrl.InFlight() },
		2*time.Second, 5*time.Millisecond)
}

func TestController_StartStreamsToCompletion(t *testing.T) {
	ft := &fakeTransport{bodies: []io.ReadCloser{completedStream("report text")}}
	ctrl := NewController(ft)

	err := ctrl.Start(context.Background(), types.AnalysisQuery{Text: "claim"})
	require.NoError(t, err)
	waitSettled(t, ctrl)

	assert.Equal(t, types.StatusComplete, ctrl.Status())

	msgs := ctrl.Store().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, types.SenderUser, msgs[0].Sender)
	require.NotNil(t, msgs[0].OriginalQuery)
	assert.Equal(t, "claim", msgs[0].OriginalQuery.Text)
	assert.Equal(t, "report text", msgs[1].Text)
	assert.False(t, msgs[1].Loading)
}

func TestController_StartReturnsBeforeTerminalFrame(t *testing.T) {
	pr, pw := io.Pipe()
	ft := &fakeTransport{bodies: []io.ReadCloser{pr}}
	ctrl := NewController(ft)

	// The body carries no frames yet, so a blocking Start would never
	// return from this call.
	require.NoError(t, ctrl.Start(context.Background(), types.AnalysisQuery{Text: "claim"}))

	assert.True(t, ctrl.InFlight())
	assert.Equal(t, types.StatusStreaming, ctrl.Status())
	msgs := ctrl.Store().Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].Loading)

	pw.Write([]byte("event: complete\ndata: {}\n\n"))
	pw.Close()
	waitSettled(t, ctrl)
	assert.Equal(t, types.StatusComplete, ctrl.Status())
}

func TestController_ConcurrentStartsAdmitOne(t *testing.T) {
	pr, pw := io.Pipe()
	ft := &fakeTransport{bodies: []io.ReadCloser{pr}}
	ctrl := NewController(ft)

	errs := make(chan error, 2)
	gate := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-gate
			errs <- ctrl.Start(context.Background(), types.AnalysisQuery{Text: "claim"})
		}()
	}
	close(gate)
	wg.Wait()
	close(errs)

	var started, busy int
	for err := range errs {
		switch {
		case err == nil:
			started++
		case errors.Is(err, ErrBusy):
			busy++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, busy)
	assert.Equal(t, 1, ft.initiates)
	assert.Equal(t, 2, ctrl.Store().Len())

	pw.Write([]byte("event: complete\ndata: {}\n\n"))
	pw.Close()
	waitSettled(t, ctrl)
}

func TestController_EmptyQueryRejectedWithoutMutation(t *testing.T) {
	ctrl := NewController(&fakeTransport{})

	err := ctrl.Start(context.Background(), types.AnalysisQuery{})

	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, ctrl.Store().Len())
	assert.Equal(t, types.StatusIdle, ctrl.Status())
}

func TestController_UnknownReportTypeRejected(t *testing.T) {
	ctrl := NewController(&fakeTransport{})

	err := ctrl.Start(context.Background(), types.AnalysisQuery{
		Text:       "claim",
		ReportType: "conspiracy_mode",
	})

	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, ctrl.Store().Len())
}

func TestController_InitiateFailureErrorsPlaceholder(t *testing.T) {
	ft := &fakeTransport{initErr: &types.GatewayError{Reason: "no provider"}}
	ctrl := NewController(ft)

	err := ctrl.Start(context.Background(), types.AnalysisQuery{Text: "claim"})
	require.Error(t, err)

	assert.Equal(t, types.StatusErrored, ctrl.Status())
	msgs := ctrl.Store().Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[1].IsError)
	assert.False(t, msgs[1].Loading)
}

func TestController_StopKeepsPartialText(t *testing.T) {
	pr, pw := io.Pipe()
	ft := &fakeTransport{bodies: []io.ReadCloser{pr}}
	ctrl := NewController(ft)

	require.NoError(t, ctrl.Start(context.Background(), types.AnalysisQuery{Text: "claim"}))
	_, err := pw.Write([]byte("data: {\"delta\":\"partial\"}\n\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		msgs := ctrl.Store().Messages()
		return msgs[len(msgs)-1].Text == "partial"
	}, 2*time.Second, 5*time.Millisecond)

	ctrl.Stop()
	ctrl.Stop() // idempotent
	pw.Close()
	waitSettled(t, ctrl)

	assert.Equal(t, types.StatusStopped, ctrl.Status())
	msgs := ctrl.Store().Messages()
	last := msgs[len(msgs)-1]
	assert.Equal(t, "partial"+StoppedMarker, last.Text)
	assert.False(t, last.Loading)
	assert.False(t, last.IsError)
}

func TestController_StopThenFollowUpStaysComplete(t *testing.T) {
	stall := newStallBody()
	ft := &fakeTransport{bodies: []io.ReadCloser{stall}}
	ctrl := NewController(ft)

	require.NoError(t, ctrl.Start(context.Background(), types.AnalysisQuery{Text: "claim"}))
	ctrl.Stop()

	ft.mu.Lock()
	ft.bodies = []io.ReadCloser{completedStream("follow-up answer")}
	ft.mu.Unlock()

	require.NoError(t, ctrl.FollowUp(context.Background(), "and then?"))
	waitSettled(t, ctrl)
	require.Equal(t, types.StatusComplete, ctrl.Status())

	// The stopped stream fails only now; it must not revert the finished
	// exchange or touch its message.
	stall.fail()
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, types.StatusComplete, ctrl.Status())
	msgs := ctrl.Store().Messages()
	require.Len(t, msgs, 4)
	last := msgs[3]
	assert.Equal(t, "follow-up answer", last.Text)
	assert.False(t, last.IsError)
	assert.False(t, last.Loading)
}

func TestController_RestartWhileStreamingStaysComplete(t *testing.T) {
	stall := newStallBody()
	ft := &fakeTransport{bodies: []io.ReadCloser{stall, completedStream("rerun")}}
	ctrl := NewController(ft)

	require.NoError(t, ctrl.Start(context.Background(), types.AnalysisQuery{Text: "claim"}))
	require.NoError(t, ctrl.Restart(context.Background()))
	waitSettled(t, ctrl)
	require.Equal(t, types.StatusComplete, ctrl.Status())

	stall.fail()
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, types.StatusComplete, ctrl.Status())
	msgs := ctrl.Store().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "rerun", msgs[1].Text)
	assert.False(t, msgs[1].IsError)
}

func TestController_FollowUpIgnoredWhileStreaming(t *testing.T) {
	pr, pw := io.Pipe()
	ft := &fakeTransport{bodies: []io.ReadCloser{pr}}
	ctrl := NewController(ft)

	require.NoError(t, ctrl.Start(context.Background(), types.AnalysisQuery{Text: "claim"}))
	before := ctrl.Store().Len()

	require.NoError(t, ctrl.FollowUp(context.Background(), "too soon"))
	assert.Equal(t, before, ctrl.Store().Len())

	pw.Write([]byte("event: complete\ndata: {}\n\n"))
	pw.Close()
	waitSettled(t, ctrl)
}

func TestController_FollowUpCarriesHistory(t *testing.T) {
	ft := &fakeTransport{bodies: []io.ReadCloser{
		completedStream("first answer"),
		completedStream("second answer"),
	}}
	ctrl := NewController(ft)

	require.NoError(t, ctrl.Start(context.Background(), types.AnalysisQuery{Text: "claim"}))
	waitSettled(t, ctrl)

	require.NoError(t, ctrl.FollowUp(context.Background(), "why?"))
	waitSettled(t, ctrl)

	assert.Equal(t, types.StatusComplete, ctrl.Status())
	require.Len(t, ft.lastChat.History, 2)
	assert.Equal(t, "claim", ft.lastChat.History[0].Content)
	assert.Equal(t, "first answer", ft.lastChat.History[1].Content)
	assert.Equal(t, "s1", ft.lastChat.SessionID)

	msgs := ctrl.Store().Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "second answer", msgs[3].Text)
}

func TestController_RestartReplaysOriginalQuery(t *testing.T) {
	ft := &fakeTransport{bodies: []io.ReadCloser{
		completedStream("first run"),
		completedStream("second run"),
	}}
	ctrl := NewController(ft)

	require.NoError(t, ctrl.Start(context.Background(), types.AnalysisQuery{Text: "claim"}))
	waitSettled(t, ctrl)
	require.NoError(t, ctrl.FollowUp(context.Background(), "aside"))
	waitSettled(t, ctrl)

	// Queue the stream for the restart run.
	ft.mu.Lock()
	ft.bodies = []io.ReadCloser{completedStream("rerun")}
	ft.mu.Unlock()

	require.NoError(t, ctrl.Restart(context.Background()))
	waitSettled(t, ctrl)

	msgs := ctrl.Store().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, types.SenderUser, msgs[0].Sender)
	assert.NotNil(t, msgs[0].OriginalQuery)
	assert.Equal(t, "rerun", msgs[1].Text)
	assert.Equal(t, 2, ft.initiates)
}

func TestController_RestartWithoutSnapshotIsNoop(t *testing.T) {
	ctrl := NewController(&fakeTransport{})

	require.NoError(t, ctrl.Restart(context.Background()))
	assert.Equal(t, 0, ctrl.Store().Len())
	assert.Equal(t, types.StatusIdle, ctrl.Status())
}

func TestController_ResetClearsEverything(t *testing.T) {
	ft := &fakeTransport{bodies: []io.ReadCloser{completedStream("answer")}}
	ctrl := NewController(ft)
	ctrl.SetPendingInput("draft")

	require.NoError(t, ctrl.Start(context.Background(), types.AnalysisQuery{Text: "claim"}))
	waitSettled(t, ctrl)

	ctrl.Reset(true)

	assert.Equal(t, types.StatusIdle, ctrl.Status())
	assert.Nil(t, ctrl.Session())
	assert.Equal(t, 0, ctrl.Store().Len())
	assert.Empty(t, ctrl.PendingInput())
}
