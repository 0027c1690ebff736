package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/b08x/sift-toolbox-report-builder-sub001/citest/testutil"
	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/client"
	"github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"
)

var _ = Describe("Analysis lifecycle", func() {
	var (
		ts  *testutil.TestServer
		ctx context.Context
	)

	AfterEach(func() {
		if ts != nil {
			ts.Stop()
			ts = nil
		}
	})

	Describe("streaming a report", func() {
		BeforeEach(func() {
			var err error
			ts, err = testutil.StartTestServer(testutil.WithChunks("SIFT ", "analysis ", "done"))
			Expect(err).NotTo(HaveOccurred())
			ctx = context.Background()
		})

		It("delivers status, content, and exactly one terminal frame", func() {
			transport := client.NewHTTPTransport(ts.BaseURL)
			result, err := transport.Initiate(ctx, types.AnalysisQuery{Text: "is the moon cheese?"})
			Expect(err).NotTo(HaveOccurred())
			Expect(result.SessionID).NotTo(BeEmpty())

			sc := testutil.NewStreamClient(ts.BaseURL)
			frames, err := sc.Collect(ctx, result.StreamURL)
			Expect(err).NotTo(HaveOccurred())

			kinds := testutil.Kinds(frames)
			Expect(kinds[0]).To(Equal(types.FrameStatus))
			Expect(kinds[len(kinds)-1]).To(Equal(types.FrameComplete))
			Expect(testutil.TerminalCount(frames)).To(Equal(1))
		})

		It("rejects a second claim of the same handle", func() {
			transport := client.NewHTTPTransport(ts.BaseURL)
			result, err := transport.Initiate(ctx, types.AnalysisQuery{Text: "claim"})
			Expect(err).NotTo(HaveOccurred())

			sc := testutil.NewStreamClient(ts.BaseURL)
			_, err = sc.Collect(ctx, result.StreamURL)
			Expect(err).NotTo(HaveOccurred())

			_, err = sc.Collect(ctx, result.StreamURL)
			Expect(err).To(HaveOccurred())
		})

		It("drives a full conversation through the session controller", func() {
			ctrl := client.NewController(client.NewHTTPTransport(ts.BaseURL))

			Expect(ctrl.Start(ctx, types.AnalysisQuery{Text: "check this"})).To(Succeed())
			Eventually(ctrl.InFlight, "5s", "20ms").Should(BeFalse())
			Expect(ctrl.Status()).To(Equal(types.StatusComplete))

			msgs := ctrl.Store().Messages()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[1].Text).To(Equal("SIFT analysis done"))
			Expect(msgs[1].Loading).To(BeFalse())

			Expect(ctrl.FollowUp(ctx, "why?")).To(Succeed())
			Eventually(ctrl.InFlight, "5s", "20ms").Should(BeFalse())
			Expect(ctrl.Store().Messages()).To(HaveLen(4))

			Expect(ctrl.Restart(ctx)).To(Succeed())
			Eventually(ctrl.InFlight, "5s", "20ms").Should(BeFalse())
			msgs = ctrl.Store().Messages()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].OriginalQuery).NotTo(BeNil())
		})
	})

	Describe("event feed", func() {
		BeforeEach(func() {
			var err error
			ts, err = testutil.StartTestServer(testutil.WithChunks("fed"))
			Expect(err).NotTo(HaveOccurred())
			ctx = context.Background()
		})

		It("mirrors session lifecycle onto /api/v1/event", func() {
			feedCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()

			feed := make(chan []types.StreamFrame, 1)
			go func() {
				defer GinkgoRecover()
				sc := testutil.NewStreamClient(ts.BaseURL)
				frames, _ := sc.Collect(feedCtx, "/api/v1/event")
				feed <- frames
			}()
			time.Sleep(150 * time.Millisecond)

			transport := client.NewHTTPTransport(ts.BaseURL)
			result, err := transport.Initiate(ctx, types.AnalysisQuery{Text: "claim"})
			Expect(err).NotTo(HaveOccurred())
			sc := testutil.NewStreamClient(ts.BaseURL)
			_, err = sc.Collect(ctx, result.StreamURL)
			Expect(err).NotTo(HaveOccurred())

			frames := <-feed
			Expect(frames).NotTo(BeEmpty())
			var sawCreated bool
			for _, f := range frames {
				if strings.Contains(string(f.Payload), "analysis.created") {
					sawCreated = true
				}
			}
			Expect(sawCreated).To(BeTrue())
		})
	})

	Describe("follow-up chat", func() {
		BeforeEach(func() {
			var err error
			ts, err = testutil.StartTestServer(testutil.WithChunks("chatty answer"))
			Expect(err).NotTo(HaveOccurred())
			ctx = context.Background()
		})

		It("streams the response on the request body", func() {
			sc := testutil.NewStreamClient(ts.BaseURL)
			frames, err := sc.CollectPost(ctx, "/api/v1/chat",
				`{"message":"hello","history":[{"role":"user","content":"earlier"}]}`)
			Expect(err).NotTo(HaveOccurred())

			Expect(testutil.TerminalCount(frames)).To(Equal(1))
			var text string
			for _, f := range frames {
				if f.Kind == types.FrameDelta {
					var p types.DeltaPayload
					Expect(json.Unmarshal(f.Payload, &p)).To(Succeed())
					text += p.Delta
				}
			}
			Expect(text).To(Equal("chatty answer"))
		})
	})

	Describe("provider failure", func() {
		BeforeEach(func() {
			var err error
			ts, err = testutil.StartTestServer(
				testutil.WithChunks("partial "),
				testutil.WithMidStreamError(errors.New("backend fell over")),
			)
			Expect(err).NotTo(HaveOccurred())
			ctx = context.Background()
		})

		It("ends the stream with a single error frame and persists the errored session", func() {
			transport := client.NewHTTPTransport(ts.BaseURL)
			result, err := transport.Initiate(ctx, types.AnalysisQuery{Text: "claim"})
			Expect(err).NotTo(HaveOccurred())

			sc := testutil.NewStreamClient(ts.BaseURL)
			frames, err := sc.Collect(ctx, result.StreamURL)
			Expect(err).NotTo(HaveOccurred())

			last := frames[len(frames)-1]
			Expect(last.Kind).To(Equal(types.FrameError))
			Expect(testutil.TerminalCount(frames)).To(Equal(1))

			Eventually(func() types.SessionStatus {
				session, err := ts.Server.Gateway().GetSession(ctx, result.SessionID)
				if err != nil {
					return ""
				}
				return session.Status
			}, "3s", "50ms").Should(Equal(types.StatusErrored))
		})

		It("surfaces the error on the controller conversation", func() {
			ctrl := client.NewController(client.NewHTTPTransport(ts.BaseURL))

			Expect(ctrl.Start(ctx, types.AnalysisQuery{Text: "claim"})).To(Succeed())
			Eventually(ctrl.InFlight, "5s", "20ms").Should(BeFalse())

			Expect(ctrl.Status()).To(Equal(types.StatusErrored))
			msgs := ctrl.Store().Messages()
			Expect(msgs[1].IsError).To(BeTrue())
			Expect(msgs[1].Text).To(ContainSubstring("backend fell over"))
		})
	})

	Describe("stopping mid-stream", func() {
		BeforeEach(func() {
			var err error
			ts, err = testutil.StartTestServer(
				testutil.WithChunks("one ", "two ", "three ", "four ", "five "),
				testutil.WithChunkDelay(80*time.Millisecond),
			)
			Expect(err).NotTo(HaveOccurred())
			ctx = context.Background()
		})

		It("keeps partial text and settles as stopped", func() {
			ctrl := client.NewController(client.NewHTTPTransport(ts.BaseURL))

			Expect(ctrl.Start(ctx, types.AnalysisQuery{Text: "claim"})).To(Succeed())
			Eventually(func() string {
				msgs := ctrl.Store().Messages()
				return msgs[len(msgs)-1].Text
			}, "5s", "20ms").Should(ContainSubstring("one"))

			ctrl.Stop()
			Expect(ctrl.Status()).To(Equal(types.StatusStopped))

			msgs := ctrl.Store().Messages()
			last := msgs[len(msgs)-1]
			Expect(last.Loading).To(BeFalse())
			Expect(last.IsError).To(BeFalse())
			Expect(last.Text).To(HaveSuffix(client.StoppedMarker))

			// Stop is idempotent.
			ctrl.Stop()
			Expect(ctrl.Status()).To(Equal(types.StatusStopped))
		})
	})
})
