package main

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/client"
	"github.com/b08x/sift-toolbox-report-builder-sub001/pkg/types"
)

var (
	reportType string
	modelRef   string
	imageRef   string
	oneShot    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [text to analyze]",
	Short: "Run a SIFT analysis and chat about the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		query := types.AnalysisQuery{
			Text:       text,
			ImageRef:   imageRef,
			ReportType: types.ReportType(reportType),
			Model:      modelRef,
		}

		renderer := newRenderer(noColor)
		renderer.banner(serverURL)

		ctrl := client.NewController(client.NewHTTPTransport(serverURL))

		if text != "" {
			renderer.user(text)
		}
		if err := ctrl.Start(cmd.Context(), query); err != nil {
			var verr *types.ValidationError
			if errors.As(err, &verr) {
				return errors.New(verr.Reason)
			}
			return err
		}
		watchTurn(ctrl, renderer)

		if oneShot {
			return nil
		}
		return runRepl(cmd.Context(), ctrl, renderer)
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&reportType, "report", "r", string(types.ReportFullCheck), "report type: sift_full_check, context_report, community_note")
	analyzeCmd.Flags().StringVarP(&modelRef, "model", "m", "", "model as provider/model (server default when empty)")
	analyzeCmd.Flags().StringVarP(&imageRef, "image", "i", "", "image URL or data reference to analyze")
	analyzeCmd.Flags().BoolVar(&oneShot, "one-shot", false, "exit after the initial report instead of opening the chat")
}

// watchTurn renders the in-flight AI message as it streams and blocks until
// the turn reaches a terminal state.
func watchTurn(ctrl *client.Controller, r *renderer) {
	messages := ctrl.Store().Messages()
	if len(messages) == 0 {
		return
	}
	last := messages[len(messages)-1]
	if last.Sender != types.SenderAI {
		return
	}
	r.beginAI(last.ModelID)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		messages = ctrl.Store().Messages()
		last = messages[len(messages)-1]
		if last.Sender == types.SenderAI {
			r.streamTo(last.Text)
		}
		if !ctrl.InFlight() && !last.Loading {
			break
		}
	}
	r.endAI(last)
	r.status(ctrl.Status())
}
