package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/client"
)

const helpText = `Commands:
  /stop      stop the current stream, keeping partial text
  /restart   discard everything after the original query and rerun it
  /reset     clear the conversation and start over
  /help      show this help
  /quit      exit

Anything else is sent as a follow-up question.`

// runRepl reads follow-up input until /quit or EOF.
func runRepl(ctx context.Context, ctrl *client.Controller, r *renderer) error {
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("sift> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			switch input {
			case "/quit", "/exit":
				ctrl.Stop()
				return nil
			case "/help":
				r.help(helpText)
			case "/stop":
				ctrl.Stop()
				r.status(ctrl.Status())
			case "/restart":
				if err := ctrl.Restart(ctx); err != nil {
					fmt.Fprintln(os.Stderr, "restart failed:", err)
					continue
				}
				watchTurn(ctrl, r)
			case "/reset":
				ctrl.Reset(true)
				r.status(ctrl.Status())
			default:
				r.help(fmt.Sprintf("Unknown command: %s\n%s", input, helpText))
			}
			continue
		}

		r.user(input)
		if err := ctrl.FollowUp(ctx, input); err != nil {
			fmt.Fprintln(os.Stderr, "follow-up failed:", err)
			continue
		}
		watchTurn(ctrl, r)
	}
}
