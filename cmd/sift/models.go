package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/b08x/sift-toolbox-report-builder-sub001/internal/client"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models the server's providers expose",
	RunE: func(cmd *cobra.Command, args []string) error {
		transport := client.NewHTTPTransport(serverURL)
		models, err := transport.Models(cmd.Context())
		if err != nil {
			return err
		}

		renderer := newRenderer(noColor)
		for _, m := range models {
			vision := ""
			if m.SupportsVision {
				vision = " (vision)"
			}
			fmt.Printf("%s%s\n    %s\n", renderer.model(m.ProviderID+"/"+m.ID), vision, m.Name)
		}
		return nil
	},
}
