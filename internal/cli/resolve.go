package cli

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"torrentstream/streamresolver/internal/app"
	"torrentstream/streamresolver/internal/domain"
)

func newResolveCommand(opts *options) *cobra.Command {
	var (
		extra  string
		pretty bool
	)
	cmd := &cobra.Command{
		Use:   "resolve <movie|series> <id>",
		Short: "Resolve one identifier and print the streams as JSON",
		Example: `  streamctl resolve movie tt1234567
  streamctl resolve series tt0944947:1:2 --pretty`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			request := domain.StreamRequest{Type: args[0], ID: args[1]}
			if extra != "" {
				values, err := url.ParseQuery(extra)
				if err != nil {
					return fmt.Errorf("invalid --extra: %w", err)
				}
				request.Extra = make(map[string]string, len(values))
				for key := range values {
					request.Extra[key] = values.Get(key)
				}
			}

			pipeline, err := app.BuildPipeline(cmd.Context(), opts.cfg, opts.logger)
			if err != nil {
				return fmt.Errorf("building pipeline: %w", err)
			}
			defer pipeline.Close()

			response := pipeline.Service.Resolve(cmd.Context(), request)
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetEscapeHTML(false)
			if pretty {
				encoder.SetIndent("", "  ")
			}
			return encoder.Encode(response)
		},
	}
	cmd.Flags().StringVar(&extra, "extra", "", "Extra request properties as a query string, e.g. filename=x.mkv")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Indent the JSON output")
	return cmd
}
