package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neuroserve/neuroserve/internal/domain"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var payloadArg string

	cmd := &cobra.Command{
		Use:   "run <service> <task>",
		Short: "Run a task of a service",
		Example: `  servicectl run text_tools arabic_normalize --payload '{"text": "إلى المدرسة"}'
  servicectl run pdf_reader extract_text --payload @payload.json
  echo '{"text": "..."}' | servicectl run text_tools spellcheck_ar --payload -`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parsePayload(payloadArg, cmd.InOrStdin())
			if err != nil {
				return err
			}

			stop := startSpinner(!opts.json, fmt.Sprintf("Running %s/%s", args[0], args[1]))
			res, err := newBackend(opts).Run(cmd.Context(), args[0], args[1], payload)
			stop()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return printJSON(out, res)
			}
			dimColor.Fprintf(out, "%s/%s\n", res.Service, res.Task)
			return printJSON(out, res.Result)
		},
	}
	cmd.Flags().StringVarP(&payloadArg, "payload", "p", "{}", "JSON payload, @file to read it from a file, or - for stdin")
	return cmd
}

// parsePayload decodes a JSON object given inline, as @file or as - (stdin).
func parsePayload(arg string, stdin io.Reader) (domain.Payload, error) {
	var data []byte
	switch {
	case arg == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, domain.IOError("failed to read payload from stdin", err)
		}
		data = b
	case strings.HasPrefix(arg, "@"):
		b, err := os.ReadFile(strings.TrimPrefix(arg, "@"))
		if err != nil {
			return nil, domain.IOError(fmt.Sprintf("failed to read payload file %s", strings.TrimPrefix(arg, "@")), err)
		}
		data = b
	default:
		data = []byte(arg)
	}

	if strings.TrimSpace(string(data)) == "" {
		return domain.Payload{}, nil
	}
	var payload domain.Payload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, domain.ValidationError("payload must be a JSON object: "+err.Error(), err)
	}
	if payload == nil {
		return nil, domain.ValidationError("payload must be a JSON object", nil)
	}
	return payload, nil
}
