package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hupe1980/veclust/feature"
	"github.com/hupe1980/veclust/model"
)

type assignRecord struct {
	Text    string  `json:"text"`
	Cluster int     `json:"cluster"`
	SqDist  float64 `json:"sq_dist"`
}

func newAssignCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "assign MODEL FILE",
		Short: "Assign lines to the clusters of a saved model",
		Long: `Load MODEL from the configured store and print, for every non-blank
line of FILE (or stdin for "-"), the nearest cluster as a JSON line.

Examples:
  veclust assign notes.vclm new-notes.txt`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			lines, err := readLines(cmd, args[1])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			records, err := runAssign(ctx, cfg, args[0], lines)
			if err != nil {
				return err
			}

			enc := gojson.NewEncoder(cmd.OutOrStdout())
			for _, rec := range records {
				if err := enc.Encode(rec); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func runAssign(ctx context.Context, cfg Config, name string, lines []string) ([]assignRecord, error) {
	store, err := cfg.OpenStore(ctx)
	if err != nil {
		return nil, err
	}
	m, err := model.Load(ctx, store, name)
	if err != nil {
		return nil, err
	}

	bow := feature.BagOfWords{Lowercase: cfg.Lowercase}
	records := make([]assignRecord, 0, len(lines))
	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := bow.Features(line)
		if err != nil {
			return nil, err
		}
		c, d, err := m.Assign(f)
		if err != nil {
			return nil, err
		}
		records = append(records, assignRecord{Text: line, Cluster: c, SqDist: d})
	}
	return records, nil
}
