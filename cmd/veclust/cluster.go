package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hupe1980/veclust"
	"github.com/hupe1980/veclust/feature"
	"github.com/hupe1980/veclust/model"
)

type clusterOutput struct {
	RunID     string          `json:"run_id"`
	Reason    string          `json:"reason"`
	Epochs    int             `json:"epochs"`
	AvgSqDist float64         `json:"avg_sq_dist"`
	Model     string          `json:"model,omitempty"`
	Clusters  []clusterRecord `json:"clusters"`
}

type clusterRecord struct {
	Score   float64        `json:"score"`
	Members []memberRecord `json:"members"`
}

type memberRecord struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

func newClusterCmd(root *rootFlags) *cobra.Command {
	var (
		clusters  int
		maxEpochs int
		minImpr   float64
		roundRob  bool
		workers   int
		seed      uint64
		save      string
	)

	cmd := &cobra.Command{
		Use:   "cluster FILE",
		Short: "Cluster the lines of a text file",
		Long: `Cluster the non-blank lines of FILE (or stdin for "-") by their
bag-of-words features and print the clusters as JSON.

Examples:
  veclust cluster -k 5 notes.txt
  veclust cluster -k 5 --seed 42 --save notes.vclm notes.txt
  cat notes.txt | veclust cluster -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			fs := cmd.Flags()
			if fs.Changed("clusters") {
				cfg.Clusters = clusters
			}
			if fs.Changed("max-epochs") {
				cfg.MaxEpochs = maxEpochs
			}
			if fs.Changed("min-improvement") {
				cfg.MinRelativeImprovement = minImpr
			}
			if fs.Changed("round-robin") {
				cfg.KMeansPlusPlus = !roundRob
			}
			if fs.Changed("workers") {
				cfg.Workers = workers
			}
			if fs.Changed("seed") {
				cfg.Seed = seed
			}

			lines, err := readLines(cmd, args[0])
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out, err := runCluster(ctx, cfg, lines, save)
			if err != nil {
				return err
			}

			enc := gojson.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	fs := cmd.Flags()
	fs.IntVarP(&clusters, "clusters", "k", 0, "number of clusters")
	fs.IntVar(&maxEpochs, "max-epochs", 0, "maximum number of Lloyd epochs (0 returns the seeding)")
	fs.Float64Var(&minImpr, "min-improvement", 0, "minimum relative improvement per epoch")
	fs.BoolVar(&roundRob, "round-robin", false, "seed round-robin instead of k-means++")
	fs.IntVar(&workers, "workers", 0, "assignment workers (<= 0 uses all CPUs)")
	fs.Uint64Var(&seed, "seed", 0, "random seed (0 picks one)")
	fs.StringVar(&save, "save", "", "save the model under this name in the configured store")

	return cmd
}

func runCluster(ctx context.Context, cfg Config, lines []string, save string) (*clusterOutput, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("no input lines")
	}

	logger, err := cfg.Logger()
	if err != nil {
		return nil, err
	}

	km, err := veclust.New[string](
		feature.BagOfWords{Lowercase: cfg.Lowercase},
		cfg.Clusters,
		cfg.Options(logger.WithK(cfg.Clusters))...,
	)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed))

	res, err := km.Cluster(ctx, lines, rng)
	if err != nil {
		return nil, err
	}

	out := &clusterOutput{
		RunID:     res.RunID,
		Reason:    res.Reason.String(),
		Epochs:    res.Epochs,
		AvgSqDist: res.AvgSqDist,
		Clusters:  make([]clusterRecord, len(res.Clusters)),
	}
	for i, c := range res.Clusters {
		rec := clusterRecord{Score: c.Score, Members: make([]memberRecord, len(c.Members))}
		for j, m := range c.Members {
			rec.Members[j] = memberRecord{Text: m.Element, Score: m.Score}
		}
		out.Clusters[i] = rec
	}

	if save != "" {
		store, err := cfg.OpenStore(ctx)
		if err != nil {
			return nil, err
		}
		opts, err := cfg.SaveOptions()
		if err != nil {
			return nil, err
		}
		if err := model.Save(ctx, store, save, res.Model(), opts...); err != nil {
			return nil, err
		}
		logger.Info("model saved", "name", save, "run_id", res.RunID, "clusters", res.Len())
		out.Model = save
	}

	return out, nil
}
