package community

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// Algorithm names a modularity optimiser.
type Algorithm string

const (
	Louvain Algorithm = "louvain"
	Leiden  Algorithm = "leiden"
)

const (
	// DefaultRuns is how many independently seeded runs are compared.
	DefaultRuns = 3
	// DefaultTheta is the refinement randomness of Leiden.
	DefaultTheta = 0.01
)

// ParseAlgorithm accepts "louvain" or "leiden" in any case.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(s))) {
	case Louvain:
		return Louvain, nil
	case Leiden, "":
		return Leiden, nil
	default:
		return "", fmt.Errorf("unknown community algorithm %q (must be louvain or leiden)", s)
	}
}

// Options configures a Detector.
type Options struct {
	Algorithm  Algorithm
	Resolution float64 // <= 0 selects AdaptiveResolution
	Runs       int
	Theta      float64
	Seed       int64
}

// Result is the best partition found.
type Result struct {
	Algorithm   Algorithm
	Partition   map[string]int // connected friends only
	Communities [][]string     // members per community id, ascending
	Modularity  float64
	Resolution  float64
	Run         int
	Seed        int64
}

// Community returns the community of id and whether id was partitioned.
func (r *Result) Community(id string) (int, bool) {
	c, ok := r.Partition[id]
	return c, ok
}

// Count returns the number of communities.
func (r *Result) Count() int {
	return len(r.Communities)
}

// Detector partitions graphs with repeated seeded runs.
type Detector struct {
	opts Options
	// NewRand builds the random source for one run. Tests may replace it.
	NewRand func(seed int64) Rand
	logger  *log.Logger
}

// NewDetector returns a Detector with defaults filled in.
func NewDetector(opts Options, logger *log.Logger) *Detector {
	if opts.Algorithm == "" {
		opts.Algorithm = Leiden
	}
	if opts.Runs <= 0 {
		opts.Runs = DefaultRuns
	}
	if opts.Theta <= 0 {
		opts.Theta = DefaultTheta
	}
	return &Detector{
		opts: opts,
		NewRand: func(seed int64) Rand {
			return rand.New(rand.NewSource(seed))
		},
		logger: logger,
	}
}

type runResult struct {
	part       []int
	modularity float64
}

// Detect partitions g. Runs use seeds Seed, Seed+1, ... and execute
// concurrently; the highest-modularity partition wins and ties go to the
// lowest run index, so completion order never matters. An empty graph yields
// an empty result.
func (d *Detector) Detect(ctx context.Context, g *Graph) (*Result, error) {
	gamma := d.opts.Resolution
	if gamma <= 0 {
		gamma = AdaptiveResolution(g)
	}

	res := &Result{
		Algorithm:  d.opts.Algorithm,
		Partition:  make(map[string]int),
		Resolution: gamma,
		Seed:       d.opts.Seed,
	}
	if g.Len() == 0 {
		return res, nil
	}

	runs := make([]runResult, d.opts.Runs)
	eg, ctx := errgroup.WithContext(ctx)
	for i := range runs {
		eg.Go(func() error {
			part, err := d.runOnce(ctx, g, gamma, d.opts.Seed+int64(i))
			if err != nil {
				return err
			}
			runs[i] = runResult{part: part, modularity: Modularity(g, part, gamma)}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("community detection: %w", err)
	}

	best := 0
	for i := 1; i < len(runs); i++ {
		if runs[i].modularity > runs[best].modularity {
			best = i
		}
	}
	for i, r := range runs {
		d.debug("community run finished", "run", i, "seed", d.opts.Seed+int64(i),
			"modularity", r.modularity, "communities", countCommunities(r.part))
	}

	part := runs[best].part
	res.Run = best
	res.Seed = d.opts.Seed + int64(best)
	res.Modularity = runs[best].modularity
	res.Communities = make([][]string, countCommunities(part))
	for i, id := range g.ids {
		c := part[i]
		res.Partition[id] = c
		res.Communities[c] = append(res.Communities[c], id)
	}
	for _, members := range res.Communities {
		sort.Strings(members)
	}
	return res, nil
}

// runOnce executes a single seeded run and returns a repaired, canonically
// numbered partition of g's nodes.
func (d *Detector) runOnce(ctx context.Context, g *Graph, gamma float64, seed int64) ([]int, error) {
	rng := d.NewRand(seed)

	var (
		part []int
		err  error
	)
	switch d.opts.Algorithm {
	case Louvain:
		part, err = louvain(ctx, g, gamma, rng)
	case Leiden:
		part, err = leiden(ctx, g, gamma, d.opts.Theta, rng)
	default:
		return nil, fmt.Errorf("unknown community algorithm %q", d.opts.Algorithm)
	}
	if err != nil {
		return nil, err
	}
	return repair(g, part), nil
}

func (d *Detector) debug(msg string, keyvals ...interface{}) {
	if d.logger != nil {
		d.logger.Debug(msg, keyvals...)
	}
}
