// Package stress hammers a reviews.Store from many goroutines and checks
// that concurrent readers only ever see whole, growing review lists and that
// every write survives.
package stress

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"ReviewHub/internal/reviews"
)

var ErrViolations = errors.New("stress: invariant violations")

const (
	defaultWriters          = 8
	defaultReviewsPerWriter = 100
	defaultReaders          = 4
	defaultProducts         = 4

	maxReportedViolations = 100
)

type Config struct {
	Writers          int
	ReviewsPerWriter int
	Readers          int
	// Products is the number of product IDs, 0..Products-1, the writers
	// spread their reviews over.
	Products int
}

func (c Config) withDefaults() Config {
	if c.Writers <= 0 {
		c.Writers = defaultWriters
	}
	if c.ReviewsPerWriter <= 0 {
		c.ReviewsPerWriter = defaultReviewsPerWriter
	}
	if c.Readers < 0 {
		c.Readers = 0
	} else if c.Readers == 0 {
		c.Readers = defaultReaders
	}
	if c.Products <= 0 {
		c.Products = defaultProducts
	}
	return c
}

type Report struct {
	Writes     int           `json:"writes"`
	Reads      int64         `json:"reads"`
	Duration   time.Duration `json:"duration"`
	Violations []string      `json:"violations,omitempty"`
}

type write struct {
	product int
	text    string
}

type recorder struct {
	mu         sync.Mutex
	violations []string
	dropped    int
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.violations) >= maxReportedViolations {
		r.dropped++
		return
	}
	r.violations = append(r.violations, fmt.Sprintf(format, args...))
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := slices.Clone(r.violations)
	if r.dropped > 0 {
		out = append(out, fmt.Sprintf("%d more violations not shown", r.dropped))
	}
	return out
}

// Run drives store with cfg.Writers appending goroutines and cfg.Readers
// reading goroutines. Readers stop once every writer is done; the store is
// then checked to hold exactly what was there before plus every completed
// write. Products must not be removed by anyone else while Run is active.
//
// A cancelled ctx stops the workload early; Run still verifies the writes
// that completed and returns ctx.Err().
func Run(ctx context.Context, store reviews.Store, cfg Config, log *zap.Logger) (Report, error) {
	cfg = cfg.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}

	baseline := make(map[int][]string, cfg.Products)
	for id := 0; id < cfg.Products; id++ {
		baseline[id] = store.AllReviews(id)
	}

	rec := &recorder{}
	var reads atomic.Int64

	log.Info("stress run starting",
		zap.Int("writers", cfg.Writers),
		zap.Int("reviews_per_writer", cfg.ReviewsPerWriter),
		zap.Int("readers", cfg.Readers),
		zap.Int("products", cfg.Products),
	)
	start := time.Now()

	readCtx, stopReaders := context.WithCancel(ctx)
	defer stopReaders()

	readers := pool.New().WithContext(readCtx)
	for i := 0; i < cfg.Readers; i++ {
		readers.Go(func(ctx context.Context) error {
			read(ctx, store, cfg.Products, i, rec, &reads)
			return nil
		})
	}

	written := make([][]write, cfg.Writers)
	writers := pool.New().WithContext(ctx)
	for w := 0; w < cfg.Writers; w++ {
		writers.Go(func(ctx context.Context) error {
			written[w] = writeReviews(ctx, store, cfg, w)
			return ctx.Err()
		})
	}

	werr := writers.Wait()
	stopReaders()
	_ = readers.Wait()

	all := slices.Concat(written...)
	verify(store, baseline, all, rec)

	rep := Report{
		Writes:     len(all),
		Reads:      reads.Load(),
		Duration:   time.Since(start),
		Violations: rec.list(),
	}

	log.Info("stress run finished",
		zap.Int("writes", rep.Writes),
		zap.Int64("reads", rep.Reads),
		zap.Duration("duration", rep.Duration),
		zap.Int("violations", len(rep.Violations)),
	)

	if err := ctx.Err(); err != nil {
		return rep, err
	}
	if werr != nil {
		return rep, werr
	}
	if len(rep.Violations) > 0 {
		return rep, fmt.Errorf("%w: %d found", ErrViolations, len(rep.Violations))
	}
	return rep, nil
}

func writeReviews(ctx context.Context, store reviews.Store, cfg Config, writer int) []write {
	out := make([]write, 0, cfg.ReviewsPerWriter)
	for i := 0; i < cfg.ReviewsPerWriter; i++ {
		if ctx.Err() != nil {
			break
		}

		w := write{
			product: (writer + i) % cfg.Products,
			text:    reviewText(writer),
		}
		store.AddReview(w.product, w.text)
		out = append(out, w)
	}
	return out
}

func read(ctx context.Context, store reviews.Store, products, reader int, rec *recorder, reads *atomic.Int64) {
	lastLen := make(map[int]int, products)
	lastReviewed := 0

	for n := reader; ctx.Err() == nil; n++ {
		id := n % products

		got := store.AllReviews(id)
		if len(got) < lastLen[id] {
			rec.add("reader %d: product %d shrank from %d to %d reviews", reader, id, lastLen[id], len(got))
		}
		lastLen[id] = len(got)
		if len(got) > 0 && !wellFormed(got[len(got)-1]) {
			rec.add("reader %d: product %d has malformed review %q", reader, id, got[len(got)-1])
		}

		if latest, ok := store.LatestReview(id); ok && !wellFormed(latest) {
			rec.add("reader %d: product %d latest review malformed %q", reader, id, latest)
		}

		reviewed := store.ProductsWithReviews()
		if len(reviewed) < lastReviewed {
			rec.add("reader %d: reviewed products shrank from %d to %d", reader, lastReviewed, len(reviewed))
		}
		lastReviewed = len(reviewed)

		reads.Add(3)
	}
}

func verify(store reviews.Store, baseline map[int][]string, all []write, rec *recorder) {
	want := make(map[int][]string, len(baseline))
	for _, w := range all {
		want[w.product] = append(want[w.product], w.text)
	}

	for id, base := range baseline {
		got := store.AllReviews(id)
		if len(got) != len(base)+len(want[id]) {
			rec.add("product %d: have %d reviews, want %d", id, len(got), len(base)+len(want[id]))
			continue
		}
		if !slices.Equal(got[:len(base)], base) {
			rec.add("product %d: pre-existing reviews changed", id)
		}

		added := slices.Clone(got[len(base):])
		slices.Sort(added)
		expected := slices.Clone(want[id])
		slices.Sort(expected)
		if !slices.Equal(added, expected) {
			rec.add("product %d: written reviews do not match", id)
		}
	}
}

func reviewText(writer int) string {
	return fmt.Sprintf("w%d:%s", writer, uuid.NewString())
}

// wellFormed rejects texts that carry a writer tag but a damaged payload.
// Reviews that were in the store before the run are not ours to judge.
func wellFormed(text string) bool {
	tag, id, ok := strings.Cut(text, ":")
	if !ok || !isWriterTag(tag) {
		return true
	}
	_, err := uuid.Parse(id)
	return err == nil
}

func isWriterTag(tag string) bool {
	digits, ok := strings.CutPrefix(tag, "w")
	if !ok || digits == "" {
		return false
	}
	_, err := strconv.Atoi(digits)
	return err == nil
}
