package services

import (
	"math/rand/v2"
	"regexp"
	"strings"

	"catalog-relay/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultMaxAttempts = 100

// plainExt is the only extension shape accepted from the catalog; the extension
// ends up in temp file names and object keys.
var plainExt = regexp.MustCompile(`^\.[A-Za-z0-9]{1,8}$`)

var selectionAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "relay_selection_attempts",
	Help:    "Number of random draws needed to select eligible media.",
	Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34, 55, 100},
})

// Selector picks a random thread entry with an analyzable media attachment.
type Selector struct {
	maxPages    int
	maxThreads  int
	maxAttempts int
	disallowed  map[string]struct{}
	intn        func(n int) int
}

type SelectorOption func(*Selector)

// WithRandom replaces the source of random indexes. intn must return a value in [0, n).
func WithRandom(intn func(n int) int) SelectorOption {
	return func(s *Selector) { s.intn = intn }
}

func WithMaxAttempts(n int) SelectorOption {
	return func(s *Selector) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithDisallowedExts sets the media extensions that are never selected. An empty
// list keeps the default set.
func WithDisallowedExts(exts []string) SelectorOption {
	return func(s *Selector) {
		if len(exts) > 0 {
			s.disallowed = extSet(exts)
		}
	}
}

// NewSelector draws page indexes below maxPages and thread indexes below
// maxThreads, both further clamped to the catalog being searched.
func NewSelector(maxPages, maxThreads int, opts ...SelectorOption) *Selector {
	s := &Selector{
		maxPages:    max(maxPages, 0),
		maxThreads:  max(maxThreads, 0),
		maxAttempts: defaultMaxAttempts,
		disallowed:  extSet(domain.DefaultDisallowedExts),
		intn:        rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select draws entries until one carries eligible media. It fails immediately with
// domain.ErrNoEligibleMedia when nothing inside the bounds is eligible, and with a
// *domain.ExhaustedError when maxAttempts draws were all rejected.
func (s *Selector) Select(pages []domain.CatalogPage) (domain.Selection, error) {
	pageBound := min(s.maxPages, len(pages))
	if !s.anyEligible(pages[:pageBound]) {
		return domain.Selection{}, domain.ErrNoEligibleMedia
	}

	selection, attempts, err := drawUntil(s.maxAttempts, func() (domain.Selection, bool) {
		pageIndex := s.intn(pageBound)
		threads := pages[pageIndex].Threads
		threadBound := min(s.maxThreads, len(threads))
		if threadBound <= 0 {
			return domain.Selection{}, false
		}
		threadIndex := s.intn(threadBound)
		entry := threads[threadIndex]
		if !s.Eligible(entry) {
			return domain.Selection{}, false
		}
		return domain.Selection{
			PageIndex:   pageIndex,
			ThreadIndex: threadIndex,
			Entry:       entry,
			MediaName:   entry.MediaName(),
		}, true
	})
	selectionAttempts.Observe(float64(attempts))
	if err != nil {
		return domain.Selection{}, err
	}
	selection.Attempts = attempts
	return selection, nil
}

// Eligible reports whether entry has media of an allowed type.
func (s *Selector) Eligible(entry domain.ThreadEntry) bool {
	if !entry.HasMedia() || !plainExt.MatchString(entry.Ext) {
		return false
	}
	_, blocked := s.disallowed[normalizeExt(entry.Ext)]
	return !blocked
}

func (s *Selector) anyEligible(pages []domain.CatalogPage) bool {
	for _, page := range pages {
		threads := page.Threads[:min(s.maxThreads, len(page.Threads))]
		for _, entry := range threads {
			if s.Eligible(entry) {
				return true
			}
		}
	}
	return false
}

// drawUntil calls draw until it reports success or maxAttempts calls have been
// made. It returns the accepted value and the number of calls.
func drawUntil[T any](maxAttempts int, draw func() (T, bool)) (T, int, error) {
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if value, ok := draw(); ok {
			return value, attempt, nil
		}
	}
	var zero T
	return zero, maxAttempts, &domain.ExhaustedError{Attempts: maxAttempts}
}

func extSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		set[normalizeExt(ext)] = struct{}{}
	}
	return set
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
