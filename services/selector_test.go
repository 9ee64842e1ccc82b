package services

import (
	"errors"
	"testing"

	"catalog-relay/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequence returns the given indexes in order, then keeps repeating the last one.
// Each value is reduced modulo n so it always stays in range.
func sequence(values ...int) func(int) int {
	i := 0
	return func(n int) int {
		v := values[min(i, len(values)-1)]
		i++
		return v % n
	}
}

func entry(tim int64, ext string) domain.ThreadEntry {
	return domain.ThreadEntry{No: tim, Tim: tim, Ext: ext}
}

func TestSelector_SelectsEligibleEntry(t *testing.T) {
	pages := []domain.CatalogPage{
		{Page: 1, Threads: []domain.ThreadEntry{entry(10, ".gif"), entry(11, ".jpg")}},
	}
	selector := NewSelector(9, 14, WithRandom(sequence(0, 1)))

	selection, err := selector.Select(pages)

	require.NoError(t, err)
	assert.Equal(t, 0, selection.PageIndex)
	assert.Equal(t, 1, selection.ThreadIndex)
	assert.Equal(t, "11.jpg", selection.MediaName)
	assert.Equal(t, 1, selection.Attempts)
}

func TestSelector_RetriesDisallowedEntries(t *testing.T) {
	pages := []domain.CatalogPage{
		{Page: 1, Threads: []domain.ThreadEntry{entry(10, ".gif"), entry(11, ".webm"), {No: 12}, entry(13, ".png")}},
	}
	// page 0 thread 0 (gif), page 0 thread 1 (webm), page 0 thread 2 (no media), page 0 thread 3
	selector := NewSelector(9, 14, WithRandom(sequence(0, 0, 0, 1, 0, 2, 0, 3)))

	selection, err := selector.Select(pages)

	require.NoError(t, err)
	assert.Equal(t, "13.png", selection.MediaName)
	assert.Equal(t, 4, selection.Attempts)
}

func TestSelector_DisallowedMatchingIgnoresCaseAndDot(t *testing.T) {
	selector := NewSelector(1, 1, WithDisallowedExts([]string{"GIF", ".WebM"}))

	assert.False(t, selector.Eligible(entry(1, ".gif")))
	assert.False(t, selector.Eligible(entry(1, ".GIF")))
	assert.False(t, selector.Eligible(entry(1, ".webm")))
	assert.True(t, selector.Eligible(entry(1, ".jpg")))
	assert.False(t, selector.Eligible(domain.ThreadEntry{No: 1, Ext: ".jpg"}))
}

func TestSelector_RejectsExtensionsThatAreNotPlain(t *testing.T) {
	selector := NewSelector(1, 1)

	assert.False(t, selector.Eligible(entry(1, "/../../escape.jpg")))
	assert.False(t, selector.Eligible(entry(1, ".jpg/../../x")))
	assert.False(t, selector.Eligible(entry(1, `.\x.jpg`)))
	assert.False(t, selector.Eligible(entry(1, "jpg")))
	assert.False(t, selector.Eligible(entry(1, ".toolongext")))
	assert.True(t, selector.Eligible(entry(1, ".JPEG")))
}

func TestSelector_TraversalExtensionNeverSelected(t *testing.T) {
	pages := []domain.CatalogPage{
		{Page: 1, Threads: []domain.ThreadEntry{entry(1, "/../../escape.jpg"), entry(2, ".png")}},
	}
	selector := NewSelector(9, 14, WithRandom(sequence(0, 0, 0, 1)))

	selection, err := selector.Select(pages)

	require.NoError(t, err)
	assert.Equal(t, "2.png", selection.MediaName)
	assert.Equal(t, 2, selection.Attempts)

	_, err = selector.Select(pages[:0])
	assert.ErrorIs(t, err, domain.ErrNoEligibleMedia)
	_, err = selector.Select([]domain.CatalogPage{{Page: 1, Threads: []domain.ThreadEntry{entry(1, "/../x.jpg")}}})
	assert.ErrorIs(t, err, domain.ErrNoEligibleMedia)
}

func TestSelector_EmptyDisallowedKeepsDefault(t *testing.T) {
	selector := NewSelector(1, 1, WithDisallowedExts(nil))

	assert.False(t, selector.Eligible(entry(1, ".gif")))
	assert.False(t, selector.Eligible(entry(1, ".webm")))
}

func TestSelector_NoEligibleMedia(t *testing.T) {
	pages := []domain.CatalogPage{
		{Page: 1, Threads: []domain.ThreadEntry{entry(10, ".gif"), entry(11, ".webm")}},
		{Page: 2, Threads: nil},
	}
	calls := 0
	selector := NewSelector(9, 14, WithRandom(func(n int) int { calls++; return 0 }))

	_, err := selector.Select(pages)

	assert.ErrorIs(t, err, domain.ErrNoEligibleMedia)
	assert.Equal(t, 0, calls)
}

func TestSelector_EmptyCatalog(t *testing.T) {
	selector := NewSelector(9, 14)

	_, err := selector.Select(nil)

	assert.ErrorIs(t, err, domain.ErrNoEligibleMedia)
}

func TestSelector_EligibleOutsideBoundsIgnored(t *testing.T) {
	pages := []domain.CatalogPage{
		{Page: 1, Threads: []domain.ThreadEntry{entry(10, ".gif"), entry(11, ".jpg")}},
	}
	selector := NewSelector(9, 1)

	_, err := selector.Select(pages)

	assert.ErrorIs(t, err, domain.ErrNoEligibleMedia)
}

func TestSelector_BoundsClampedToCatalog(t *testing.T) {
	pages := []domain.CatalogPage{
		{Page: 1, Threads: []domain.ThreadEntry{entry(10, ".jpg")}},
	}
	var bounds []int
	selector := NewSelector(9, 14, WithRandom(func(n int) int {
		bounds = append(bounds, n)
		return n - 1
	}))

	selection, err := selector.Select(pages)

	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, bounds)
	assert.Equal(t, "10.jpg", selection.MediaName)
}

func TestSelector_EmptyPageIsRejectedDraw(t *testing.T) {
	pages := []domain.CatalogPage{
		{Page: 1},
		{Page: 2, Threads: []domain.ThreadEntry{entry(20, ".jpg")}},
	}
	selector := NewSelector(9, 14, WithRandom(sequence(0, 1, 0)))

	selection, err := selector.Select(pages)

	require.NoError(t, err)
	assert.Equal(t, 1, selection.PageIndex)
	assert.Equal(t, 2, selection.Attempts)
}

func TestSelector_Exhausted(t *testing.T) {
	pages := []domain.CatalogPage{
		{Page: 1, Threads: []domain.ThreadEntry{entry(10, ".gif"), entry(11, ".jpg")}},
	}
	selector := NewSelector(9, 14, WithMaxAttempts(5), WithRandom(func(n int) int { return 0 }))

	_, err := selector.Select(pages)

	var exhausted *domain.ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 5, exhausted.Attempts)
	assert.ErrorIs(t, err, domain.ErrSelectionExhausted)
	assert.NotErrorIs(t, err, domain.ErrNoEligibleMedia)
}

func TestSelector_DefaultRandomStaysInBounds(t *testing.T) {
	threads := make([]domain.ThreadEntry, 20)
	for i := range threads {
		threads[i] = entry(int64(i+1), ".jpg")
	}
	pages := []domain.CatalogPage{{Page: 1, Threads: threads}, {Page: 2, Threads: threads[:3]}}
	selector := NewSelector(9, 14)

	for i := 0; i < 200; i++ {
		selection, err := selector.Select(pages)
		require.NoError(t, err)
		assert.Less(t, selection.PageIndex, 2)
		assert.Less(t, selection.ThreadIndex, 14)
	}
}

func TestDrawUntil(t *testing.T) {
	calls := 0
	value, attempts, err := drawUntil(10, func() (string, bool) {
		calls++
		return "hit", calls == 3
	})

	require.NoError(t, err)
	assert.Equal(t, "hit", value)
	assert.Equal(t, 3, attempts)

	_, attempts, err = drawUntil(2, func() (string, bool) { return "", false })
	assert.Equal(t, 2, attempts)
	assert.ErrorIs(t, err, domain.ErrSelectionExhausted)
}
