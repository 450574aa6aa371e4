package period

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildWindow(t *testing.T) {
	w := BuildWindow(3, 2024)
	require.Len(t, w, 13)
	assert.Equal(t, Period{Month: 3, Year: 2023}, w[0])
	assert.Equal(t, Period{Month: 3, Year: 2024}, w[12])

	for i := 1; i < len(w); i++ {
		assert.True(t, w[i-1].Before(w[i]), "window not chronological at %d", i)
		assert.Equal(t, w[i-1].Next(), w[i], "gap in window at %d", i)
	}
}

func TestBuildWindow_YearRollover(t *testing.T) {
	w := BuildWindow(1, 2025)
	require.Len(t, w, 13)
	assert.Equal(t, New(1, 2024), w[0])
	assert.Equal(t, New(12, 2024), w[11])
	assert.Equal(t, New(1, 2025), w[12])
}

func TestBuildWindow_AllMonths(t *testing.T) {
	for m := 1; m <= 12; m++ {
		w := BuildWindow(m, 2024)
		require.Len(t, w, 13)
		assert.Equal(t, New(m, 2023), w[0])
		assert.Equal(t, New(m, 2024), w[len(w)-1])
	}
}

func TestBuildWindow_Restartable(t *testing.T) {
	assert.Equal(t, BuildWindow(7, 2024), BuildWindow(7, 2024))
}

func TestWindow_Length(t *testing.T) {
	w := Window(3, 2024, 3)
	assert.Equal(t, []Period{New(1, 2024), New(2, 2024), New(3, 2024)}, w)

	assert.Equal(t, []Period{New(3, 2024)}, Window(3, 2024, 1))
	assert.Empty(t, Window(3, 2024, 0))
	assert.Empty(t, Window(3, 2024, -4))
}

func TestTrailing(t *testing.T) {
	w := BuildWindow(3, 2024)
	tr := Trailing(w)
	require.Len(t, tr, 12)
	assert.Equal(t, New(4, 2023), tr[0])
	assert.Equal(t, New(3, 2024), tr[11])

	assert.Empty(t, Trailing(w[:1]))
	assert.Empty(t, Trailing(nil))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, []string{"11-2023", "12-2023", "01-2024"}, Keys(Window(1, 2024, 3)))
}

func TestWindow_BeforeYearOne(t *testing.T) {
	w := Window(1, 1, 25)
	require.Len(t, w, 25)
	assert.Equal(t, New(1, -1), w[0])
	assert.Equal(t, New(1, 1), w[24])
	for i, p := range w {
		assert.True(t, p.Month >= 1 && p.Month <= 12, "month of %d out of range: %d", i, p.Month)
		if i > 0 {
			assert.True(t, w[i-1].Before(p), "window not ordered at %d", i)
		}
	}
}
