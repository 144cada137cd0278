package input_test

import (
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/harvest"
	"github.com/fwojciec/harvest/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadThemes(t *testing.T) {
	t.Parallel()

	t.Run("returns selected themes with keywords", func(t *testing.T) {
		t.Parallel()

		csv := "Process_ID,OSMOSE key words full,Selected\n" +
			"T1,refund  chargeback,Y\n" +
			"T2,ignored,N\n" +
			"T3,“late+delivery”,y\n" +
			"T4,,Y\n"

		themes, err := input.ReadThemes(strings.NewReader(csv))

		require.NoError(t, err)
		assert.Equal(t, []input.Theme{
			{ID: "T1", Keywords: []string{"refund", "chargeback"}},
			{ID: "T3", Keywords: []string{"late+delivery"}},
		}, themes)
	})

	t.Run("requires theme columns", func(t *testing.T) {
		t.Parallel()

		_, err := input.ReadThemes(strings.NewReader("Process_ID,Selected\nT1,Y\n"))

		assert.Equal(t, harvest.EINVALID, harvest.ErrorCode(err))
	})
}

func TestSearchDescriptors(t *testing.T) {
	t.Parallel()

	opts := input.SearchOptions{
		BaseURL: base,
		Mission: "M1",
		Start:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:     time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
	}

	t.Run("expands the full grid", func(t *testing.T) {
		t.Parallel()

		descs, err := input.SearchDescriptors(input.Theme{ID: "T1", Keywords: []string{"refund", "late+delivery"}}, opts)

		require.NoError(t, err)
		// 2 keywords x 3 directions x 2 attachment x 2 automated x 2 weeks
		assert.Len(t, descs, 48)

		keys := make(map[string]bool)
		for _, d := range descs {
			keys[d.Key] = true
		}
		assert.Len(t, keys, 48)
	})

	t.Run("builds the search url", func(t *testing.T) {
		t.Parallel()

		descs, err := input.SearchDescriptors(input.Theme{ID: "T1", Keywords: []string{"late+delivery"}}, opts)

		require.NoError(t, err)
		d := descs[0]
		assert.Equal(t, base+"api/M1/search?n=10000&sort=rel-desc&ext=i&entitype=Voice&q=late+delivery"+
			"&isAttachment=true&isAutomatedMail=true&daysSince1970=19723,19729", d.URL)
		assert.Equal(t, map[string]string{
			input.MetaTheme:       "T1",
			input.MetaKeyword:     "late+delivery",
			input.MetaDirection:   "i",
			input.MetaAttachment:  "true",
			input.MetaAutomated:   "true",
			input.MetaWindowStart: "2024-01-01",
			input.MetaWindowEnd:   "2024-01-07",
		}, d.Meta)

		assert.Contains(t, descs[1].URL, "daysSince1970=19730,19736")
	})

	t.Run("escapes keywords", func(t *testing.T) {
		t.Parallel()

		descs, err := input.SearchDescriptors(input.Theme{ID: "T1", Keywords: []string{"a&b+c"}}, opts)

		require.NoError(t, err)
		assert.Contains(t, descs[0].URL, "&q=a%26b+c&")
	})

	t.Run("rejects an empty date range", func(t *testing.T) {
		t.Parallel()

		bad := opts
		bad.End = bad.Start

		_, err := input.SearchDescriptors(input.Theme{ID: "T1", Keywords: []string{"x"}}, bad)

		assert.Equal(t, harvest.EINVALID, harvest.ErrorCode(err))
	})
}
