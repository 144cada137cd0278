package harvest_test

import (
	"testing"

	"github.com/fwojciec/harvest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_Records(t *testing.T) {
	t.Parallel()

	t.Run("single record merges metadata and fields", func(t *testing.T) {
		t.Parallel()

		r := &harvest.Result{
			Meta:   map[string]string{"DATE": "2024-01-01"},
			Fields: map[string]string{"Content": "hello"},
		}

		recs := r.Records()

		require.Len(t, recs, 1)
		assert.Equal(t, map[string]string{"DATE": "2024-01-01", "Content": "hello"}, recs[0])
	})

	t.Run("one record per row", func(t *testing.T) {
		t.Parallel()

		r := &harvest.Result{
			Meta: map[string]string{"Process_ID": "P1"},
			Rows: []map[string]string{{"msgId": "1"}, {"msgId": "2"}},
		}

		recs := r.Records()

		require.Len(t, recs, 2)
		assert.Equal(t, "P1", recs[0]["Process_ID"])
		assert.Equal(t, "1", recs[0]["msgId"])
		assert.Equal(t, "2", recs[1]["msgId"])
	})
}

func TestColumns(t *testing.T) {
	t.Parallel()

	results := []*harvest.Result{
		{Meta: map[string]string{"b": "1"}, Fields: map[string]string{"c": "2"}},
		{Rows: []map[string]string{{"a": "3"}}},
	}

	assert.Equal(t, []string{"a", "b", "c"}, harvest.Columns(results))
}

func TestWritePolicy_Validate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, harvest.WriteDiscard.Validate())
	assert.NoError(t, harvest.WriteRetry.Validate())
	assert.NoError(t, harvest.WriteFail.Validate())
	assert.Error(t, harvest.WritePolicy("").Validate())
}
