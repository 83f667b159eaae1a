package product_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/purchasekit/pkg/product"
)

func TestTimestampUnmarshal(t *testing.T) {
	t.Parallel()

	t.Run("epoch millis number", func(t *testing.T) {
		t.Parallel()
		var ts product.Timestamp
		require.NoError(t, json.Unmarshal([]byte(`1735689600000`), &ts))
		assert.Equal(t, int64(1735689600000), ts.Millis())
	})

	t.Run("quoted millis", func(t *testing.T) {
		t.Parallel()
		var ts product.Timestamp
		require.NoError(t, json.Unmarshal([]byte(`"1735689600000"`), &ts))
		assert.Equal(t, int64(1735689600000), ts.Millis())
	})

	t.Run("rfc3339 string", func(t *testing.T) {
		t.Parallel()
		var ts product.Timestamp
		require.NoError(t, json.Unmarshal([]byte(`"2025-01-01T00:00:00Z"`), &ts))
		assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), ts.Time.UTC())
	})

	t.Run("date only string", func(t *testing.T) {
		t.Parallel()
		var ts product.Timestamp
		require.NoError(t, json.Unmarshal([]byte(`"2025-06-15"`), &ts))
		assert.Equal(t, 2025, ts.Year())
		assert.Equal(t, time.June, ts.Month())
	})

	t.Run("null and zero are zero values", func(t *testing.T) {
		t.Parallel()
		for _, raw := range []string{`null`, `0`, `""`} {
			var ts product.Timestamp
			require.NoError(t, json.Unmarshal([]byte(raw), &ts), raw)
			assert.True(t, ts.IsZero(), raw)
		}
	})

	t.Run("garbage fails with deserialize error", func(t *testing.T) {
		t.Parallel()
		var ts product.Timestamp
		err := json.Unmarshal([]byte(`"not a date"`), &ts)
		require.Error(t, err)
	})
}

func TestTimestampRoundTrip(t *testing.T) {
	t.Parallel()

	orig := product.FromMillis(1735689600000)
	data, err := json.Marshal(orig)
	require.NoError(t, err)
	assert.Equal(t, `1735689600000`, string(data))

	var back product.Timestamp
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, orig.Equal(back.Time))
}
