package config_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/purchasekit/pkg/config"
	"github.com/dmitrymomot/purchasekit/pkg/product"
)

const sampleManifest = `
products:
  - id: premium.weekly
    kind: subs
    period: P1W
  - id: premium.monthly
    kind: subscription
    period: P1M
  - id: gems.gem10
    kind: consumable
    gems: 10
  - id: unlock.pro
`

func TestLoadManifest(t *testing.T) {
	t.Parallel()

	m, err := config.LoadManifest(strings.NewReader(sampleManifest))
	require.NoError(t, err)
	require.Len(t, m.Products, 4)

	assert.Equal(t, []string{"premium.weekly", "premium.monthly", "gems.gem10", "unlock.pro"}, m.IDs())
	assert.Equal(t, map[string]int64{"gems.gem10": 10}, m.GemAmounts())
	assert.Equal(t, []string{"unlock.pro"}, m.PremiumIDs())

	assert.Equal(t, product.KindSubscription, m.KindOf("premium.weekly"))
	assert.Equal(t, product.KindSubscription, m.KindOf("premium.monthly"))
	assert.Equal(t, product.KindConsumable, m.KindOf("gems.gem10"))
	assert.Equal(t, product.KindNonConsumable, m.KindOf("unlock.pro"))
	assert.Equal(t, product.KindNonConsumable, m.KindOf("unknown.id"))
}

func TestLoadManifestInvalid(t *testing.T) {
	t.Parallel()

	t.Run("broken yaml", func(t *testing.T) {
		t.Parallel()
		_, err := config.LoadManifest(strings.NewReader("products: ["))
		require.ErrorIs(t, err, config.ErrManifestInvalid)
	})

	t.Run("no products", func(t *testing.T) {
		t.Parallel()
		_, err := config.LoadManifest(strings.NewReader("products: []"))
		require.ErrorIs(t, err, config.ErrManifestEmpty)
	})

	t.Run("product without id", func(t *testing.T) {
		t.Parallel()
		_, err := config.LoadManifest(strings.NewReader("products:\n  - kind: subs\n"))
		require.ErrorIs(t, err, config.ErrManifestInvalid)
	})
}

func TestLoadManifestFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadManifestFile("testdata/does-not-exist.yml")
	require.Error(t, err)
}
