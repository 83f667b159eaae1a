package config

import (
	"errors"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/purchasekit/pkg/product"
)

var (
	ErrManifestInvalid = errors.New("config: invalid product manifest")
	ErrManifestEmpty   = errors.New("config: product manifest has no products")
)

// ManifestProduct declares one purchasable product.
type ManifestProduct struct {
	ID     string `yaml:"id"`
	Kind   string `yaml:"kind"`   // consumable, nonconsumable, subs
	Period string `yaml:"period"` // ISO 8601, subscriptions only
	Gems   int64  `yaml:"gems"`   // units granted, consumables only
}

// Manifest is the declared product catalog of a storefront.
type Manifest struct {
	Products []ManifestProduct `yaml:"products"`
}

// LoadManifest parses a YAML manifest from r.
func LoadManifest(r io.Reader) (Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&m); err != nil {
		return Manifest{}, errors.Join(ErrManifestInvalid, err)
	}
	if len(m.Products) == 0 {
		return Manifest{}, ErrManifestEmpty
	}
	for _, p := range m.Products {
		if p.ID == "" {
			return Manifest{}, ErrManifestInvalid
		}
	}
	return m, nil
}

// LoadManifestFile parses a YAML manifest from the given path.
func LoadManifestFile(path string) (Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Manifest{}, err
	}
	defer f.Close()
	return LoadManifest(f)
}

// IDs returns the declared product ids in manifest order.
func (m Manifest) IDs() []string {
	ids := make([]string, 0, len(m.Products))
	for _, p := range m.Products {
		ids = append(ids, p.ID)
	}
	return ids
}

// GemAmounts maps consumable product ids to the units they grant.
func (m Manifest) GemAmounts() map[string]int64 {
	amounts := make(map[string]int64)
	for _, p := range m.Products {
		if p.Gems > 0 {
			amounts[p.ID] = p.Gems
		}
	}
	return amounts
}

// PremiumIDs returns the products whose declared (or defaulted) kind is
// nonconsumable, the set whose ownership grants lifetime premium.
func (m Manifest) PremiumIDs() []string {
	var ids []string
	for _, p := range m.Products {
		if m.KindOf(p.ID) == product.KindNonConsumable {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// KindOf returns the declared kind for a product id, defaulting to
// nonconsumable when the manifest does not say.
func (m Manifest) KindOf(id string) product.Kind {
	for _, p := range m.Products {
		if p.ID == id {
			switch p.Kind {
			case "consumable":
				return product.KindConsumable
			case "subs", "subscription":
				return product.KindSubscription
			}
			break
		}
	}
	return product.KindNonConsumable
}
