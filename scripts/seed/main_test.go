package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBundledFixtureIsValid(t *testing.T) {
	f, err := loadFixture("seed.yml")
	require.NoError(t, err)
	require.Equal(t, int64(1), f.OrganizationID)
	require.NotEmpty(t, f.GoodsModels)
	require.Len(t, f.Warehouses, 2)
	require.Equal(t, "ALLOWED_LIST", restriction(f.Warehouses[0].Locations[3].Restriction))
}

func TestFixtureValidation(t *testing.T) {
	cases := map[string]string{
		"missing org": `goods_models: []`,
		"duplicate model": `organization_id: 1
goods_models:
  - {code: bolt, name: a}
  - {code: " BOLT ", name: b}`,
		"unknown type": `organization_id: 1
goods_models:
  - {code: bolt, name: a, goods_type: nope}`,
		"bad tracking": `organization_id: 1
goods_models:
  - {code: bolt, name: a, tracking_type: batch}`,
		"unknown restricted model": `organization_id: 1
warehouses:
  - code: wh
    locations:
      - {code: a, restriction: ALLOWED_LIST, models: [ghost]}`,
		"models without restriction": `organization_id: 1
goods_models:
  - {code: bolt, name: a}
warehouses:
  - code: wh
    locations:
      - {code: a, models: [bolt]}`,
	}
	dir := t.TempDir()
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "fixture.yml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			_, err := loadFixture(path)
			require.Error(t, err)
		})
	}
}

func TestDefaults(t *testing.T) {
	require.Equal(t, "NONE", trackingType(" "))
	require.Equal(t, "SERIAL", trackingType("serial"))
	require.Equal(t, "NONE", restriction(""))
}
