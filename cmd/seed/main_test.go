package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vfg2006/pos-sync-engine/internal/domain"
	"github.com/vfg2006/pos-sync-engine/internal/snapshot"
)

func TestLoadFixture_Embutida(t *testing.T) {
	f, err := loadFixture([]string{"seed"})
	require.NoError(t, err)

	batches := f.batches()
	require.Len(t, batches, 3)

	orders := batches[domain.CollectionOrders]
	require.Len(t, orders, 4)
	assert.Equal(t, "O1", orders[0].ID)

	// A carga embutida precisa passar pelos mesmos decodificadores do motor
	for _, delta := range batches[domain.CollectionProducts] {
		_, err := snapshot.DecodeProduct(delta.ID, delta.Document)
		assert.NoError(t, err, delta.ID)
	}
	for _, delta := range orders {
		_, err := snapshot.DecodeOrder(delta.ID, delta.Document)
		assert.NoError(t, err, delta.ID)
	}
}

func TestLoadFixture_ArquivoIgnoraColecaoDesconhecida(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carga.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"tables":{"T9":{"number":9,"status":"available"}},"customers":{"C1":{}}}`), 0o600))

	f, err := loadFixture([]string{"seed", path})
	require.NoError(t, err)

	batches := f.batches()
	require.Len(t, batches, 1)
	assert.Equal(t, "T9", batches[domain.CollectionTables][0].ID)
}
