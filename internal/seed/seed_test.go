package seed

import (
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/shelf-allocator/backend/internal/domain"
)

type recorder struct {
	catalogs []*domain.Catalog
	err      error
}

func (r *recorder) ReplaceCatalog(c *domain.Catalog) error {
	if r.err != nil {
		return r.err
	}
	r.catalogs = append(r.catalogs, c)
	return nil
}

func TestFromFiles(t *testing.T) {
	dir := t.TempDir()
	shelves := filepath.Join(dir, "shelves.csv")
	products := filepath.Join(dir, "products.csv")

	require.NoError(t, os.WriteFile(shelves, []byte(
		"ShelfID,Name,Capacity,Type,Secured,Visibility\nS1,Front,50,accessible,true,high\n"), 0o644))
	require.NoError(t, os.WriteFile(products, []byte(
		"ProductID,Name,Weight,Category,HighDemand,Perishable,Bulky,Hazardous,Refrigerated,Promotional,Expensive\n"+
			"P1,Milk,2,dairy,true,true,false,false,true,false,false\n"), 0o644))

	r := &recorder{}
	c, err := FromFiles(r, shelves, products)
	require.NoError(t, err)
	require.Len(t, r.catalogs, 1)
	assert.Same(t, c, r.catalogs[0])
	assert.Equal(t, 1, c.ProductCount())

	_, err = FromFiles(r, filepath.Join(dir, "missing.csv"), products)
	assert.Error(t, err)
	assert.Len(t, r.catalogs, 1)
}

func TestRandom(t *testing.T) {
	r := &recorder{}
	c, err := Random(r, rand.New(rand.NewSource(3)), 4, 12)
	require.NoError(t, err)
	assert.Equal(t, 4, c.ShelfCount())
	assert.Equal(t, 12, c.ProductCount())

	r.err = errors.New("db down")
	_, err = Random(r, rand.New(rand.NewSource(3)), 4, 12)
	assert.ErrorIs(t, err, r.err)
}
