package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const shelvesCSV = `ShelfID,Name,Capacity,Type,Secured,Visibility
S1,Fridge,50,refrigerated,false,low
S2,Front,50,accessible,true,high
`

const productsCSV = `ProductID,Name,Weight,Category,HighDemand,Perishable,Bulky,Hazardous,Refrigerated,Promotional,Expensive
P1,Milk,2,dairy,false,true,false,false,true,false,false
P2,Watch,1,luxury,true,false,false,false,false,false,true
`

func TestAllocateCommand(t *testing.T) {
	dir := t.TempDir()
	shelves := filepath.Join(dir, "shelves.csv")
	products := filepath.Join(dir, "products.csv")
	out := filepath.Join(dir, "out.xlsx")
	chart := filepath.Join(dir, "chart.html")

	require.NoError(t, os.WriteFile(shelves, []byte(shelvesCSV), 0o644))
	require.NoError(t, os.WriteFile(products, []byte(productsCSV), 0o644))

	var stdout bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{
		"--shelves", shelves,
		"--products", products,
		"--out", out,
		"--chart", chart,
		"--population", "10",
		"--generations", "30",
		"--seed", "42",
		"--affinity", "",
	})
	require.NoError(t, cmd.Execute())

	// 牛奶只能放冷藏货架，手表只能放有安保的货架，最优解惩罚为 0
	output := stdout.String()
	assert.Contains(t, output, "P1 (Milk) -> Shelf S1 (Fridge)")
	assert.Contains(t, output, "P2 (Watch) -> Shelf S2 (Front)")
	assert.Contains(t, output, "Best Fitness (Total Penalty): 0")
	assert.Contains(t, output, "Optimized shelf allocation saved to "+out)

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Allocation")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Assigned Shelf", rows[0][4])

	info, err := os.Stat(chart)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestAllocateCommandMissingFile(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--shelves", filepath.Join(t.TempDir(), "missing.csv")})
	assert.Error(t, cmd.Execute())
}
