package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedSeed(t *testing.T) {
	t.Parallel()

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8, c.Len())

	apples, ok := c.Get("1")
	require.True(t, ok)
	assert.Equal(t, "Fresh Apples", apples.Name)
	assert.True(t, apples.Price.Equal(decimal.NewFromInt(129)))
	require.NotNil(t, apples.OriginalPrice)
	assert.True(t, apples.OriginalPrice.Equal(decimal.NewFromInt(149)))

	tissue, ok := c.Get("6")
	require.True(t, ok)
	assert.False(t, tissue.InStock)

	_, ok = c.Get("999")
	assert.False(t, ok)
}

func TestListFiltersByCategory(t *testing.T) {
	t.Parallel()

	c, err := Load("")
	require.NoError(t, err)

	dairy := c.List("dairy & eggs")
	require.Len(t, dairy, 2)
	assert.Equal(t, "2", dairy[0].ID)
	assert.Equal(t, "8", dairy[1].ID)

	assert.Len(t, c.List(""), 8)
	assert.Empty(t, c.List("Hardware"))
	assert.Equal(t, "Fruits & Veggies", c.Categories()[0])
}

func TestListReturnsCopy(t *testing.T) {
	t.Parallel()

	c, err := Load("")
	require.NoError(t, err)
	list := c.List("")
	list[0].Name = "changed"

	p, _ := c.Get("1")
	assert.Equal(t, "Fresh Apples", p.Name)
}

func TestLoadFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"a","name":"A","price":10,"inStock":true}]`), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	p, ok := c.Get("a")
	require.True(t, ok)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(10)))

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestParseValidation(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"malformed":      `{`,
		"missing id":     `[{"name":"A","price":"1"}]`,
		"duplicate id":   `[{"id":"a","name":"A","price":"1"},{"id":"a","name":"B","price":"1"}]`,
		"missing name":   `[{"id":"a","price":"1"}]`,
		"negative price": `[{"id":"a","name":"A","price":"-1"}]`,
		"original below": `[{"id":"a","name":"A","price":"10","originalPrice":"5"}]`,
	}
	for name, raw := range cases {
		_, err := Parse([]byte(raw))
		assert.Error(t, err, name)
	}
}
