package stamps

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/stampd/internal/errs"
	"github.com/HerbHall/stampd/internal/query"
	"github.com/HerbHall/stampd/internal/testutil"
)

func TestLoadSeed(t *testing.T) {
	doc := `
stamps:
  - hash: ` + testutil.Hash("a") + `
    type: sha256
  - hash: ` + testutil.Hash("b") + `
`
	seed, err := LoadSeed(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, seed.Stamps, 2)
	assert.Equal(t, TypeSHA256, seed.Stamps[1].Type, "type defaults to sha256")
}

func TestLoadSeed_Empty(t *testing.T) {
	seed, err := LoadSeed(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, seed.Stamps)
}

func TestLoadSeed_Rejects(t *testing.T) {
	tests := map[string]string{
		"missing hash":  "stamps:\n  - type: sha256\n",
		"bad type":      "stamps:\n  - hash: abc\n    type: md5\n",
		"unknown field": "stamps:\n  - hash: abc\n    colour: red\n",
		"not yaml":      "stamps: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadSeed(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}

	_, err := LoadSeed(strings.NewReader("stamps:\n  - hash: ''\n"))
	assert.True(t, errs.IsInvalid(err))
}

func TestSeed_Apply(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	seed := Seed{Stamps: []SeedStamp{
		{Hash: testutil.Hash("a"), Type: TypeSHA256},
		{Hash: testutil.Hash("b"), Type: TypeSHA256},
	}}

	created, err := seed.Apply(ctx, repo)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, testutil.Hash("b"), created[1].Hash)

	page, err := repo.List(ctx, query.New())
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestSeed_ApplyIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	seed := Seed{Stamps: []SeedStamp{
		{Hash: testutil.Hash("a"), Type: TypeSHA256},
		{Hash: testutil.Hash("b"), Type: TypeSHA256},
		{Hash: testutil.Hash("c"), Type: "md5"},
	}}

	created, err := seed.Apply(ctx, repo)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed entry 2")
	assert.True(t, errs.IsInvalid(err))
	assert.Nil(t, created)

	page, err := repo.List(ctx, query.New())
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)

	// The repository stays usable after the rollback.
	_, err = repo.CreateStamp(ctx, testutil.Hash("after"), TypeSHA256)
	require.NoError(t, err)
}
