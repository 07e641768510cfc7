package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jbweber/homelab/animes/internal/datastore"
	"github.com/jbweber/homelab/animes/internal/domain"
	"github.com/jbweber/homelab/animes/internal/repository"
	"github.com/jbweber/homelab/animes/internal/testutil"
)

func newTestService(t *testing.T, name string) (*AnimeService, *datastore.Datastore) {
	t.Helper()
	ds := testutil.NewTestDatastore(t, name)
	repo := repository.NewAnimeRepository(ds, zerolog.Nop())
	return NewAnimeService(repo, ds, zerolog.Nop()), ds
}

// failingCommit runs fn in a real transaction and then refuses to commit
type failingCommit struct {
	ds  *datastore.Datastore
	err error
}

func (f failingCommit) WithinTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return f.ds.WithinTx(ctx, func(tx *sql.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		return f.err
	})
}

func TestAnimeService_Create(t *testing.T) {
	svc, _ := newTestService(t, "TestAnimeService_Create")
	ctx := context.Background()

	for _, name := range []string{"Samurai Champloo", "X", "Fullmetal Alchemist: Brotherhood"} {
		created, err := svc.Create(ctx, domain.CreateAnimeRequest{Name: name})
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, name, created.Name)

		found, err := svc.FindByIDOrFail(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, found)
	}
}

func TestAnimeService_Create_InvalidName(t *testing.T) {
	svc, _ := newTestService(t, "TestAnimeService_Create_InvalidName")

	_, err := svc.Create(context.Background(), domain.CreateAnimeRequest{})
	assert.ErrorIs(t, err, ErrInvalidAnime)
}

func TestAnimeService_Create_RollsBack(t *testing.T) {
	ds := testutil.NewTestDatastore(t, "TestAnimeService_Create_RollsBack")
	repo := repository.NewAnimeRepository(ds, zerolog.Nop())
	boom := errors.New("commit refused")
	svc := NewAnimeService(repo, failingCommit{ds: ds, err: boom}, zerolog.Nop())

	_, err := svc.Create(context.Background(), domain.CreateAnimeRequest{Name: "Ghost"})
	require.ErrorIs(t, err, boom)

	all, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAnimeService_FindByIDOrFail_NotFound(t *testing.T) {
	svc, _ := newTestService(t, "TestAnimeService_FindByIDOrFail_NotFound")

	for _, id := range []int64{0, 1, 42, 999999} {
		_, err := svc.FindByIDOrFail(context.Background(), id)
		assert.ErrorIs(t, err, ErrAnimeNotFound)
		assert.NotErrorIs(t, err, repository.ErrNotFound)
	}

	_, err := svc.FindByIDOrFail(context.Background(), 42)
	assert.EqualError(t, err, "anime with ID 42: anime not found")
}

func TestAnimeService_FindByName(t *testing.T) {
	svc, _ := newTestService(t, "TestAnimeService_FindByName")
	ctx := context.Background()

	none, err := svc.FindByName(ctx, "dbz")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = svc.Create(ctx, domain.CreateAnimeRequest{Name: "Dragon Ball Z"})
	require.NoError(t, err)

	found, err := svc.FindByName(ctx, "Dragon Ball Z")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Dragon Ball Z", found[0].Name)

	found, err = svc.FindByName(ctx, "dragon ball z")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestAnimeService_ListAll(t *testing.T) {
	svc, _ := newTestService(t, "TestAnimeService_ListAll")
	ctx := context.Background()

	for _, name := range []string{"c", "a", "b"} {
		_, err := svc.Create(ctx, domain.CreateAnimeRequest{Name: name})
		require.NoError(t, err)
	}

	page, err := svc.ListAll(ctx, domain.PageRequest{Page: 0, Size: 2, Sort: domain.Sort{Field: domain.SortByName}})
	require.NoError(t, err)
	require.Len(t, page.Content, 2)
	assert.Equal(t, "a", page.Content[0].Name)
	assert.Equal(t, "b", page.Content[1].Name)
	assert.Equal(t, int64(3), page.TotalElements)

	all, err := svc.ListAllNonPaged(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestAnimeService_ListAll_InvalidSort(t *testing.T) {
	svc, _ := newTestService(t, "TestAnimeService_ListAll_InvalidSort")

	_, err := svc.ListAll(context.Background(), domain.PageRequest{Size: 5, Sort: domain.Sort{Field: "rating"}})
	assert.ErrorIs(t, err, ErrInvalidAnime)
}

func TestAnimeService_Delete(t *testing.T) {
	svc, _ := newTestService(t, "TestAnimeService_Delete")
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateAnimeRequest{Name: "Trigun"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.FindByIDOrFail(ctx, created.ID)
	assert.ErrorIs(t, err, ErrAnimeNotFound)

	err = svc.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, ErrAnimeNotFound)
}

func TestAnimeService_Replace(t *testing.T) {
	svc, _ := newTestService(t, "TestAnimeService_Replace")
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateAnimeRequest{Name: "Old"})
	require.NoError(t, err)

	require.NoError(t, svc.Replace(ctx, domain.UpdateAnimeRequest{ID: created.ID, Name: "New"}))

	found, err := svc.FindByIDOrFail(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Anime{ID: created.ID, Name: "New"}, found)
}

func TestAnimeService_Replace_NotFoundLeavesStoreUnchanged(t *testing.T) {
	svc, _ := newTestService(t, "TestAnimeService_Replace_NotFoundLeavesStoreUnchanged")
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateAnimeRequest{Name: "Kept"})
	require.NoError(t, err)
	before, err := svc.ListAllNonPaged(ctx)
	require.NoError(t, err)

	err = svc.Replace(ctx, domain.UpdateAnimeRequest{ID: 999999, Name: "X"})
	assert.ErrorIs(t, err, ErrAnimeNotFound)

	after, err := svc.ListAllNonPaged(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, []domain.Anime{{ID: created.ID, Name: "Kept"}}, after)
}
