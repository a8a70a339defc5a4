package scan

import (
	"testing"

	"github.com/resetwatch/resetwatch/internal/database/types"
	"github.com/resetwatch/resetwatch/internal/pnw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func catalogPage(startID int64, count int, next string) *pnw.NationPage {
	page := &pnw.NationPage{NextCursor: next, HasMore: next != ""}
	for i := range count {
		page.Nations = append(page.Nations, &pnw.Nation{
			ID:   startID + int64(i),
			Name: "Nation",
		})
	}

	return page
}

func TestImportCatalogWalksAllPages(t *testing.T) {
	t.Parallel()

	storage := newFakeStorage()
	fetcher := newFakeFetcher()
	fetcher.pages = []*pnw.NationPage{
		catalogPage(1, 3, "cur@1"),
		catalogPage(4, 3, "cur@2"),
		catalogPage(7, 2, ""),
	}

	worker := New(storage, fetcher, nil, Options{}, zaptest.NewLogger(t))

	imported, err := worker.ImportCatalog(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 8, imported)
	assert.Len(t, storage.nations, 8)
	assert.Equal(t, 3, fetcher.pageCalls)
}

func TestImportCatalogKeepsPartialProgress(t *testing.T) {
	t.Parallel()

	storage := newFakeStorage()
	fetcher := newFakeFetcher()
	fetcher.pages = []*pnw.NationPage{
		catalogPage(1, 5, "cur@1"),
		catalogPage(6, 5, "cur@2"),
	}
	fetcher.pageErrAt = 1

	worker := New(storage, fetcher, nil, Options{}, zaptest.NewLogger(t))

	imported, err := worker.ImportCatalog(t.Context())
	require.ErrorIs(t, err, pnw.ErrTransport)
	assert.Equal(t, 5, imported, "pages before the failure stay imported")
	assert.Len(t, storage.nations, 5)
	assert.Contains(t, storage.errorLogs, "catalog_import")
}

func TestBootstrapIfEmpty(t *testing.T) {
	t.Parallel()

	t.Run("imports when catalog empty", func(t *testing.T) {
		t.Parallel()

		storage := newFakeStorage()
		fetcher := newFakeFetcher()
		fetcher.pages = []*pnw.NationPage{catalogPage(1, 2, "")}

		worker := New(storage, fetcher, nil, Options{}, zaptest.NewLogger(t))

		require.NoError(t, worker.BootstrapIfEmpty(t.Context()))
		assert.Len(t, storage.nations, 2)
	})

	t.Run("skips when nations exist", func(t *testing.T) {
		t.Parallel()

		storage := newFakeStorage()
		storage.nations[1] = &types.Nation{ID: 1}

		fetcher := newFakeFetcher()
		worker := New(storage, fetcher, nil, Options{}, zaptest.NewLogger(t))

		require.NoError(t, worker.BootstrapIfEmpty(t.Context()))
		assert.Zero(t, fetcher.pageCalls)
	})
}
