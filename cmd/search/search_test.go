package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kdimtricp/moviesearch/internal/catalog"
	"github.com/kdimtricp/moviesearch/internal/models"
	"github.com/kdimtricp/moviesearch/internal/session"
)

type pagedFetcher struct {
	totalPages int
	perPage    int
	err        error
}

func (f pagedFetcher) FetchPage(_ context.Context, query string, page int) (*models.ResultPage, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.totalPages == 0 {
		return &models.ResultPage{PageNumber: page}, nil
	}

	items := make([]models.Movie, f.perPage)
	for i := range items {
		items[i] = models.Movie{
			ID:          page*10 + i,
			Title:       fmt.Sprintf("%s %d-%d", query, page, i),
			ReleaseDate: "2008-07-16",
			VoteAverage: 8.5,
		}
	}
	items[0].PosterPath = "/p.jpg"
	return &models.ResultPage{PageNumber: page, Items: items, TotalPages: f.totalPages, TotalResults: f.totalPages * f.perPage}, nil
}

func search(t *testing.T, f pagedFetcher, policy session.Policy, pages int) (string, error) {
	t.Helper()

	ctl := session.NewController(f, policy, session.TriggerExplicitControl)
	t.Cleanup(ctl.Close)

	var out bytes.Buffer
	images := catalog.NewTMDbClient(catalog.Config{}, nil)
	err := runSearch(context.Background(), &out, ctl, images, "batman", pages, time.Second)
	return out.String(), err
}

func TestRunSearch_ReplacePrintsEachPage(t *testing.T) {
	out, err := search(t, pagedFetcher{totalPages: 3, perPage: 2}, session.PolicyReplace, 2)
	require.NoError(t, err)

	assert.Contains(t, out, `"batman": page 1 of 3 (6 results)`)
	assert.Contains(t, out, `"batman": page 2 of 3 (6 results)`)
	assert.NotContains(t, out, "page 3 of 3")
	assert.Contains(t, out, "https://image.tmdb.org/t/p/w500/p.jpg")
	assert.Contains(t, out, "8.5/10")
	assert.Contains(t, out, "2008-07-16")
}

func TestRunSearch_AppendPrintsAccumulatedOnce(t *testing.T) {
	out, err := search(t, pagedFetcher{totalPages: 2, perPage: 2}, session.PolicyAppend, 5)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, `"batman": page`))
	assert.Contains(t, out, `"batman": page 2 of 2 (4 results)`)
	assert.Contains(t, out, "batman 1-0")
	assert.Contains(t, out, "batman 2-1")
}

func TestRunSearch_NoResultsPrintsNotice(t *testing.T) {
	out, err := search(t, pagedFetcher{}, session.PolicyReplace, 1)
	require.NoError(t, err)

	assert.Equal(t, string(session.NoticeNoResults)+"\n", out)
}

func TestRunSearch_FailureReturnsError(t *testing.T) {
	_, err := search(t, pagedFetcher{err: errors.New("boom")}, session.PolicyReplace, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch failed")
}
