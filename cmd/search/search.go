package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/kdimtricp/moviesearch/internal/models"
	"github.com/kdimtricp/moviesearch/internal/session"
)

type posterResolver interface {
	PosterURL(path string) string
}

// runSearch drives ctl through up to pages pages of query and writes each
// settled state to out. Replace mode prints every page, append mode prints
// the accumulated results once.
func runSearch(ctx context.Context, out io.Writer, ctl *session.Controller, images posterResolver, query string, pages int, timeout time.Duration) error {
	ctl.Submit(query)

	for page := 1; page <= pages; page++ {
		if page > 1 && !ctl.LoadMore() {
			break
		}

		waitCtx, cancel := context.WithTimeout(ctx, timeout)
		snapshot, err := ctl.Wait(waitCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("waiting for page %d: %w", page, err)
		}

		for _, n := range ctl.TakeNotices() {
			fmt.Fprintln(out, n)
		}

		switch {
		case snapshot.Failed():
			return fmt.Errorf("page %d: %s", page, snapshot.Error)
		case snapshot.Status == session.StatusEmpty:
			return nil
		}

		last := page == pages || !snapshot.HasMore()
		if snapshot.Policy == session.PolicyReplace || last {
			printPage(out, snapshot, images)
		}
		if last {
			break
		}
	}

	return nil
}

func printPage(out io.Writer, s session.Snapshot, images posterResolver) {
	fmt.Fprintf(out, "%q: page %d of %d (%d results)\n", s.Query, s.CurrentPage, s.TotalPages, s.TotalResults)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tRELEASE\tRATING\tPOSTER")
	for _, m := range s.Results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", m.ID, m.Title, m.ReleaseLabel(), m.RatingLabel(), posterOrDash(images, m))
	}
	w.Flush()
	fmt.Fprintln(out)
}

func posterOrDash(images posterResolver, m models.Movie) string {
	if u := images.PosterURL(m.PosterPath); u != "" {
		return u
	}
	return "—"
}
