package api

import (
	"github.com/kdimtricp/moviesearch/internal/models"
	"github.com/kdimtricp/moviesearch/internal/session"
)

// pageWindow is how many pages are shown on each side of the active one.
const pageWindow = 2

type cardView struct {
	ID        int
	Title     string
	PosterURL string
}

type pageLink struct {
	Index    int
	Number   int
	Active   bool
	Ellipsis bool
}

type resultsView struct {
	Snapshot session.Snapshot
	Cards    []cardView
	Pages    []pageLink
	Notices  []session.Notice
}

type modalView struct {
	Movie       models.Movie
	BackdropURL string
}

func (app *App) newResultsView(s session.Snapshot, notices []session.Notice) resultsView {
	cards := make([]cardView, 0, len(s.Results))
	for _, m := range s.Results {
		cards = append(cards, cardView{
			ID:        m.ID,
			Title:     m.Title,
			PosterURL: app.Images.PosterURL(m.PosterPath),
		})
	}

	view := resultsView{
		Snapshot: s,
		Cards:    cards,
		Notices:  notices,
	}
	if s.ShowPaginator() {
		view.Pages = paginate(s.CurrentPage, s.TotalPages)
	}
	return view
}

// paginate builds the page control: the first and last page, a window around
// current, and ellipses for the gaps. Index is zero-based, Number one-based.
func paginate(current, total int) []pageLink {
	var links []pageLink
	gap := false
	for n := 1; n <= total; n++ {
		near := n >= current-pageWindow && n <= current+pageWindow
		if n == 1 || n == total || near {
			links = append(links, pageLink{Index: n - 1, Number: n, Active: n == current})
			gap = false
			continue
		}
		if !gap {
			links = append(links, pageLink{Ellipsis: true})
			gap = true
		}
	}
	return links
}
