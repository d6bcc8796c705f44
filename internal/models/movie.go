package models

import "fmt"

// Movie is a single catalog entry. Optional fields use their zero value when
// the catalog omits them or sends null.
type Movie struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	PosterPath   string  `json:"poster_path,omitempty"`
	BackdropPath string  `json:"backdrop_path,omitempty"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date,omitempty"`
	VoteAverage  float64 `json:"vote_average,omitempty"`
}

// ResultPage is one page of search results as returned by the catalog.
type ResultPage struct {
	PageNumber   int     `json:"page"`
	Items        []Movie `json:"items"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

func (m Movie) HasPoster() bool {
	return m.PosterPath != ""
}

func (m Movie) HasBackdrop() bool {
	return m.BackdropPath != ""
}

// ReleaseLabel returns the release date or a dash when it is unknown.
func (m Movie) ReleaseLabel() string {
	if m.ReleaseDate == "" {
		return "—"
	}
	return m.ReleaseDate
}

// RatingLabel formats the vote average as "x/10", or a dash when unrated.
func (m Movie) RatingLabel() string {
	if m.VoteAverage == 0 {
		return "—"
	}
	return fmt.Sprintf("%g/10", m.VoteAverage)
}
