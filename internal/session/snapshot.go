package session

import "github.com/kdimtricp/moviesearch/internal/models"

// Snapshot is a read-only copy of a session used for rendering.
type Snapshot struct {
	Query        string         `json:"query"`
	Status       Status         `json:"status"`
	CurrentPage  int            `json:"current_page"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
	Results      []models.Movie `json:"results"`
	Selected     *models.Movie  `json:"selected,omitempty"`
	LoadingPage  int            `json:"loading_page,omitempty"`
	Error        string         `json:"error,omitempty"`
	Policy       Policy         `json:"-"`
	Trigger      Trigger        `json:"-"`
}

func (s Snapshot) Loading() bool {
	return s.Status == StatusLoading
}

func (s Snapshot) Failed() bool {
	return s.Status == StatusFailed
}

func (s Snapshot) HasMore() bool {
	return s.Query != "" && s.CurrentPage < s.TotalPages
}

// ShowPaginator reports whether an explicit page control should be rendered.
func (s Snapshot) ShowPaginator() bool {
	return s.Trigger == TriggerExplicitControl && s.TotalPages > 1 && len(s.Results) > 0
}

// ShowSentinel reports whether the scroll boundary marker should be rendered.
func (s Snapshot) ShowSentinel() bool {
	switch s.Status {
	case StatusLoading, StatusFailed, StatusEmpty:
		return false
	}
	return s.Trigger == TriggerScrollProximity && s.HasMore()
}
