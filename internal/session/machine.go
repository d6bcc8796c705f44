// Package session holds the search state machine that reconciles user intents
// and asynchronous catalog results into one consistent view per browser session.
package session

import (
	"fmt"
	"strings"

	"github.com/kdimtricp/moviesearch/internal/models"
)

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusEmpty
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusEmpty:
		return "empty"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Policy decides what a successful page fetch does to the visible results.
type Policy int

const (
	PolicyReplace Policy = iota
	PolicyAppend
)

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "replace":
		return PolicyReplace, nil
	case "append":
		return PolicyAppend, nil
	}
	return 0, fmt.Errorf("unknown accumulation policy %q", s)
}

func (p Policy) String() string {
	if p == PolicyAppend {
		return "append"
	}
	return "replace"
}

// Trigger is how the user asks for another page.
type Trigger int

const (
	TriggerExplicitControl Trigger = iota
	TriggerScrollProximity
)

func ParseTrigger(s string) (Trigger, error) {
	switch strings.ToLower(s) {
	case "control":
		return TriggerExplicitControl, nil
	case "scroll":
		return TriggerScrollProximity, nil
	}
	return 0, fmt.Errorf("unknown pagination trigger %q", s)
}

func (t Trigger) String() string {
	if t == TriggerScrollProximity {
		return "scroll"
	}
	return "control"
}

// Ticket identifies one outbound fetch. A result is applied only if its
// ticket still equals the machine's current target.
type Ticket struct {
	Seq   uint64
	Query string
	Page  int
}

type Notice string

const NoticeNoResults Notice = "No movies found for your request."

// Machine is the search state machine. It performs no I/O and is not safe
// for concurrent use; Controller serializes access to it.
type Machine struct {
	policy  Policy
	trigger Trigger

	query        string
	currentPage  int
	totalPages   int
	totalResults int
	results      []models.Movie
	status       Status
	err          error
	selected     *models.Movie
	notices      []Notice

	seq    uint64
	target *Ticket
}

func NewMachine(policy Policy, trigger Trigger) *Machine {
	return &Machine{
		policy:      policy,
		trigger:     trigger,
		currentPage: 1,
		status:      StatusIdle,
	}
}

// Submit starts a new session for query. It returns the ticket to fetch, or
// false when the trimmed query is empty and the machine went Idle.
func (m *Machine) Submit(query string) (Ticket, bool) {
	m.query = strings.TrimSpace(query)
	m.currentPage = 1
	m.totalPages = 0
	m.totalResults = 0
	m.results = nil
	m.err = nil
	m.selected = nil
	m.notices = nil
	m.target = nil

	if m.query == "" {
		m.status = StatusIdle
		return Ticket{}, false
	}

	return m.issue(1), true
}

// RequestPage asks for page n of the current query. It is a no-op while a
// fetch is outstanding, for the current page, or for pages out of range.
func (m *Machine) RequestPage(n int) (Ticket, bool) {
	switch m.status {
	case StatusLoaded, StatusEmpty, StatusFailed:
	default:
		return Ticket{}, false
	}
	if n == m.currentPage || n < 1 || n > m.totalPages {
		return Ticket{}, false
	}
	return m.issue(n), true
}

// LoadMore is the proximity-triggered variant of RequestPage(currentPage+1).
func (m *Machine) LoadMore() (Ticket, bool) {
	return m.RequestPage(m.currentPage + 1)
}

func (m *Machine) issue(page int) Ticket {
	m.seq++
	t := Ticket{Seq: m.seq, Query: m.query, Page: page}
	m.target = &t
	m.status = StatusLoading
	m.err = nil
	return t
}

func (m *Machine) matches(t Ticket) bool {
	return m.status == StatusLoading && m.target != nil && *m.target == t
}

// Resolve applies a successful fetch. It reports false and changes nothing
// when the ticket is stale.
func (m *Machine) Resolve(t Ticket, page *models.ResultPage) bool {
	if !m.matches(t) || page == nil {
		return false
	}
	m.target = nil
	m.totalPages = page.TotalPages
	m.totalResults = page.TotalResults

	switch {
	case len(page.Items) == 0 && t.Page == 1:
		m.status = StatusEmpty
		m.notices = append(m.notices, NoticeNoResults)
	case len(page.Items) == 0:
		// A short later page still moves the cursor so it is not asked for again.
		m.currentPage = t.Page
		m.status = StatusLoaded
	default:
		items := make([]models.Movie, len(page.Items))
		copy(items, page.Items)
		if m.policy == PolicyAppend {
			m.results = append(m.results, items...)
		} else {
			m.results = items
		}
		m.currentPage = t.Page
		m.status = StatusLoaded
	}

	m.currentPage = min(max(m.currentPage, 1), max(m.totalPages, 1))
	return true
}

// Reject records a failed fetch. Results gathered so far are kept.
func (m *Machine) Reject(t Ticket, err error) bool {
	if !m.matches(t) {
		return false
	}
	m.target = nil
	m.status = StatusFailed
	m.err = err
	return true
}

func (m *Machine) Select(movie models.Movie) {
	m.selected = &movie
}

// SelectByID selects a movie from the current results.
func (m *Machine) SelectByID(id int) bool {
	for _, movie := range m.results {
		if movie.ID == id {
			m.Select(movie)
			return true
		}
	}
	return false
}

func (m *Machine) ClearSelection() {
	m.selected = nil
}

// TakeNotices returns queued notices and forgets them.
func (m *Machine) TakeNotices() []Notice {
	n := m.notices
	m.notices = nil
	return n
}

func (m *Machine) Status() Status {
	return m.status
}

func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		Query:        m.query,
		Status:       m.status,
		CurrentPage:  m.currentPage,
		TotalPages:   m.totalPages,
		TotalResults: m.totalResults,
		Results:      append([]models.Movie(nil), m.results...),
		Policy:       m.policy,
		Trigger:      m.trigger,
	}
	if m.selected != nil {
		sel := *m.selected
		s.Selected = &sel
	}
	if m.target != nil {
		s.LoadingPage = m.target.Page
	}
	if m.err != nil {
		s.Error = "fetch failed"
	}
	return s
}
