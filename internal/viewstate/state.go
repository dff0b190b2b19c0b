// Package viewstate owns the per-page view state of the jobs viewer: the
// available dates, the job set of the active date, the selection and the
// internship filter.
package viewstate

import "jobs-viewer/internal/models"

// User-facing load failure messages.
const (
	MsgDateLoadFailed = "Impossible de charger les dates disponibles"
	MsgJobLoadFailed  = "Impossible de charger les offres d'emploi"
)

// State is an immutable snapshot. Transitions return a new State and never
// modify the receiver's slices.
type State struct {
	Dates              []string
	SelectedDate       string
	Jobs               []models.Job
	SelectedJobID      string
	IncludeInternships bool
	Loading            bool
	Loaded             bool
	ListError          string
	Seq                uint64
}

// SelectedJob returns the job shown in the detail pane, if any.
func (s State) SelectedJob() (models.Job, bool) {
	if s.SelectedJobID == "" {
		return models.Job{}, false
	}
	for _, j := range s.Jobs {
		if j.ID == s.SelectedJobID {
			return j, true
		}
	}
	return models.Job{}, false
}

// Empty reports whether a job set was loaded and holds no postings.
func (s State) Empty() bool {
	return s.Loaded && !s.Loading && s.ListError == "" && len(s.Jobs) == 0
}

// BeginLoad issues a new request ticket and marks the list loading.
func (s State) BeginLoad() State {
	s.Seq++
	s.Loading = true
	s.ListError = ""
	return s
}

// Current reports whether seq is the latest issued ticket.
func (s State) Current(seq uint64) bool {
	return s.Seq == seq
}

// ApplyDates stores the date list and selects the primary (first) date.
func (s State) ApplyDates(seq uint64, dates []string) State {
	if !s.Current(seq) {
		return s
	}
	s.Dates = append([]string(nil), dates...)
	s.SelectedDate = ""
	if len(dates) > 0 {
		s.SelectedDate = dates[0]
		return s
	}
	s.Loading = false
	s.Loaded = true
	s.Jobs = nil
	s.SelectedJobID = ""
	return s
}

// FailDates leaves the selector empty and surfaces the failure in the list.
func (s State) FailDates(seq uint64) State {
	if !s.Current(seq) {
		return s
	}
	s.Dates = nil
	s.SelectedDate = ""
	s.Loading = false
	s.ListError = MsgDateLoadFailed
	return s
}

// WithDate records the date whose jobs are being loaded.
func (s State) WithDate(date string) State {
	s.SelectedDate = date
	return s
}

// WithIncludeInternships sets the internship filter flag.
func (s State) WithIncludeInternships(include bool) State {
	s.IncludeInternships = include
	return s
}

// ApplyJobs replaces the job set wholesale and selects its first job.
func (s State) ApplyJobs(seq uint64, jobs []models.Job) State {
	if !s.Current(seq) {
		return s
	}
	s.Jobs = append([]models.Job(nil), jobs...)
	s.SelectedJobID = ""
	if len(s.Jobs) > 0 {
		s.SelectedJobID = s.Jobs[0].ID
	}
	s.Loading = false
	s.Loaded = true
	s.ListError = ""
	return s
}

// FailJobs surfaces a job load failure. Jobs and the selection are kept.
func (s State) FailJobs(seq uint64) State {
	if !s.Current(seq) {
		return s
	}
	s.Loading = false
	s.ListError = MsgJobLoadFailed
	return s
}

// Select makes id the selected job. An id outside Jobs clears the selection.
func (s State) Select(id string) State {
	s.SelectedJobID = ""
	for _, j := range s.Jobs {
		if j.ID == id {
			s.SelectedJobID = id
			break
		}
	}
	return s
}
