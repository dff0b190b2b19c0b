package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Job is one posting of a listing snapshot, as served by the listings API.
// Values are immutable once decoded.
type Job struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Company        string  `json:"company"`
	CompanyLogo    string  `json:"company_logo,omitempty"`
	Location       string  `json:"location,omitempty"`
	JobType        string  `json:"job_type,omitempty"`
	DatePosted     string  `json:"date_posted,omitempty"`
	AIScore        float64 `json:"ai_score"`
	SkillsRequired string  `json:"ai_skills_required,omitempty"`
	Description    string  `json:"description,omitempty"`
	JobURLDirect   string  `json:"job_url_direct,omitempty"`
	JobURL         string  `json:"job_url,omitempty"`
	InsertedAt     string  `json:"inserted_at,omitempty"`
}

// PrimaryURL prefers the direct application link over the source link.
func (j Job) PrimaryURL() string {
	if j.JobURLDirect != "" {
		return j.JobURLDirect
	}
	return j.JobURL
}

// HasSecondaryURL reports whether the source link is worth a second button.
func (j Job) HasSecondaryURL() bool {
	return j.JobURLDirect != "" && j.JobURL != "" && j.JobURLDirect != j.JobURL
}

// jobRecord is the wire shape: every column may be null and ids may be
// numeric depending on the backend's storage.
type jobRecord struct {
	ID             jobID    `json:"id" validate:"required"`
	Title          *string  `json:"title"`
	Company        *string  `json:"company"`
	CompanyLogo    *string  `json:"company_logo"`
	Location       *string  `json:"location"`
	JobType        *string  `json:"job_type"`
	DatePosted     *string  `json:"date_posted"`
	AIScore        *float64 `json:"ai_score" validate:"required"`
	SkillsRequired *string  `json:"ai_skills_required"`
	Description    *string  `json:"description"`
	JobURLDirect   *string  `json:"job_url_direct"`
	JobURL         *string  `json:"job_url"`
	InsertedAt     *string  `json:"inserted_at"`
}

type jobID string

func (id *jobID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = jobID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("job id must be a string or a number: %w", err)
	}
	*id = jobID(n.String())
	return nil
}

func (r jobRecord) toJob() Job {
	return Job{
		ID:             string(r.ID),
		Title:          deref(r.Title),
		Company:        deref(r.Company),
		CompanyLogo:    deref(r.CompanyLogo),
		Location:       deref(r.Location),
		JobType:        deref(r.JobType),
		DatePosted:     deref(r.DatePosted),
		AIScore:        *r.AIScore,
		SkillsRequired: deref(r.SkillsRequired),
		Description:    deref(r.Description),
		JobURLDirect:   deref(r.JobURLDirect),
		JobURL:         deref(r.JobURL),
		InsertedAt:     deref(r.InsertedAt),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// RejectedRecord describes a record dropped while decoding a job list.
type RejectedRecord struct {
	Index  int
	ID     string
	Reason string
}

var validate = validator.New()

// DecodeJobs parses a job list response. Only a body that is not a JSON array
// is an error; records without an id or a score, and repeated ids, are
// dropped and reported so the rest of the list still renders.
func DecodeJobs(body []byte) ([]Job, []RejectedRecord, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil, fmt.Errorf("job list is not a JSON array: %w", err)
	}
	if raw == nil {
		return nil, nil, errors.New("job list is not a JSON array: null")
	}

	jobs := make([]Job, 0, len(raw))
	var rejected []RejectedRecord
	seen := make(map[string]struct{}, len(raw))

	for i, msg := range raw {
		var rec jobRecord
		if err := json.Unmarshal(msg, &rec); err != nil {
			rejected = append(rejected, RejectedRecord{Index: i, Reason: err.Error()})
			continue
		}
		if err := validate.Struct(rec); err != nil {
			rejected = append(rejected, RejectedRecord{Index: i, ID: string(rec.ID), Reason: validationReason(err)})
			continue
		}
		if _, dup := seen[string(rec.ID)]; dup {
			rejected = append(rejected, RejectedRecord{Index: i, ID: string(rec.ID), Reason: "duplicate id"})
			continue
		}
		seen[string(rec.ID)] = struct{}{}
		jobs = append(jobs, rec.toJob())
	}

	return jobs, rejected, nil
}

// DecodeDates parses a date list response, keeping server order and skipping
// blank tokens.
func DecodeDates(body []byte) ([]string, error) {
	var raw []string
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("date list is not a JSON array of strings: %w", err)
	}
	if raw == nil {
		return nil, errors.New("date list is not a JSON array of strings: null")
	}

	dates := make([]string, 0, len(raw))
	for _, d := range raw {
		if d = strings.TrimSpace(d); d != "" {
			dates = append(dates, d)
		}
	}
	return dates, nil
}

func validationReason(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s is %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(fields, ", ")
}
