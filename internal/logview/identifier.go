package logview

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Scheme is the virtual document scheme for job log views.
const Scheme = "actlog"

// ErrInvalidURI is returned when a virtual document URI cannot be mapped back to an Identifier.
var ErrInvalidURI = errors.New("invalid log uri")

// Identifier addresses one log view: a job's log, optionally focused on a step.
type Identifier struct {
	Owner string
	Repo  string
	JobID int64
	Step  string
}

// NewIdentifier builds an Identifier after validating its parts.
func NewIdentifier(owner, repo string, jobID int64, step string) (Identifier, error) {
	owner = strings.TrimSpace(owner)
	repo = strings.TrimSpace(repo)
	if owner == "" || repo == "" {
		return Identifier{}, fmt.Errorf("owner and repo required")
	}
	if strings.Contains(owner, "/") || strings.Contains(repo, "/") {
		return Identifier{}, fmt.Errorf("owner %q and repo %q must not contain '/'", owner, repo)
	}
	if jobID <= 0 {
		return Identifier{}, fmt.Errorf("job id must be positive, got %d", jobID)
	}
	return Identifier{Owner: owner, Repo: repo, JobID: jobID, Step: step}, nil
}

// Canonical returns the identifier of the underlying job log, without any step focus.
func (id Identifier) Canonical() Identifier {
	id.Step = ""
	return id
}

// WithStep returns a copy focused on the named step.
func (id Identifier) WithStep(step string) Identifier {
	id.Step = step
	return id
}

// URI renders the identifier as a virtual document URI. ParseURI reverses it.
func (id Identifier) URI() string {
	u := url.URL{
		Scheme: Scheme,
		Host:   id.Owner,
		Path:   "/" + id.Repo + "/jobs/" + strconv.FormatInt(id.JobID, 10),
	}
	if id.Step != "" {
		u.RawQuery = url.Values{"step": []string{id.Step}}.Encode()
	}
	return u.String()
}

func (id Identifier) String() string {
	s := fmt.Sprintf("%s/%s#%d", id.Owner, id.Repo, id.JobID)
	if id.Step != "" {
		s += " (" + id.Step + ")"
	}
	return s
}

// ParseURI maps a virtual document URI back to its Identifier.
func ParseURI(raw string) (Identifier, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return Identifier{}, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	if u.Scheme != Scheme {
		return Identifier{}, fmt.Errorf("%w: scheme %q, want %q", ErrInvalidURI, u.Scheme, Scheme)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) != 3 || parts[1] != "jobs" {
		return Identifier{}, fmt.Errorf("%w: path %q, want /{repo}/jobs/{id}", ErrInvalidURI, u.Path)
	}
	jobID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Identifier{}, fmt.Errorf("%w: job id %q", ErrInvalidURI, parts[2])
	}
	id, err := NewIdentifier(u.Host, parts[0], jobID, u.Query().Get("step"))
	if err != nil {
		return Identifier{}, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	return id, nil
}
