package logview

import (
	"errors"
	"testing"
)

func TestIdentifier_URIRoundTrip(t *testing.T) {
	tests := []Identifier{
		{Owner: "octo", Repo: "hello", JobID: 42},
		{Owner: "octo", Repo: "hello-world.go", JobID: 9000000001, Step: "Run tests"},
		{Owner: "Org", Repo: "r", JobID: 1, Step: "a/b & c?"},
	}
	for _, id := range tests {
		t.Run(id.String(), func(t *testing.T) {
			got, err := ParseURI(id.URI())
			if err != nil {
				t.Fatalf("ParseURI(%q) returned error: %v", id.URI(), err)
			}
			if got != id {
				t.Fatalf("ParseURI(%q) = %+v, want %+v", id.URI(), got, id)
			}
		})
	}
}

func TestIdentifier_URIFormat(t *testing.T) {
	id := Identifier{Owner: "octo", Repo: "hello", JobID: 42, Step: "Build"}
	if got, want := id.URI(), "actlog://octo/hello/jobs/42?step=Build"; got != want {
		t.Fatalf("URI = %q, want %q", got, want)
	}
	if got, want := id.Canonical().URI(), "actlog://octo/hello/jobs/42"; got != want {
		t.Fatalf("Canonical URI = %q, want %q", got, want)
	}
}

func TestParseURI_Invalid(t *testing.T) {
	tests := []string{
		"",
		"https://octo/hello/jobs/42",
		"actlog://octo/hello/runs/42",
		"actlog://octo/hello/jobs/abc",
		"actlog://octo/hello/jobs/0",
		"actlog:///hello/jobs/1",
		"actlog://octo/hello/jobs/1/extra",
	}
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			if _, err := ParseURI(raw); !errors.Is(err, ErrInvalidURI) {
				t.Fatalf("ParseURI(%q) error = %v, want ErrInvalidURI", raw, err)
			}
		})
	}
}

func TestNewIdentifier_Validation(t *testing.T) {
	if _, err := NewIdentifier("", "r", 1, ""); err == nil {
		t.Fatalf("expected error for empty owner")
	}
	if _, err := NewIdentifier("o", "a/b", 1, ""); err == nil {
		t.Fatalf("expected error for repo with slash")
	}
	if _, err := NewIdentifier("o", "r", -3, ""); err == nil {
		t.Fatalf("expected error for negative job id")
	}
	id, err := NewIdentifier(" o ", "r", 7, "s")
	if err != nil {
		t.Fatalf("NewIdentifier returned error: %v", err)
	}
	if id.Owner != "o" || id.Step != "s" {
		t.Fatalf("NewIdentifier = %+v", id)
	}
}
