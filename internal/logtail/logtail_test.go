package logtail

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	// Create a temporary log file
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	// Write 10 lines of content
	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{
			name:     "read all (0)",
			maxLines: 0,
			expected: expectedAll,
		},
		{
			name:     "read all (negative)",
			maxLines: -1,
			expected: expectedAll,
		},
		{
			name:     "read partial (5)",
			maxLines: 5,
			expected: expectedAll[5:],
		},
		{
			name:     "read exactly all (10)",
			maxLines: 10,
			expected: expectedAll,
		},
		{
			name:     "read more than exists (20)",
			maxLines: 20,
			expected: expectedAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "nope.log"), 10)
	if err != nil || got != nil {
		t.Fatalf("Read() = %v, %v, want nil, nil", got, err)
	}
}

func TestFileFetcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "job.log")
	body := "##[group]Build\r\nmake\r\n##[group]Test\r\ngo test\r\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := FileFetcher{Path: path}.FetchJobLogs(context.Background(), "", "", 0)
	if err != nil {
		t.Fatalf("FetchJobLogs returned error: %v", err)
	}
	// bufio.ScanLines drops the \r of CRLF endings.
	if want := "##[group]Build\nmake\n##[group]Test\ngo test\n"; got != want {
		t.Fatalf("FetchJobLogs = %q, want %q", got, want)
	}

	got, err = FileFetcher{Path: path, MaxLines: 2}.FetchJobLogs(context.Background(), "", "", 0)
	if err != nil {
		t.Fatalf("FetchJobLogs returned error: %v", err)
	}
	if got != "##[group]Test\ngo test\n" {
		t.Fatalf("FetchJobLogs tail = %q", got)
	}

	_, err = FileFetcher{Path: filepath.Join(dir, "missing.log")}.FetchJobLogs(context.Background(), "", "", 0)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("FetchJobLogs error = %v, want os.ErrNotExist", err)
	}
}
