package main

import (
	"bytes"
	"testing"
	"time"

	"taskboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"--project", "42", "--token", "abc", "--delay", "250ms"})
	require.NoError(t, err)
	assert.Equal(t, 42, opts.project)
	assert.Equal(t, "abc", opts.token)
	assert.Equal(t, 250*time.Millisecond, opts.delay)
	assert.Equal(t, 5, opts.attempts)
	assert.Equal(t, "http://localhost:5000", opts.server)

	opts, err = parseFlags([]string{"-p", "3", "--email", "a@b.c", "--password", "pw"})
	require.NoError(t, err)
	assert.Equal(t, 3, opts.project)
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing project", []string{"--token", "abc"}},
		{"missing credentials", []string{"--project", "1", "--email", "a@b.c"}},
		{"extra argument", []string{"--project", "1", "--token", "abc", "extra"}},
		{"unknown flag", []string{"--nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args)
			assert.Error(t, err)
		})
	}

	_, err := parseFlags([]string{"--help"})
	assert.ErrorIs(t, err, errUsage)
}

func TestRenderBoard(t *testing.T) {
	var buf bytes.Buffer
	renderBoard(&buf, 7, []models.Task{
		{ID: 2, Title: "Review PR", Status: models.StatusReview, Priority: models.PriorityHigh},
		{ID: 1, Title: "Write docs", Status: models.StatusTodo, Priority: models.PriorityLow},
	}, []int{1, 3}, models.EventTaskCreated)

	want := `Project 7 (after task-created)
==============================
todo (1)
  #1 Write docs [low]
in_progress (0)
review (1)
  #2 Review PR [high]
completed (0)
online: 1, 3

`
	assert.Equal(t, want, buf.String())
}
