package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/pjud-tracker/internal/application/handlers"
	"github.com/ersonp/pjud-tracker/internal/domain/entities"
	"github.com/ersonp/pjud-tracker/internal/domain/services"
)

func TestParseParty(t *testing.T) {
	tests := []struct {
		input   string
		want    *entities.Party
		wantErr bool
	}{
		{input: "", want: nil},
		{input: "plaintiffs", want: partyPtr(entities.PartyPlaintiffs)},
		{input: " DEFENDANTS ", want: partyPtr(entities.PartyDefendants)},
		{input: "judge", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseParty(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func partyPtr(p entities.Party) *entities.Party {
	return &p
}

func TestValidateReconcileFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		flags   reconcileFlags
		wantErr string
	}{
		{name: "single case", args: []string{"case-1"}, flags: reconcileFlags{rows: "a.json", output: "text"}},
		{name: "sweep", flags: reconcileFlags{dir: "dumps", output: "json"}},
		{name: "scheduled sweep", flags: reconcileFlags{dir: "dumps", output: "text", every: time.Hour}},
		{name: "bad output", flags: reconcileFlags{dir: "dumps", output: "xml"}, wantErr: "invalid format"},
		{name: "dir with case id", args: []string{"case-1"}, flags: reconcileFlags{dir: "dumps", output: "text"}, wantErr: "cannot be combined"},
		{name: "case without rows", args: []string{"case-1"}, flags: reconcileFlags{output: "text"}, wantErr: "is required"},
		{name: "every without dir", args: []string{"case-1"}, flags: reconcileFlags{rows: "a.json", output: "text", every: time.Hour}, wantErr: "requires --dir"},
		{name: "every too short", flags: reconcileFlags{dir: "dumps", output: "text", every: time.Second}, wantErr: "at least"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateReconcileFlags(tt.args, tt.flags)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPrintSummary(t *testing.T) {
	summary := &services.Summary{
		RunID:            "run-1",
		CaseID:           "case-1",
		Rows:             5,
		Classified:       3,
		SkippedDuplicate: 1,
		FetchFailed:      1,
		Ingested: []services.IngestedMilestone{
			{Folio: 1, Tag: "DEMAND_START", Adopted: true},
			{Folio: 3, Tag: "NOTIFICATION.1", Suggestions: 1},
		},
		Failures: []error{errors.New("folio 4 (EXCEPTIONS) failed at fetch: timeout")},
	}

	var buf bytes.Buffer
	printSummary(&buf, summary)
	out := buf.String()

	assert.Contains(t, out, "Case case-1 (run run-1)")
	assert.Contains(t, out, "rows: 5  classified: 3  ingested: 2  duplicates: 1")
	assert.Contains(t, out, "failures: fetch: 1")
	assert.Contains(t, out, "+ folio 1 DEMAND_START (adopted)")
	assert.Contains(t, out, "+ folio 3 NOTIFICATION.1 (1 suggestions)")
	assert.Contains(t, out, "! folio 4 (EXCEPTIONS) failed at fetch: timeout")
	assert.NotContains(t, out, "cancelled")
}

func TestSweepReport(t *testing.T) {
	runs := []handlers.CaseRun{
		{CaseID: "case-a", File: "case-a.json", Summary: &services.Summary{CaseID: "case-a"}},
		{CaseID: "case-b", File: "case-b.csv", Err: entities.ErrCaseNotFound},
	}

	reports := sweepReport(runs)

	require.Len(t, reports, 2)
	assert.NotNil(t, reports[0].Summary)
	assert.Empty(t, reports[0].Error)
	assert.Nil(t, reports[1].Summary)
	assert.Equal(t, entities.ErrCaseNotFound.Error(), reports[1].Error)
}

func TestPrintViolations(t *testing.T) {
	var buf bytes.Buffer
	printViolations(&buf, nil)
	assert.Equal(t, "Chain is consistent.\n", buf.String())

	buf.Reset()
	printViolations(&buf, []services.Violation{{Kind: services.ViolationMultipleRoots, Simulated: true, Detail: "2 roots"}})
	assert.Contains(t, buf.String(), "multiple_roots (simulated branch): 2 roots")
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	globalWorkspace = dir
	t.Cleanup(func() { globalWorkspace = "" })

	cmd := newInitCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Tracker initialized successfully!")

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already initialized")
}
