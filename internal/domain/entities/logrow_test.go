package entities

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProcedureDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected *time.Time
		wantErr  bool
	}{
		{
			name:     "four digit year",
			input:    "12/03/2023",
			expected: datePtr(2023, time.March, 12),
		},
		{
			name:     "two digit year",
			input:    "05/11/22",
			expected: datePtr(2022, time.November, 5),
		},
		{
			name:     "surrounding whitespace",
			input:    "  01/01/2024 ",
			expected: datePtr(2024, time.January, 1),
		},
		{
			name:     "empty date is nil",
			input:    "",
			expected: nil,
		},
		{
			name:    "iso date rejected",
			input:   "2023-03-12",
			wantErr: true,
		},
		{
			name:    "invalid month",
			input:   "12/13/2023",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProcedureDate(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedRow)
				return
			}
			require.NoError(t, err)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.expected.Equal(*got), "got %v", got)
		})
	}
}

func TestRawLogRow_Validate(t *testing.T) {
	valid := RawLogRow{Folio: "12", Page: "3", Date: "12/03/2023"}
	require.NoError(t, valid.Validate())

	noPage := RawLogRow{Folio: "12", Date: "12/03/2023"}
	require.NoError(t, noPage.Validate())

	badFolio := RawLogRow{Folio: "x12", Date: "12/03/2023"}
	assert.ErrorIs(t, badFolio.Validate(), ErrMalformedRow)

	badPage := RawLogRow{Folio: "12", Page: "three"}
	assert.ErrorIs(t, badPage.Validate(), ErrMalformedRow)

	badDate := RawLogRow{Folio: "12", Date: "yesterday"}
	assert.ErrorIs(t, badDate.Validate(), ErrMalformedRow)
}

func TestMilestoneTag_RoundTrip(t *testing.T) {
	tags := []MilestoneTag{
		{Type: EventDemandStart},
		{Type: EventNotification, Ordinal: 1},
		{Type: EventNotification, Ordinal: 12},
		{Type: EventExceptions},
	}

	for _, tag := range tags {
		t.Run(tag.String(), func(t *testing.T) {
			parsed, err := ParseMilestoneTag(tag.String())
			require.NoError(t, err)
			assert.Equal(t, tag, parsed)
		})
	}
}

func TestParseMilestoneTag_Invalid(t *testing.T) {
	for _, input := range []string{"", "UNKNOWN", "NOTIFICATION.0", "NOTIFICATION.x"} {
		_, err := ParseMilestoneTag(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestIsInvariantViolation(t *testing.T) {
	assert.True(t, IsInvariantViolation(ErrDuplicateRoot))
	assert.True(t, IsInvariantViolation(fmt.Errorf("appending: %w", ErrChainAlreadyLinked)))
	assert.False(t, IsInvariantViolation(ErrCorruptDocument))
	assert.False(t, IsInvariantViolation(&RowError{Stage: StageFetch, Err: ErrNotAPDF}))
	assert.True(t, IsInvariantViolation(&RowError{Stage: StageAppend, Err: ErrCrossCase}))
}

func TestMilestones_DocumentRequirement(t *testing.T) {
	for eventType, spec := range Milestones {
		assert.Equal(t, eventType, spec.Type)
		want := eventType == EventDispatchResolution || eventType == EventExceptions
		assert.Equal(t, want, spec.RequiresDocument, "milestone %s", eventType)
	}
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}
