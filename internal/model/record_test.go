package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "inside park", LocationInside.Label())
	assert.Equal(t, "near boundary", LocationBoundary.Label())
	assert.Equal(t, "", Location("").Label())
}

func TestParseJoinStrategy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    JoinStrategy
		wantErr bool
	}{
		{"duplicate", JoinDuplicate, false},
		{"", JoinDuplicate, false},
		{" Append ", JoinAppend, false},
		{"pivot", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseJoinStrategy(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "duplicate", JoinDuplicate.String())
	assert.Equal(t, "append", JoinAppend.String())
}

func TestSpeciesDiversity(t *testing.T) {
	t.Parallel()

	attrs := map[string]string{
		"An gambiae":  "Y",
		"An funestu":  "Y",
		"An nili":     "N",
		"An moucheti": "y",
		"Other Anop":  "An. coustani, An. pharoensis",
		"Full_Name":   "Y",
	}
	assert.Equal(t, 5, SpeciesDiversity(attrs, "Other Anop"))

	attrs["Other Anop"] = "  "
	assert.Equal(t, 3, SpeciesDiversity(attrs, "Other Anop"))
	assert.Equal(t, 0, SpeciesDiversity(nil, "Other Anop"))
}

func TestFoldID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		wantName string
		wantID   string
	}{
		{"Kédougou", "Kedougou", "Kedougou"},
		{"Saint Louis", "Saint Louis", "Saint_Louis"},
		{"Ngaoundéré Centre ", "Ngaoundere Centre", "Ngaoundere_Centre"},
		{"Dar es Salaam ☀", "Dar es Salaam", "Dar_es_Salaam"},
	}

	for _, tt := range tests {
		t.Run(tt.wantID, func(t *testing.T) {
			t.Parallel()
			name, id := FoldID(tt.name)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestRunStatusIsTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, RunStatusComplete.IsTerminal())
	assert.True(t, RunStatusFailed.IsTerminal())
	assert.False(t, RunStatusProfiling.IsTerminal())
	assert.False(t, RunStatusQueued.IsTerminal())
}
