package diag

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codedErr struct {
	sev  Severity
	code string
}

func (e codedErr) Error() string             { return "[" + e.code + "] coded" }
func (e codedErr) MessageSeverity() Severity { return e.sev }
func (e codedErr) MessageCode() string       { return e.code }
func (e codedErr) MessageText() string       { return "coded" }

func TestMessages_OrderAndCounts(t *testing.T) {
	m := New()
	m.Info("first")
	m.Warning("second")
	m.Error("third")
	m.Addf(Error, "fourth %d", 4)

	all := m.All()
	require.Len(t, all, 4)
	assert.Equal(t, "first", all[0].Text)
	assert.Equal(t, "fourth 4", all[3].Text)

	assert.Equal(t, 2, m.Count(Error))
	assert.Equal(t, 1, m.Count(Warning))
	assert.True(t, m.HasErrors())
	assert.Equal(t, Summary{Errors: 2, Warnings: 1, Infos: 1}, m.Summary())
	assert.Len(t, m.AtLeast(Warning), 3)
}

func TestMessages_AllReturnsCopy(t *testing.T) {
	m := New()
	m.Info("a")
	all := m.All()
	all[0].Text = "changed"
	assert.Equal(t, "a", m.All()[0].Text)
}

func TestMessages_Merge(t *testing.T) {
	a := New()
	a.Info("a1")
	b := New()
	b.Error("b1")
	b.Warning("b2")

	a.Merge(b)
	a.Merge(nil)

	texts := []string{}
	for _, msg := range a.All() {
		texts = append(texts, msg.Text)
	}
	assert.Equal(t, []string{"a1", "b1", "b2"}, texts)
	assert.Equal(t, 2, b.Len(), "merge must not drain the source")
}

func TestMessages_AddErr(t *testing.T) {
	m := New()
	m.AddErr("X1", nil)
	assert.Equal(t, 0, m.Len())

	m.AddErr("X1", errors.New("boom"))
	m.AddErr("X2", fmt.Errorf("wrapped: %w", codedErr{sev: Warning, code: "IGNORED"}))

	all := m.All()
	require.Len(t, all, 2)
	assert.Equal(t, Error, all[0].Severity)
	assert.Equal(t, "X1", all[0].ElementID)
	assert.Equal(t, Warning, all[1].Severity)
	assert.Equal(t, "IGNORED", all[1].Code)
	assert.Equal(t, "wrapped: coded", all[1].Text, "the code is kept in Code only")
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in      string
		want    Severity
		wantErr bool
	}{
		{"info", Info, false},
		{"WARN", Warning, false},
		{" warning ", Warning, false},
		{"Error", Error, false},
		{"fatal", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSeverity(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNilMessagesAreEmpty(t *testing.T) {
	var m *Messages
	assert.Equal(t, 0, m.Len())
	assert.False(t, m.HasErrors())
	assert.Nil(t, m.All())
}
