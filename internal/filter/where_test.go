package filter

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvidal/wfmon/internal/domain"
)

func sampleEvent() *domain.Event {
	return &domain.Event{
		Timestamp: "2026-01-02T15:04:05Z",
		Agent:     "architect",
		Action:    "start",
		Workflow:  lo.ToPtr("deploy-prod"),
		Metadata:  map[string]any{},
	}
}

func TestParseWhereClause(t *testing.T) {
	tests := []struct {
		name     string
		clause   string
		field    string
		operator string
		value    string
		wantErr  bool
	}{
		{name: "equals", clause: "agent=architect", field: "agent", operator: "=", value: "architect"},
		{name: "not equals", clause: "action!=end", field: "action", operator: "!=", value: "end"},
		{name: "regex match", clause: "workflow~deploy.*", field: "workflow", operator: "~", value: "deploy.*"},
		{name: "regex not match", clause: "agent!~test", field: "agent", operator: "!~", value: "test"},
		{name: "prefix", clause: "agent^arch", field: "agent", operator: "^", value: "arch"},
		{name: "suffix", clause: "workflow$prod", field: "workflow", operator: "$", value: "prod"},
		{name: "spaces trimmed", clause: "agent = architect", field: "agent", operator: "=", value: "architect"},
		{name: "no operator", clause: "agent architect", wantErr: true},
		{name: "empty value", clause: "agent=", wantErr: true},
		{name: "invalid regex", clause: "agent~[unclosed", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wc, err := ParseWhereClause(tt.clause)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.field, wc.Field)
			assert.Equal(t, tt.operator, wc.Operator)
			assert.Equal(t, tt.value, wc.Value)
		})
	}
}

func TestWhereClauseMatch(t *testing.T) {
	tests := []struct {
		clause string
		want   bool
	}{
		{"agent=architect", true},
		{"agent=coder", false},
		{"action!=end", true},
		{"action!=start", false},
		{"workflow~deploy", true},
		{"workflow~^prod", false},
		{"agent!~cod", true},
		{"agent!~arch", false},
		{"agent^arch", true},
		{"agent^tect", false},
		{"workflow$prod", true},
		{"workflow$deploy", false},
		{"timestamp^2026", true},
	}

	for _, tt := range tests {
		t.Run(tt.clause, func(t *testing.T) {
			wc, err := ParseWhereClause(tt.clause)
			require.NoError(t, err)
			assert.Equal(t, tt.want, wc.Match(sampleEvent()))
		})
	}
}

func TestWhereClauseNilFields(t *testing.T) {
	e := &domain.Event{Agent: "a", Action: "start", Metadata: map[string]any{}}

	wc, err := ParseWhereClause("workflow=deploy")
	require.NoError(t, err)
	assert.False(t, wc.Match(e), "nil workflow reads as empty string")

	wc, err = ParseWhereClause("parent!=root")
	require.NoError(t, err)
	assert.True(t, wc.Match(e))
}

func TestWhereFilter(t *testing.T) {
	t.Run("nil filter matches everything", func(t *testing.T) {
		f, err := NewWhereFilter(nil)
		require.NoError(t, err)
		require.Nil(t, f)
		assert.True(t, f.Match(sampleEvent()))
	})

	t.Run("clauses combine with AND", func(t *testing.T) {
		f, err := NewWhereFilter([]string{"agent=architect", "action=start"})
		require.NoError(t, err)
		assert.True(t, f.Match(sampleEvent()))

		f, err = NewWhereFilter([]string{"agent=architect", "action=end"})
		require.NoError(t, err)
		assert.False(t, f.Match(sampleEvent()))
	})

	t.Run("bad clause fails construction", func(t *testing.T) {
		_, err := NewWhereFilter([]string{"agent=architect", "bogus"})
		assert.Error(t, err)
	})
}
