package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) Document {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var d Document
	require.NoError(t, dec.Decode(&d))
	return d
}

func TestDocument_Accessors(t *testing.T) {
	d := decode(t, `{"id": 9007199254740993, "title": "x", "locked": true, "size": 1024.0,
		"user": {"login": "octo"}}`)

	assert.Equal(t, "9007199254740993", d.ID())
	assert.Equal(t, int64(9007199254740993), d.Int64("id"))
	assert.Equal(t, "x", d.String("title"))
	assert.True(t, d.Bool("locked"))
	assert.Equal(t, 1024, d.Int("size"))
	assert.Equal(t, "octo", d.Object("user").String("login"))
	assert.Nil(t, d.Object("missing"))
	assert.Empty(t, d.String("locked"))
	assert.Zero(t, d.Int("title"))
}

func TestDocument_StringID(t *testing.T) {
	assert.Equal(t, "aa5a315d61ae9438b18d", Document{"id": "aa5a315d61ae9438b18d"}.ID())
	assert.Empty(t, Document{}.ID())
}

func TestDocument_CloneAndAppend(t *testing.T) {
	orig := Document{"number": json.Number("1")}
	c := orig.Clone()

	c.Append("comment_data", Document{"body": "a"})
	c.Append("comment_data", Document{"body": "b"})

	assert.NotContains(t, orig, "comment_data")
	require.Len(t, c["comment_data"], 2)
}

func TestStripURITemplate(t *testing.T) {
	assert.Equal(t, "https://api.github.com/users/o/starred",
		StripURITemplate("https://api.github.com/users/o/starred{/owner}{/repo}"))
	assert.Equal(t, "https://api.github.com/users/o/followers",
		StripURITemplate("https://api.github.com/users/o/followers"))
}

func TestRateLimits_Limiting(t *testing.T) {
	reset := time.Unix(1700000000, 0)

	tests := []struct {
		name   string
		limits RateLimits
		want   string
	}{
		{"search exhausted", RateLimits{Search: Rate{Remaining: 0, Reset: reset}, Core: Rate{Remaining: 0}, GraphQL: Rate{Remaining: 5}}, CategorySearch},
		{"graphql exhausted", RateLimits{Search: Rate{Remaining: 3}, GraphQL: Rate{Remaining: 0, Reset: reset}, Core: Rate{Remaining: 7}}, CategoryGraphQL},
		{"falls back to core", RateLimits{Search: Rate{Remaining: 3}, GraphQL: Rate{Remaining: 4}, Core: Rate{Remaining: 0, Reset: reset}}, CategoryCore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rate := tt.limits.Limiting()
			assert.Equal(t, tt.want, got)
			assert.Equal(t, reset, rate.Reset)
		})
	}
}

func TestRunReport_Record(t *testing.T) {
	r := &RunReport{StartedAt: time.Unix(100, 0)}

	r.Record(ActionCloned, nil)
	r.Record(ActionUpdated, nil)
	r.Record(ActionUpdated, nil)
	r.Record(ActionSkipped, nil)
	r.Record(ActionFailed, ErrNotFound)

	assert.Equal(t, 1, r.Cloned)
	assert.Equal(t, 2, r.Updated)
	assert.Equal(t, 1, r.Skipped)
	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, []error{ErrNotFound}, r.Failures)
	assert.Zero(t, r.Duration())

	r.FinishedAt = time.Unix(160, 0)
	assert.Equal(t, time.Minute, r.Duration())
}
