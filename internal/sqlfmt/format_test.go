package sqlfmt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:  "simple select",
			input: "select a, b from t",
			expected: `SELECT
  a,
  b
FROM t
`,
		},
		{
			name:  "where with between and boolean operators",
			input: "select * from t where x between 1 and 10 and y = 'a' or z is null",
			expected: `SELECT
  *
FROM t
WHERE
  x BETWEEN 1 AND 10
  AND y = 'a'
  OR z IS NULL
`,
		},
		{
			name:  "left join",
			input: "select * from a left join b on a.id = b.id",
			expected: `SELECT
  *
FROM a
LEFT JOIN b
  ON a.id = b.id
`,
		},
		{
			name:  "cte",
			input: "WITH cte AS (SELECT a FROM t) SELECT * FROM cte",
			expected: `WITH
  cte AS (
    SELECT
      a
    FROM t
  )
SELECT
  *
FROM cte
`,
		},
		{
			name:  "subquery",
			input: "select id from t where id in (select id from u)",
			expected: `SELECT
  id
FROM t
WHERE
  id IN (
    SELECT
      id
    FROM u
  )
`,
		},
		{
			name:  "functions and placeholders",
			input: "select count(*), cast(x as int) from t where d = '{{day}}' and n > {{min}}",
			expected: `SELECT
  count(*),
  CAST(x AS int)
FROM t
WHERE
  d = '{{day}}'
  AND n > {{min}}
`,
		},
		{
			name:  "group order limit",
			input: "select a, count(*) from t group by a order by a desc limit 10",
			expected: `SELECT
  a,
  count(*)
FROM t
GROUP BY
  a
ORDER BY
  a DESC
LIMIT 10
`,
		},
		{
			name:  "union all",
			input: "select 1 union all select 2",
			expected: `SELECT
  1
UNION ALL
SELECT
  2
`,
		},
		{
			name:  "comments",
			input: "-- daily\nselect a -- first\nfrom t",
			expected: `-- daily
SELECT
  a -- first
FROM t
`,
		},
		{
			name:  "signs",
			input: "select -1, a - 2 from t",
			expected: `SELECT
  -1,
  a - 2
FROM t
`,
		},
		{
			name:  "keyword used as column",
			input: "select t.order from t",
			expected: `SELECT
  t.order
FROM t
`,
		},
		{
			name:     "comment only",
			input:    "-- Enter your SQL query here\n",
			expected: "-- Enter your SQL query here\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)

			again, err := Format(got)
			require.NoError(t, err)
			assert.Equal(t, got, again, "formatting is stable")
		})
	}
}

func TestFormat_Blank(t *testing.T) {
	got, err := Format("  \n")
	require.NoError(t, err)
	assert.Equal(t, "  \n", got)
}

func TestFormat_Errors(t *testing.T) {
	tests := []struct {
		input   string
		message string
		pos     Position
	}{
		{"select 'abc", ErrUnterminatedString, Position{1, 8}},
		{"select\n  'x", ErrUnterminatedString, Position{2, 3}},
		{`select "col`, ErrUnterminatedQuoted, Position{1, 8}},
		{"select (a", ErrUnclosedParen, Position{1, 8}},
		{"select a)", ErrUnexpectedParen, Position{1, 9}},
		{"/* x", ErrUnterminatedComment, Position{1, 1}},
		{"select {{x", ErrUnterminatedParam, Position{1, 8}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Format(tt.input)
			var ferr *Error
			require.True(t, errors.As(err, &ferr))
			assert.Equal(t, tt.message, ferr.Message)
			assert.Equal(t, tt.pos, ferr.Pos)
		})
	}
}

func TestFormat_EscapedQuotes(t *testing.T) {
	got, err := Format("select 'it''s' from t")
	require.NoError(t, err)
	assert.Equal(t, "SELECT\n  'it''s'\nFROM t\n", got)
}
