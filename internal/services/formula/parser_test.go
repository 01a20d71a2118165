package formula

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrecedence(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"a + b", "(a + b)"},
		{"a + b * c", "(a + (b * c))"},
		{"a - b - c", "((a - b) - c)"},
		{"a / b / c", "((a / b) / c)"},
		{"(a + b) * c", "((a + b) * c)"},
		{"-a ** 2", "(-(a ** 2))"},
		{"2 ** 3 ** 2", "(2 ** (3 ** 2))"},
		{"2 ** -1", "(2 ** (-1))"},
		{"--a", "(-(-a))"},
		{"a * -b", "(a * (-b))"},
		{"abs(a - b) + avg(c)", "(abs((a - b)) + avg(c))"},
		{"sqrt(a**2 + b**2)", "sqrt(((a ** 2) + (b ** 2)))"},
		{"1.5e3 * a", "(1500 * a)"},
		{".5 + a", "(0.5 + a)"},
		{" a\t+\n1 ", "(a + 1)"},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			e, err := Parse(tc.src, []string{"a", "b", "c"})
			require.NoError(t, err)
			assert.Equal(t, tc.want, e.String())
			assert.Equal(t, tc.src, e.Source())
		})
	}
}

func TestParseChannelRefs(t *testing.T) {
	e, err := Parse("b + a * b", []string{"a", "b", "unused"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, e.Channels())

	e, err = Parse("2 * 3", []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, e.Channels())
}

func TestParseHyphenAlias(t *testing.T) {
	e, err := Parse("temp_1 - temp_2", []string{"temp-1", "temp_2"})
	require.NoError(t, err)
	assert.Equal(t, "(temp-1 - temp_2)", e.String())
	assert.Equal(t, []string{"temp-1", "temp_2"}, e.Channels())

	// Exact id wins over an alias that collides with it.
	e, err = Parse("a_b", []string{"a-b", "a_b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a_b"}, e.Channels())

	_, err = Parse("a_b_c", []string{"a-b_c", "a_b-c"})
	var ife *InvalidFormulaError
	require.ErrorAs(t, err, &ife)
	assert.Equal(t, "a_b_c", ife.Token)
	assert.Contains(t, ife.Reason, "more than one")
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		name  string
		src   string
		token string
		pos   int
	}{
		{"unknown identifier", "c + a", "c", 0},
		{"attribute access", "a.b", ".", 1},
		{"indexing", "a[0]", "[", 1},
		{"assignment", "a = 1", "=", 2},
		{"statements", "a; b", ";", 1},
		{"string literal", "'x'", "'", 0},
		{"keyword", "lambda", "lambda", 0},
		{"unknown function", "exp(a)", "exp", 0},
		{"dunder call", "__import__(a)", "__import__", 0},
		{"two args", "abs(a, b)", "abs", 0},
		{"no args", "sum()", "sum", 0},
		{"reduction over constant", "avg(1 + 2)", "avg", 0},
		{"bare function", "max + a", "max", 0},
		{"unary plus", "+a", "+", 0},
		{"juxtaposition", "a b", "b", 2},
		{"floor division", "a // b", "//", 2},
		{"malformed number", "2a", "2a", 0},
		{"double dot", "3.5.1", "3.5.1", 0},
		{"dangling exponent", "1e + a", "1e", 0},
		{"stray paren", "a)", ")", 1},
		{"non-ascii", "a × b", "×", 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := Parse(tc.src, []string{"a", "b"})
			require.Nil(t, e)
			var ife *InvalidFormulaError
			require.ErrorAs(t, err, &ife)
			assert.Equal(t, tc.token, ife.Token)
			assert.Equal(t, tc.pos, ife.Pos)
		})
	}
}

func TestParseRejectsWithoutToken(t *testing.T) {
	cases := map[string]string{
		"empty":            "",
		"blank":            "   ",
		"trailing op":      "a +",
		"unclosed paren":   "(a + b",
		"unclosed call":    "abs(a",
		"only minus":       "-",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(src, []string{"a", "b"})
			var ife *InvalidFormulaError
			require.ErrorAs(t, err, &ife)
			assert.Empty(t, ife.Token)
			assert.True(t, strings.HasPrefix(err.Error(), "invalid formula: "))
		})
	}
}

func TestParseLimits(t *testing.T) {
	long := strings.Repeat("a+", DefaultMaxLength/2) + "a"
	_, err := Parse(long, []string{"a"})
	var ife *InvalidFormulaError
	require.ErrorAs(t, err, &ife)
	assert.Contains(t, ife.Reason, "exceeds")

	_, err = Parse("a + a + a", []string{"a"}, WithMaxLength(5))
	require.ErrorAs(t, err, &ife)

	_, err = Parse("a + a + a", []string{"a"}, WithMaxLength(0))
	require.NoError(t, err)

	deep := strings.Repeat("(", maxDepth+1) + "a" + strings.Repeat(")", maxDepth+1)
	_, err = Parse(deep, []string{"a"})
	require.ErrorAs(t, err, &ife)
	assert.Contains(t, ife.Reason, "nested")

	ok := strings.Repeat("(", maxDepth) + "a" + strings.Repeat(")", maxDepth)
	_, err = Parse(ok, []string{"a"})
	require.NoError(t, err)

	negs := strings.Repeat("-", maxDepth+1) + "a"
	_, err = Parse(negs, []string{"a"})
	require.ErrorAs(t, err, &ife)
}

func TestInvalidFormulaErrorMessage(t *testing.T) {
	err := error(invalid("c", 4, "unknown identifier"))
	assert.Equal(t, `invalid formula: unknown identifier (token "c" at position 4)`, err.Error())

	err = invalid("c", -1, "unknown identifier")
	assert.Equal(t, `invalid formula: unknown identifier (token "c")`, err.Error())

	err = invalid("", -1, "formula is empty")
	assert.Equal(t, "invalid formula: formula is empty", err.Error())

	var ife *InvalidFormulaError
	assert.True(t, errors.As(err, &ife))
}

func TestFunctions(t *testing.T) {
	assert.Equal(t, []string{"abs", "avg", "cos", "max", "min", "sin", "sqrt", "sum"}, Functions())
}
