package validate

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSchema_Apply(t *testing.T) {
	t.Parallel()

	schema := New(
		NewField("email", Required(), Email()),
		NewField("password", Required(), MinLen(8)),
		NewField("name", Required(), IsString()),
	)

	t.Run("passes valid input", func(t *testing.T) {
		errs := schema.Apply(map[string]any{
			"email":    "a@b.com",
			"password": "Abcdef1!",
			"name":     "The User",
		})
		require.Empty(t, errs)
	})

	t.Run("aggregates independent failures", func(t *testing.T) {
		errs := schema.Apply(map[string]any{
			"email":    "not-an-email",
			"password": "short",
			"name":     "ok",
		})
		require.Len(t, errs, 2)
		require.Equal(t, "email", errs[0].Field)
		require.Equal(t, "password", errs[1].Field)
	})

	t.Run("missing required fields all reported", func(t *testing.T) {
		errs := schema.Apply(map[string]any{})
		require.Len(t, errs, 3)
	})

	t.Run("one message per field", func(t *testing.T) {
		// Empty string fails Required; Email must not add a second error.
		errs := schema.Apply(map[string]any{
			"email":    "",
			"password": "Abcdef1!",
			"name":     "ok",
		})
		require.Len(t, errs, 1)
		require.Equal(t, "email", errs[0].Field)
		require.Equal(t, "is required", errs[0].Message)
	})
}

func TestRules(t *testing.T) {
	t.Parallel()

	t.Run("optional fields skip when absent", func(t *testing.T) {
		schema := New(NewField("age", IsNumber()))
		require.Empty(t, schema.Apply(map[string]any{}))
	})

	t.Run("number accepts json and string forms", func(t *testing.T) {
		rule := IsNumber()
		require.Empty(t, rule(float64(3), true))
		require.Empty(t, rule("42", true))
		require.Empty(t, rule("-1.5", true))
		require.NotEmpty(t, rule("12abc", true))
		require.NotEmpty(t, rule(true, true))
	})

	t.Run("min and max length", func(t *testing.T) {
		require.NotEmpty(t, MinLen(3)("ab", true))
		require.Empty(t, MinLen(3)("abc", true))
		require.NotEmpty(t, MaxLen(3)("abcd", true))
	})

	t.Run("match", func(t *testing.T) {
		rule := Match(regexp.MustCompile(`^[a-z]+$`), "must be lowercase")
		require.Empty(t, rule("abc", true))
		require.Equal(t, "must be lowercase", rule("ABC", true))
	})

	t.Run("field names", func(t *testing.T) {
		schema := New(NewField("userId"), NewField("page"))
		require.Equal(t, []string{"userId", "page"}, schema.FieldNames())
	})
}
