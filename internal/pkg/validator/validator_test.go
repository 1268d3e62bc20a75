package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"\t\n", true},
		{"E001", false},
		{" E001 ", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, IsEmpty(c.input), "IsEmpty(%q)", c.input)
	}
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2024-02-29", "2000-12-31"}
	invalid := []string{"2023-02-29", "2023-13-01", "2023-01-32", "2023/01/01", "01-01-2023", "2024-03-01T00:00:00Z", ""}

	for _, s := range valid {
		_, ok := IsValidDate(s)
		assert.True(t, ok, "IsValidDate(%q)", s)
	}
	for _, s := range invalid {
		_, ok := IsValidDate(s)
		assert.False(t, ok, "IsValidDate(%q)", s)
	}

	d, _ := IsValidDate("2024-03-01")
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), d)
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "start_date", Message: "start_date is required"},
		{Field: "total_days", Message: "total_days must be greater than 0"},
	}
	assert.Equal(t, "start_date: start_date is required; total_days: total_days must be greater than 0", errs.Error())
}

func TestValidationErrors_ToMap(t *testing.T) {
	errs := ValidationErrors{
		{Field: "from", Message: "from is required"},
		{Field: "to", Message: "to must be in YYYY-MM-DD format"},
	}
	assert.Equal(t, map[string]string{
		"from": "from is required",
		"to":   "to must be in YYYY-MM-DD format",
	}, errs.ToMap())
}

func TestValidationErrors_HasCode(t *testing.T) {
	missing := ValidationErrors{
		{Field: "to", Message: "to must be in YYYY-MM-DD format"},
		Required("from"),
	}
	assert.True(t, missing.HasCode(CodeRequired))
	assert.Equal(t, "from is required", missing.ToMap()["from"])

	// classification does not depend on wording
	reworded := ValidationErrors{{Field: "from", Message: "please provide from", Code: CodeRequired}}
	assert.True(t, reworded.HasCode(CodeRequired))

	format := ValidationErrors{{Field: "to", Message: "to is required to be a date"}}
	assert.False(t, format.HasCode(CodeRequired))
}
