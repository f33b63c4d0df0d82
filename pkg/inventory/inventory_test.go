package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVisibility(t *testing.T) {
	tests := []struct {
		in      string
		want    Visibility
		wantErr bool
	}{
		{"public", VisibilityPublic, false},
		{" Private ", VisibilityPrivate, false},
		{"INTERNAL", VisibilityInternal, false},
		{"", "", true},
		{"secret", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVisibility(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.True(t, VisibilityPublic.IsPublic())
	assert.False(t, VisibilityInternal.IsPublic())
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"production", StatusProduction, false},
		{"Archived", StatusArchived, false},
		{"maintained", StatusMaintenance, false},
		{"maintenance", StatusMaintenance, false},
		{"deprecated", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRealID(t *testing.T) {
	raw := RawRepository{Host: "github", Organization: "CDCgov", Name: "PRIME"}
	assert.Equal(t, "github/cdcgov/prime", raw.RealID())
	assert.Equal(t, "CDCgov/PRIME", raw.FullName())

	raw.Host = ""
	assert.Equal(t, "unknown/cdcgov/prime", raw.RealID())
}

func TestNormalizeURL(t *testing.T) {
	want := "github.com/cdcgov/prime"
	for _, in := range []string{
		"https://github.com/CDCgov/prime",
		"https://github.com/cdcgov/prime/",
		"http://github.com/cdcgov/prime.git",
		" github.com/cdcgov/prime ",
	} {
		assert.Equal(t, want, NormalizeURL(in), in)
	}
}

func TestCloneIsDeep(t *testing.T) {
	license := "MIT"
	code := ExemptionCode("exemptByLaw")
	rec := CanonicalRecord{
		Name:      "repo",
		Languages: []string{"Go"},
		Tags:      []string{"a"},
		Permissions: Permissions{
			License:   &license,
			Exemption: &code,
		},
	}

	c := rec.Clone()
	c.Languages[0] = "Python"
	c.Tags = append(c.Tags, "b")
	*c.Permissions.License = "Apache-2.0"
	*c.Permissions.Exemption = "exemptByCIO"

	assert.Equal(t, []string{"Go"}, rec.Languages)
	assert.Equal(t, []string{"a"}, rec.Tags)
	assert.Equal(t, "MIT", *rec.Permissions.License)
	assert.Equal(t, ExemptionCode("exemptByLaw"), *rec.Permissions.Exemption)
	assert.Nil(t, c.Permissions.Justification)
}

func TestRecordPredicates(t *testing.T) {
	rec := &CanonicalRecord{Visibility: VisibilityInternal}
	assert.True(t, rec.IsWithheld())
	assert.False(t, rec.HasExemption())

	code := ExemptionCode("exemptByCIO")
	rec.Permissions.Exemption = &code
	assert.True(t, rec.HasExemption())

	rec.Visibility = VisibilityPublic
	assert.False(t, rec.IsWithheld())
}
