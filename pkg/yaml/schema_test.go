package yaml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchema(t *testing.T) {
	tests := []struct {
		in   string
		want Schema
	}{
		{"default_safe", DefaultSafe},
		{"DEFAULT_SAFE_SCHEMA", DefaultSafe},
		{"default_safe_schema", DefaultSafe},
		{"default-full", DefaultFull},
		{"DEFAULT_FULL_SCHEMA", DefaultFull},
		{"Core", Core},
		{"CORE_SCHEMA", Core},
		{"json", JSON},
		{"JSON_SCHEMA", JSON},
		{" failsafe ", Failsafe},
		{"FAILSAFE_SCHEMA", Failsafe},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseSchema(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseSchemaUnknown(t *testing.T) {
	_, err := ParseSchema("yaml_1_1")
	var unknown *UnknownSchemaError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "yaml_1_1", unknown.Name)
	assert.Contains(t, err.Error(), `schema "yaml_1_1" is not valid`)
	assert.Contains(t, err.Error(), "default_safe, default_full, core, json, failsafe")
}

func TestSelectSchema(t *testing.T) {
	s, err := SelectSchema("", true)
	require.NoError(t, err)
	assert.Equal(t, DefaultSafe, s)

	s, err = SelectSchema("", false)
	require.NoError(t, err)
	assert.Equal(t, DefaultFull, s)

	s, err = SelectSchema("json", false)
	require.NoError(t, err)
	assert.Equal(t, JSON, s)

	_, err = SelectSchema("nope", true)
	assert.Error(t, err)
}

func TestSchemaTags(t *testing.T) {
	assert.Equal(t, []string{"!!str", "!!seq", "!!map"}, Failsafe.Tags())
	assert.Equal(t, JSON.Tags(), Core.Tags())
	assert.NotContains(t, DefaultSafe.Tags(), "!!js/function")
	assert.Contains(t, DefaultFull.Tags(), "!!js/function")
	assert.Subset(t, DefaultFull.Tags(), DefaultSafe.Tags())

	for _, s := range Schemas() {
		assert.Equal(t, s != DefaultFull, s.Safe(), s.String())
	}
	assert.Equal(t, "Schema(42)", Schema(42).String())
}

func TestImplicitResolution(t *testing.T) {
	tests := []struct {
		value  string
		schema Schema
		want   string
	}{
		{"hello", DefaultSafe, tagStr},
		{"null", JSON, tagNull},
		{"~", JSON, tagNull},
		{"", JSON, tagNull},
		{"~", Core, tagNull},
		{"", Core, tagNull},
		{"NULL", DefaultSafe, tagNull},
		{"True", JSON, tagBool},
		{"True", Core, tagBool},
		{"yes", DefaultSafe, tagStr},
		{"42", JSON, tagInt},
		{"-42", Core, tagInt},
		{"+42", JSON, tagInt},
		{"0x1F", JSON, tagInt},
		{"0x1F", Core, tagInt},
		{"0o17", Core, tagInt},
		{"0b101", Core, tagStr},
		{"0b101", DefaultSafe, tagInt},
		{"1_000", DefaultSafe, tagInt},
		{"1_000_", DefaultSafe, tagStr},
		{"190:20:30", DefaultSafe, tagInt},
		{"1.5", JSON, tagFloat},
		{"1e3", JSON, tagFloat},
		{".5", JSON, tagFloat},
		{".5", Core, tagFloat},
		{".inf", Core, tagFloat},
		{"-.Inf", DefaultSafe, tagFloat},
		{".NaN", Core, tagFloat},
		{"2001-12-14", DefaultSafe, tagTimestamp},
		{"2001-12-14", Core, tagStr},
		{"2001-12-14t21:59:43.10-05:00", DefaultFull, tagTimestamp},
		{"<<", DefaultSafe, tagStr},
		{"42", Failsafe, tagStr},
		{"true", Failsafe, tagStr},
	}
	for _, tc := range tests {
		t.Run(tc.schema.String()+"/"+tc.value, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.schema.resolve(tc.value).tag)
		})
	}
}
