package ai

import (
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = &Schema{
	Type: TypeObject,
	Properties: map[string]*Schema{
		"condition":   {Type: TypeString},
		"confidence":  {Type: TypeInteger},
		"isEmergency": {Type: TypeBoolean},
		"alerts":      {Type: TypeArray, Items: &Schema{Type: TypeString}},
		"level":       {Type: TypeString, Enum: []string{"LOW", "HIGH"}},
		"cost":        {Type: TypeObject, Properties: map[string]*Schema{"min": {Type: TypeNumber}}, Required: []string{"min"}},
	},
	Required: []string{"condition", "confidence", "isEmergency"},
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json{\"a\":1}```  \n", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

func TestParseStructured_Valid(t *testing.T) {
	raw := "```json\n" + `{"condition":"Tinea corporis","confidence":82,"isEmergency":false,"alerts":["spreading"],"level":"LOW","extra":"kept"}` + "\n```"

	obj, err := ParseStructured(raw, testSchema)
	require.NoError(t, err)

	condition, ok := obj.Text("condition")
	assert.True(t, ok)
	assert.Equal(t, "Tinea corporis", condition)

	confidence, ok := obj.Int("confidence")
	assert.True(t, ok)
	assert.Equal(t, 82, confidence)

	emergency, ok := obj.Bool("isEmergency")
	assert.True(t, ok)
	assert.False(t, emergency)

	alerts, ok := obj.Strings("alerts")
	assert.True(t, ok)
	assert.Equal(t, []string{"spreading"}, alerts)

	assert.Equal(t, "kept", obj["extra"])
}

func TestParseStructured_Errors(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{"empty", "", ""},
		{"not json", "I think it is eczema", ""},
		{"truncated", `{"condition":"x",`, ""},
		{"array root", `[1,2,3]`, ""},
		{"trailing garbage", `{"condition":"x","confidence":1,"isEmergency":true} and more`, ""},
		{"missing required", `{"condition":"x","isEmergency":true}`, "confidence"},
		{"null required", `{"condition":null,"confidence":1,"isEmergency":true}`, "condition"},
		{"wrong type", `{"condition":"x","confidence":true,"isEmergency":true}`, "confidence"},
		{"fractional integer", `{"condition":"x","confidence":8.5,"isEmergency":true}`, "confidence"},
		{"bad enum", `{"condition":"x","confidence":1,"isEmergency":true,"level":"MEDIUM"}`, "level"},
		{"bad array item", `{"condition":"x","confidence":1,"isEmergency":true,"alerts":[1]}`, "alerts[0]"},
		{"nested required", `{"condition":"x","confidence":1,"isEmergency":true,"cost":{}}`, "cost.min"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := ParseStructured(tt.raw, testSchema)
			assert.Nil(t, obj)
			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, tt.field, parseErr.Field)
		})
	}
}

func TestParseStructured_NumericStringsAccepted(t *testing.T) {
	obj, err := ParseStructured(`{"condition":"x","confidence":"85%","isEmergency":false}`, testSchema)
	require.NoError(t, err)

	confidence, ok := obj.Int("confidence")
	assert.True(t, ok)
	assert.Equal(t, 85, confidence)
}

func TestParseStructured_IntegralFloat(t *testing.T) {
	obj, err := ParseStructured(`{"condition":"x","confidence":85.0,"isEmergency":false}`, testSchema)
	require.NoError(t, err)
	assert.Equal(t, json.Number("85"), obj["confidence"])
}

func TestParseStructured_HugeIntegersSaturate(t *testing.T) {
	obj, err := ParseStructured(`{"condition":"x","confidence":1e20,"isEmergency":false}`, testSchema)
	require.NoError(t, err)
	assert.Equal(t, json.Number("9223372036854775807"), obj["confidence"])

	obj, err = ParseStructured(`{"condition":"x","confidence":-1e20,"isEmergency":false}`, testSchema)
	require.NoError(t, err)
	assert.Equal(t, json.Number("-9223372036854775808"), obj["confidence"])
}

func TestObjectInt_Saturates(t *testing.T) {
	obj := Object{"big": json.Number("1e20"), "small": json.Number("-1e20"), "frac": json.Number("41.6")}

	v, ok := obj.Int("big")
	require.True(t, ok)
	assert.Positive(t, v)

	v, ok = obj.Int("small")
	require.True(t, ok)
	assert.Negative(t, v)

	v, ok = obj.Int("frac")
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestObjectAccessors_Missing(t *testing.T) {
	obj := Object{"blank": "   ", "n": nil}

	_, ok := obj.Text("blank")
	assert.False(t, ok)
	_, ok = obj.Text("absent")
	assert.False(t, ok)
	_, ok = obj.Int("n")
	assert.False(t, ok)
	_, ok = obj.Strings("absent")
	assert.False(t, ok)
	_, ok = obj.Objects("absent")
	assert.False(t, ok)
}

// Property: arbitrary text never panics the parser; it either parses or returns a ParseError.
func TestParseStructured_NeverPanicsProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("garbage input yields ParseError", prop.ForAll(
		func(raw string) bool {
			obj, err := ParseStructured(raw, testSchema)
			if err == nil {
				return obj != nil
			}
			_, isParse := err.(*ParseError)
			return isParse && obj == nil
		},
		gen.AnyString(),
	))

	properties.Property("valid objects always parse", prop.ForAll(
		func(condition string, confidence int, emergency bool) bool {
			data, _ := json.Marshal(map[string]any{
				"condition":   condition,
				"confidence":  confidence,
				"isEmergency": emergency,
			})
			obj, err := ParseStructured(string(data), testSchema)
			if err != nil {
				return false
			}
			got, _ := obj.Int("confidence")
			b, _ := obj.Bool("isEmergency")
			return got == confidence && b == emergency
		},
		gen.AlphaString(),
		gen.IntRange(-1000, 1000),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
