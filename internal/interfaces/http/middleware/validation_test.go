package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pickPayload struct {
	Quantity decimal.Decimal  `json:"quantity" binding:"decimal_gt0"`
	Ceiling  *decimal.Decimal `json:"ceiling" binding:"omitempty,decimal_gt0"`
	Unit     string           `json:"unit" binding:"required,max=5"`
	Lines    []pickLine       `json:"lines" binding:"omitempty,dive"`
}

type pickLine struct {
	Quantity decimal.Decimal `json:"quantity" binding:"decimal_gt0"`
}

func bindPick(t *testing.T, body string) error {
	t.Helper()
	SetupValidator()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	var p pickPayload
	return c.ShouldBindJSON(&p)
}

func TestSetupValidator_DecimalGT0(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		valid bool
	}{
		{"positive string", `{"quantity":"12.5","unit":"kg"}`, true},
		{"positive number", `{"quantity":3,"unit":"kg"}`, true},
		{"zero", `{"quantity":"0","unit":"kg"}`, false},
		{"negative", `{"quantity":"-1","unit":"kg"}`, false},
		{"missing", `{"unit":"kg"}`, false},
		{"nil optional", `{"quantity":"1","unit":"kg","ceiling":null}`, true},
		{"zero optional", `{"quantity":"1","unit":"kg","ceiling":"0"}`, false},
		{"nested zero", `{"quantity":"1","unit":"kg","lines":[{"quantity":"0"}]}`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := bindPick(t, tt.body)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidationDetails(t *testing.T) {
	err := bindPick(t, `{"quantity":"0","unit":"kilograms","lines":[{"quantity":"-2"}]}`)
	require.Error(t, err)

	details, ok := ValidationDetails(err)
	require.True(t, ok)
	require.Len(t, details, 3)

	byField := map[string]string{}
	for _, d := range details {
		byField[d.Field] = d.Tag
	}
	assert.Equal(t, TagDecimalGT0, byField["quantity"])
	assert.Equal(t, "max", byField["unit"])
	assert.Equal(t, TagDecimalGT0, byField["lines[0].quantity"])
}

func TestValidationDetails_MalformedJSON(t *testing.T) {
	err := bindPick(t, `{"quantity":`)
	require.Error(t, err)

	_, ok := ValidationDetails(err)
	assert.False(t, ok)
}
