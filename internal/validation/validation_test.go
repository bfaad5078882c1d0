package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkRequest struct {
	UserID int64  `validate:"required,gt=0"`
	Color  string `validate:"omitempty,hexcolor"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(&checkRequest{UserID: 1}))
	assert.NoError(t, ValidateStruct(&checkRequest{UserID: 1, Color: "#FFAA00"}))
	assert.NoError(t, ValidateStruct(nil))
	assert.NoError(t, ValidateStruct((*checkRequest)(nil)))

	err := ValidateStruct(&checkRequest{Color: "red"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'UserID' failed validation: required")
	assert.Contains(t, err.Error(), "field 'Color' failed validation: hexcolor")

	assert.Error(t, ValidateStruct("not a struct"))
}
