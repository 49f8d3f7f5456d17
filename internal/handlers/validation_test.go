package handlers

import (
	"errors"
	"testing"

	"github.com/BradenHooton/usermanager/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRequest_ReportsEveryFieldByJSONName(t *testing.T) {
	err := ValidateRequest(RegisterRequest{Email: "nope", Password: "123"})

	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))

	got := map[string]string{}
	for _, f := range verr.Fields {
		got[f.Field] = f.Message
	}
	assert.Equal(t, map[string]string{
		"email":     "must be a valid email address",
		"firstName": "this field is required",
		"lastName":  "this field is required",
		"password":  "must have a minimum of 6 characters",
	}, got)
}

func TestValidateRequest_Valid(t *testing.T) {
	assert.NoError(t, ValidateRequest(LoginRequest{UserName: "a@example.com", Password: "x"}))
	assert.NoError(t, ValidateRequest(MemberAddEditRequest{UserName: "a", FirstName: "b", LastName: "c"}))
}
