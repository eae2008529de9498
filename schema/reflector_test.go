package schema

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupRequest struct {
	Email string `json:"email" validate:"email"`
	Name  string `json:"name" validate:"min=2,max=20"`
	Bio   string `json:"bio" required:"false"`
}

func TestValidateRequiredField(t *testing.T) {
	r := &Reflector{}
	res := r.Validate(reflect.TypeOf(signupRequest{}), []byte(`{"name":"Ada"}`))
	require.True(t, res.IsErr())
	ve, ok := res.Error().(*ValidationError)
	require.True(t, ok)
	require.Len(t, ve.Issues, 1)
	assert.Equal(t, "email", ve.Issues[0].DottedField())
}

func TestValidateSucceeds(t *testing.T) {
	r := &Reflector{}
	res := r.Validate(reflect.TypeOf(signupRequest{}), []byte(`{"email":"a@b.com","name":"Ada"}`))
	require.True(t, res.IsOk())
	v := res.Value().(signupRequest)
	assert.Equal(t, "a@b.com", v.Email)
}

func TestValidateRules(t *testing.T) {
	r := &Reflector{}
	res := r.Validate(reflect.TypeOf(signupRequest{}), []byte(`{"email":"bad-email","name":"A"}`))
	require.True(t, res.IsErr())
	ve := res.Error().(*ValidationError)
	assert.Len(t, ve.Issues, 2)
}

func TestOptionalFieldNotRequired(t *testing.T) {
	r := &Reflector{}
	res := r.Validate(reflect.TypeOf(signupRequest{}), []byte(`{"email":"a@b.com","name":"Ada","bio":""}`))
	assert.True(t, res.IsOk())
}
