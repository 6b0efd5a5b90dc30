package model

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateValidate_BlankCode(t *testing.T) {
	s := &State{Name: "California", Code: "  ", CountryID: "c1"}
	s.Normalize()

	err := s.Validate()
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.Contains(t, err.Error(), "state code")
}

func TestStateValidate_BlankName(t *testing.T) {
	s := &State{Name: "", Code: "ca", CountryID: "c1"}
	s.Normalize()

	err := s.Validate()
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestStateNormalize_UppercasesCode(t *testing.T) {
	s := &State{Name: " California ", Code: " ca ", CountryID: "c1"}
	s.Normalize()

	assert.Equal(t, "CA", s.Code)
	assert.Equal(t, "California", s.Name)
	require.NoError(t, s.Validate())
}

func TestAddressNormalize_RouteSync(t *testing.T) {
	a := &Address{StreetName: "Main", Raw: "123 Main St"}
	a.Normalize()
	assert.Equal(t, "Main", a.Route)

	b := &Address{Route: "Elm", Raw: "9 Elm"}
	b.Normalize()
	assert.Equal(t, "Elm", b.StreetName)

	c := &Address{StreetName: "Oak", Route: "Oak Street", Raw: "x"}
	c.Normalize()
	assert.Equal(t, "Oak", c.StreetName)
	assert.Equal(t, "Oak Street", c.Route)
}

func TestAddressNormalize_DirectionUpper(t *testing.T) {
	a := &Address{StreetDirection: " nw ", Raw: "x"}
	a.Normalize()
	assert.Equal(t, "NW", a.StreetDirection)
}

func TestAddressNormalize_DetectsPOBox(t *testing.T) {
	a := &Address{Raw: "PO Box 42, Springfield, IL"}
	a.Normalize()
	assert.True(t, a.IsPOBox)

	b := &Address{Raw: "Post Office Box 7, Reno, NV"}
	b.Normalize()
	assert.True(t, b.IsPOBox)

	c := &Address{Raw: "123 Main St", StreetName: "Main"}
	c.Normalize()
	assert.False(t, c.IsPOBox)
}

func TestAddressValidate_BlankRaw(t *testing.T) {
	a := &Address{}
	a.Normalize()

	err := a.Validate()
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestIsValidation_Wrapped(t *testing.T) {
	err := eris.Wrap(NewValidationError("state.code", "blank"), "resolve location")
	assert.True(t, IsValidation(err))
	assert.False(t, IsValidation(eris.New("other")))
}

func TestAddressLabel(t *testing.T) {
	a := &Address{
		StreetNumber: "1600",
		StreetName:   "Amphitheatre",
		StreetType:   "Parkway",
		Raw:          "1600 Amphitheatre Pkwy",
	}
	assert.Equal(t, "1600 Amphitheatre Parkway", a.Label())

	a.Formatted = "1600 Amphitheatre Pkwy, Mountain View, CA 94043, USA"
	assert.Equal(t, a.Formatted, a.Label())

	empty := &Address{Raw: "whatever"}
	assert.Equal(t, "whatever", empty.Label())
}
