package booking

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	pre := fmt.Errorf("request visit: %w", Precondition("visit for %s already open", "p1"))
	assert.True(t, IsPrecondition(pre))
	assert.False(t, IsInvalidTransition(pre))
	assert.Contains(t, pre.Error(), "visit for p1 already open")

	inv := fmt.Errorf("respond: %w", &InvalidTransitionError{Entity: "visit", ID: "v1", From: "CANCELLED", To: "CONFIRMED"})
	assert.True(t, IsInvalidTransition(inv))
	assert.False(t, IsPrecondition(inv))

	_, ok := AsValidation(inv)
	assert.False(t, ok)
}

func TestValidationError(t *testing.T) {
	var nilErr *ValidationError
	assert.NoError(t, nilErr.OrNil())

	verr := &ValidationError{}
	assert.NoError(t, verr.OrNil())

	verr.Add("occupants", "occupancy", "at most 3 occupants allowed")
	verr.Add("monthlyIncome", "income_ratio", "too low")
	err := verr.OrNil()
	assert.Error(t, err)
	assert.True(t, verr.HasRule("income_ratio"))
	assert.False(t, verr.HasRule("date_order"))

	got, ok := AsValidation(fmt.Errorf("submit: %w", err))
	assert.True(t, ok)
	assert.Len(t, got.Fields, 2)
	assert.Equal(t, "validation failed: occupants: at most 3 occupants allowed; monthlyIncome: too low", err.Error())
}

func TestActor(t *testing.T) {
	assert.Equal(t, "system", System.ActorString())
	assert.True(t, System.IsSystem())

	u := Actor{UserID: "tenant-1"}
	assert.Equal(t, "user:tenant-1", u.ActorString())
	assert.False(t, u.IsSystem())
}
