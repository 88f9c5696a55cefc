package reservation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/rental-hub/rental-hub/internal/domain/property"
)

func testProperty() *property.Property {
	return &property.Property{
		PropertyID:   uuid.New(),
		OwnerID:      "owner-1",
		Status:       property.StatusAvailable,
		MaxOccupants: 3,
		MonthlyRent:  1000,
	}
}

func validInput(p *property.Property) Input {
	return Input{
		PropertyID:    p.PropertyID,
		StartDate:     "2024-02-01",
		EndDate:       "2025-01-31",
		Occupants:     2,
		MonthlyIncome: 2 * p.MonthlyRent,
	}
}

func TestValidate(t *testing.T) {
	p := testProperty()

	tests := []struct {
		name  string
		edit  func(in *Input)
		rules []string
	}{
		{name: "valid", edit: func(in *Input) {}},
		{name: "bad start date", edit: func(in *Input) { in.StartDate = "02/01/2024" }, rules: []string{RuleDateFormat}},
		{name: "end before start", edit: func(in *Input) { in.EndDate = "2024-01-01" }, rules: []string{RuleDateOrder}},
		{name: "end equals start", edit: func(in *Input) { in.EndDate = in.StartDate }, rules: []string{RuleDateOrder}},
		{name: "no occupants", edit: func(in *Input) { in.Occupants = 0 }, rules: []string{RuleOccupants}},
		{name: "over capacity", edit: func(in *Input) { in.Occupants = 4 }, rules: []string{RuleOccupancy}},
		{name: "at capacity", edit: func(in *Input) { in.Occupants = 3 }},
		{name: "income one below", edit: func(in *Input) { in.MonthlyIncome = 1999 }, rules: []string{RuleIncome}},
		{
			name:  "several violations",
			edit:  func(in *Input) { in.Occupants = 10; in.MonthlyIncome = 0; in.EndDate = "bad" },
			rules: []string{RuleOccupancy, RuleIncome, RuleDateFormat},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput(p)
			tt.edit(&in)
			verr := Validate(in, p)
			require.Len(t, verr.Fields, len(tt.rules), "%v", verr.Fields)
			for _, rule := range tt.rules {
				assert.True(t, verr.HasRule(rule), "missing rule %s", rule)
			}
			if len(tt.rules) == 0 {
				assert.NoError(t, verr.OrNil())
			}
		})
	}
}

func TestValidate_IncomeBoundary(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := testProperty()
		p.MonthlyRent = rapid.Int64Range(1, 1_000_000).Draw(t, "rent")
		in := validInput(p)
		in.MonthlyIncome = rapid.Int64Range(0, 3_000_000).Draw(t, "income")

		verr := Validate(in, p)
		want := in.MonthlyIncome < IncomeToRentRatio*p.MonthlyRent
		if got := verr.HasRule(RuleIncome); got != want {
			t.Fatalf("income %d rent %d: income violation %v, want %v", in.MonthlyIncome, p.MonthlyRent, got, want)
		}
	})
}

func TestValidate_Occupancy(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := testProperty()
		p.MaxOccupants = rapid.IntRange(1, 12).Draw(t, "max")
		in := validInput(p)
		in.Occupants = rapid.IntRange(1, 20).Draw(t, "occupants")

		verr := Validate(in, p)
		if got, want := verr.HasRule(RuleOccupancy), in.Occupants > p.MaxOccupants; got != want {
			t.Fatalf("occupants %d max %d: violation %v, want %v", in.Occupants, p.MaxOccupants, got, want)
		}
	})
}

func TestEvaluateEligibility(t *testing.T) {
	p := testProperty()
	in := validInput(p)

	ok, err := EvaluateEligibility("", in, p)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = EvaluateEligibility("monthlyIncome >= 3 * monthlyRent || hasGuarantor", in, p)
	require.NoError(t, err)
	assert.False(t, ok)

	in.HasGuarantor = true
	ok, err = EvaluateEligibility("monthlyIncome >= 3 * monthlyRent || hasGuarantor", in, p)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = EvaluateEligibility("occupants + 1", in, p)
	assert.Error(t, err)

	p.EligibilityRule = "occupants <= (("
	verr := Validate(in, p)
	assert.True(t, verr.HasRule(RuleEligibility))
}

func TestReservation_Transitions(t *testing.T) {
	all := []Status{StatusDraft, StatusPending, StatusAccepted, StatusRefused, StatusContractGenerated, StatusContractSigned}
	legal := map[Status]Status{
		StatusDraft:             StatusPending,
		StatusAccepted:          StatusContractGenerated,
		StatusContractGenerated: StatusContractSigned,
	}
	for _, from := range all {
		for _, to := range all {
			r := &Reservation{Status: from}
			want := legal[from] == to
			if from == StatusPending {
				want = to == StatusAccepted || to == StatusRefused
			}
			assert.Equal(t, want, r.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestReservation_Lifecycle(t *testing.T) {
	p := testProperty()
	now := time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC)
	visitID := uuid.New()
	r := New(validInput(p), "tenant-1", p, &visitID, now)

	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, "owner-1", r.LandlordID)
	assert.Equal(t, p.MonthlyRent, r.MonthlyRent)
	assert.True(t, r.IsOpen())

	assert.ErrorIs(t, r.MarkContractGenerated(now), ErrInvalidTransition)
	require.NoError(t, r.Decide(DecisionAccept, nil, now))
	require.NotNil(t, r.DecidedAt)
	require.NoError(t, r.MarkContractGenerated(now))
	assert.True(t, r.IsOpen())
	require.NoError(t, r.MarkContractSigned(now))
	assert.True(t, r.IsTerminal())
	assert.False(t, r.IsOpen())
	require.NotNil(t, r.SignedAt)
}

func TestReservation_Refuse(t *testing.T) {
	p := testProperty()
	r := New(validInput(p), "tenant-1", p, nil, time.Now())
	reason := "insufficient documents"

	require.NoError(t, r.Decide(DecisionRefuse, &reason, time.Now()))
	assert.Equal(t, StatusRefused, r.Status)
	require.NotNil(t, r.RefusalReason)
	assert.Equal(t, reason, *r.RefusalReason)
	assert.False(t, r.IsOpen())
	assert.ErrorIs(t, r.Decide(DecisionAccept, nil, time.Now()), ErrInvalidTransition)
}

func TestReservation_Submit(t *testing.T) {
	r := &Reservation{Status: StatusDraft}
	require.NoError(t, r.Submit(time.Now()))
	assert.Equal(t, StatusPending, r.Status)
	assert.ErrorIs(t, r.Submit(time.Now()), ErrInvalidTransition)
}
