package reservation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rental-hub/rental-hub/internal/domain/booking"
	"github.com/rental-hub/rental-hub/internal/domain/property"
)

const DateLayout = "2006-01-02"

// IncomeToRentRatio is the minimum monthly income expressed in months of rent.
const IncomeToRentRatio = 2

// Rule names reported in booking.FieldError.Rule.
const (
	RuleDateFormat  = "date_format"
	RuleDateOrder   = "date_order"
	RuleOccupants   = "occupants_min"
	RuleOccupancy   = "occupancy"
	RuleIncome      = "income_ratio"
	RuleEligibility = "eligibility"
)

// Input is a reservation submission.
type Input struct {
	PropertyID    uuid.UUID `json:"propertyId"`
	StartDate     string    `json:"startDate"`
	EndDate       string    `json:"endDate"`
	Occupants     int       `json:"occupants"`
	MonthlyIncome int64     `json:"monthlyIncome"`
	HasGuarantor  bool      `json:"hasGuarantor"`
}

// Validate checks the submission against the property and returns every violation.
func Validate(in Input, p *property.Property) *booking.ValidationError {
	verr := &booking.ValidationError{}

	start, startErr := time.Parse(DateLayout, in.StartDate)
	if startErr != nil {
		verr.Add("startDate", RuleDateFormat, "start date must use YYYY-MM-DD")
	}
	end, endErr := time.Parse(DateLayout, in.EndDate)
	if endErr != nil {
		verr.Add("endDate", RuleDateFormat, "end date must use YYYY-MM-DD")
	}
	if startErr == nil && endErr == nil && !end.After(start) {
		verr.Add("endDate", RuleDateOrder, "end date must be after start date")
	}

	if in.Occupants < 1 {
		verr.Add("occupants", RuleOccupants, "at least one occupant is required")
	} else if in.Occupants > p.MaxOccupants {
		verr.Add("occupants", RuleOccupancy, fmt.Sprintf("at most %d occupants allowed", p.MaxOccupants))
	}

	if in.MonthlyIncome < IncomeToRentRatio*p.MonthlyRent {
		verr.Add("monthlyIncome", RuleIncome, fmt.Sprintf("monthly income must be at least %d times the rent (%d)", IncomeToRentRatio, IncomeToRentRatio*p.MonthlyRent))
	}

	if p.EligibilityRule != "" {
		ok, err := EvaluateEligibility(p.EligibilityRule, in, p)
		if err != nil {
			verr.Add("eligibility", RuleEligibility, "landlord criteria could not be evaluated: "+err.Error())
		} else if !ok {
			verr.Add("eligibility", RuleEligibility, "application does not meet the landlord criteria")
		}
	}
	return verr
}

// New builds a pending reservation from a validated submission.
func New(in Input, tenantID string, p *property.Property, visitID *uuid.UUID, now time.Time) *Reservation {
	now = now.UTC()
	return &Reservation{
		ReservationID: uuid.New(),
		PropertyID:    p.PropertyID,
		TenantID:      tenantID,
		LandlordID:    p.OwnerID,
		VisitID:       visitID,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		Occupants:     in.Occupants,
		MonthlyIncome: in.MonthlyIncome,
		MonthlyRent:   p.MonthlyRent,
		HasGuarantor:  in.HasGuarantor,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
