/*
dto.go - Request and response bodies of the ops API

Decimals are rendered as strings so no precision is lost in JSON. Every
amount carries the engine value (three places) and the display value (one
place, never below zero).
*/
package api

import (
	"time"

	"github.com/CHAISAHR/saleaveapp-sub000/generic"
	"github.com/CHAISAHR/saleaveapp-sub000/leave"
	"github.com/CHAISAHR/saleaveapp-sub000/scheduler"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type AmountDTO struct {
	Value   string `json:"value"`
	Display string `json:"display"`
	Unit    string `json:"unit"`
}

func toAmountDTO(a generic.Amount) AmountDTO {
	return AmountDTO{
		Value:   a.Value.StringFixed(generic.EnginePlaces),
		Display: a.Display().Value.StringFixed(generic.DisplayPlaces),
		Unit:    string(a.Unit),
	}
}

type BalanceResponse struct {
	Email           string               `json:"email"`
	Name            string               `json:"name"`
	Department      string               `json:"department,omitempty"`
	Year            int                  `json:"year"`
	Status          string               `json:"status"`
	StartDate       string               `json:"start_date,omitempty"`
	TerminationDate string               `json:"termination_date,omitempty"`
	BroughtForward  string               `json:"brought_forward"`
	Accrued         string               `json:"accrued"`
	AnnualUsed      string               `json:"annual_used"`
	Forfeited       string               `json:"forfeited"`
	Adjustments     string               `json:"annual_adjustments"`
	Balances        map[string]AmountDTO `json:"balances"`
}

func toBalanceResponse(r leave.BalanceRecord, b leave.Balances, today generic.TimePoint) BalanceResponse {
	resp := BalanceResponse{
		Email:          r.Email,
		Name:           r.Name,
		Department:     r.Department,
		Year:           r.Year,
		Status:         string(r.Status(today)),
		BroughtForward: r.BroughtForward.String(),
		Accrued:        r.AccumulatedLeave.String(),
		AnnualUsed:     r.AnnualUsed.String(),
		Forfeited:      r.Forfeited.String(),
		Adjustments:    r.AnnualAdjustments.String(),
		Balances:       make(map[string]AmountDTO, len(b)),
	}
	if r.StartDate != nil {
		resp.StartDate = r.StartDate.String()
	}
	if r.TerminationDate != nil {
		resp.TerminationDate = r.TerminationDate.String()
	}
	for t, amount := range b {
		resp.Balances[t.String()] = toAmountDTO(amount)
	}
	return resp
}

type TerminationResponse struct {
	Email   string    `json:"email"`
	Year    int       `json:"year"`
	Status  string    `json:"status"`
	Base    string    `json:"base"`
	TopUp   string    `json:"top_up"`
	Balance AmountDTO `json:"balance"`
}

type MaintenanceRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type MaintenanceResponse struct {
	Enabled bool `json:"enabled"`
}

type RolloverRequest struct {
	FromYear int    `json:"from_year" validate:"required,gte=1900,lte=9999"`
	ToYear   int    `json:"to_year" validate:"required,gtfield=FromYear,lte=9999"`
	ActorID  string `json:"actor_id" validate:"required,max=255"`
}

type AdjustmentRequest struct {
	Year    int    `json:"year" validate:"required,gte=1900,lte=9999"`
	Field   string `json:"field" validate:"required"`
	Value   string `json:"value" validate:"required,number"`
	ActorID string `json:"actor_id" validate:"required,max=255"`
}

type SchedulerResponse struct {
	NextRun *time.Time      `json:"next_run,omitempty"`
	Runs    []scheduler.Run `json:"runs"`
}
