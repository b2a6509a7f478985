/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. The engine types
  count in minutes and seconds; the DTOs add the decimal-hour renderings
  clients display, and keep the API contract independent of the engine.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Balance:
    BalanceDTO

  Events:
    EventDTO, RecordEventRequest, RecordEventResponse

  Summaries:
    DayDTO, WeekDTO, MonthDTO

  Holidays:
    HolidayDTO, CreateHolidayRequest

  Rules:
    RulesDTO (wraps factory.RulesJSON)

VALIDATION:
  Validation is done in handlers and in the engine, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/rules.go: FormatHours
*/
package api

import (
	"strings"
	"time"

	"github.com/warp/worktime/factory"
	"github.com/warp/worktime/tracker"
	"github.com/warp/worktime/worktime"
)

// =============================================================================
// BALANCE
// =============================================================================

// BalanceDTO is the snapshot plus its hour renderings.
type BalanceDTO struct {
	Subject string `json:"subject"`
	worktime.BalanceSnapshot
	PeriodStart string      `json:"period_start"`
	Holiday     *HolidayDTO `json:"holiday,omitempty"`

	WorkedTodayHours    string `json:"worked_today_hours"`
	RemainingTodayHours string `json:"remaining_today_hours"`
	DailyBalanceHours   string `json:"daily_balance_hours"`
	MonthlyBalanceHours string `json:"monthly_balance_hours"`
}

func toBalanceDTO(subject worktime.SubjectID, s worktime.BalanceSnapshot) BalanceDTO {
	dto := BalanceDTO{
		Subject:             string(subject),
		BalanceSnapshot:     s,
		PeriodStart:         s.Period.Start.String(),
		WorkedTodayHours:    factory.FormatHours(s.WorkedTodayMinutes),
		RemainingTodayHours: factory.FormatHours(s.RemainingTodayMinutes),
		DailyBalanceHours:   factory.FormatHours(s.DailyBalanceMinutes),
		MonthlyBalanceHours: factory.FormatHours(s.MonthlyBalanceMinutes),
	}
	if s.Holiday != nil {
		h := toHolidayDTO(*s.Holiday, false)
		dto.Holiday = &h
	}
	return dto
}

// =============================================================================
// EVENTS
// =============================================================================

type EventDTO struct {
	ID      string    `json:"id"`
	Subject string    `json:"subject"`
	Type    string    `json:"type"`
	Reason  string    `json:"reason,omitempty"`
	At      time.Time `json:"at"`
	Seq     int64     `json:"seq"`
}

func toEventDTO(e worktime.Event) EventDTO {
	return EventDTO{
		ID:      string(e.ID),
		Subject: string(e.Subject),
		Type:    e.Type.String(),
		Reason:  e.Reason.String(),
		At:      e.At,
		Seq:     e.Seq,
	}
}

// RecordEventRequest records a START or END. At defaults to now.
type RecordEventRequest struct {
	Type   string     `json:"type"`
	Reason string     `json:"reason,omitempty"`
	At     *time.Time `json:"at,omitempty"`
}

type RecordEventResponse struct {
	Status      string                `json:"status"`
	Event       EventDTO              `json:"event"`
	Diagnostics []worktime.Diagnostic `json:"diagnostics,omitempty"`
}

// =============================================================================
// SUMMARIES
// =============================================================================

type DayDTO struct {
	Date            string      `json:"date"`
	Weekday         string      `json:"weekday"`
	WorkedMinutes   int         `json:"worked_minutes"`
	BreakMinutes    int         `json:"break_minutes"`
	WorkedSeconds   int64       `json:"worked_seconds"`
	BreakSeconds    int64       `json:"break_seconds"`
	RequiredMinutes int         `json:"required_minutes"`
	BalanceMinutes  int         `json:"balance_minutes"`
	WorkedHours     string      `json:"worked_hours"`
	BalanceHours    string      `json:"balance_hours"`
	IsNonWorking    bool        `json:"is_non_working"`
	Holiday         *HolidayDTO `json:"holiday,omitempty"`
	IsToday         bool        `json:"is_today"`
	IsFuture        bool        `json:"is_future"`
}

func toDayDTOs(days []worktime.DaySummary) []DayDTO {
	out := make([]DayDTO, 0, len(days))
	for _, d := range days {
		dto := DayDTO{
			Date:            d.Date.String(),
			Weekday:         strings.ToLower(d.Date.Weekday().String()),
			WorkedMinutes:   d.WorkedMinutes,
			BreakMinutes:    d.BreakMinutes,
			WorkedSeconds:   d.WorkedSeconds,
			BreakSeconds:    d.BreakSeconds,
			RequiredMinutes: d.RequiredMinutes,
			BalanceMinutes:  d.BalanceMinutes,
			WorkedHours:     factory.FormatHours(d.WorkedMinutes),
			BalanceHours:    factory.FormatHours(d.BalanceMinutes),
			IsNonWorking:    d.IsNonWorking,
			IsToday:         d.IsToday,
			IsFuture:        d.IsFuture,
		}
		if d.Holiday != nil {
			h := toHolidayDTO(*d.Holiday, false)
			dto.Holiday = &h
		}
		out = append(out, dto)
	}
	return out
}

type WeekDTO struct {
	Start                string                `json:"start"`
	End                  string                `json:"end"`
	Days                 []DayDTO              `json:"days"`
	WorkedMinutes        int                   `json:"worked_minutes"`
	BreakMinutes         int                   `json:"break_minutes"`
	RequiredMinutes      int                   `json:"required_minutes"`
	BalanceMinutes       int                   `json:"balance_minutes"`
	BalanceHours         string                `json:"balance_hours"`
	DaysWorked           int                   `json:"days_worked"`
	AverageWorkedMinutes int                   `json:"average_worked_minutes"`
	MostProductive       string                `json:"most_productive,omitempty"`
	LeastProductive      string                `json:"least_productive,omitempty"`
	WorkPercent          float64               `json:"work_percent"`
	BreakPercent         float64               `json:"break_percent"`
	Achievements         worktime.Achievements `json:"achievements"`
}

func toWeekDTO(ws worktime.WeekSummary) WeekDTO {
	dto := WeekDTO{
		Start:                ws.Week.Start.String(),
		End:                  ws.Week.End.String(),
		Days:                 toDayDTOs(ws.Days),
		WorkedMinutes:        ws.WorkedMinutes,
		BreakMinutes:         ws.BreakMinutes,
		RequiredMinutes:      ws.RequiredMinutes,
		BalanceMinutes:       ws.BalanceMinutes,
		BalanceHours:         factory.FormatHours(ws.BalanceMinutes),
		DaysWorked:           ws.DaysWorked,
		AverageWorkedMinutes: ws.AverageWorkedMinutes,
		WorkPercent:          ws.WorkPercent,
		BreakPercent:         ws.BreakPercent,
		Achievements:         ws.Achievements,
	}
	if ws.MostProductive != nil {
		dto.MostProductive = ws.MostProductive.String()
	}
	if ws.LeastProductive != nil {
		dto.LeastProductive = ws.LeastProductive.String()
	}
	return dto
}

type MonthDTO struct {
	Month                 string   `json:"month"`
	Start                 string   `json:"start"`
	End                   string   `json:"end"`
	Days                  []DayDTO `json:"days"`
	WorkedMinutes         int      `json:"worked_minutes"`
	BreakMinutes          int      `json:"break_minutes"`
	RequiredMinutes       int      `json:"required_minutes"`
	RequiredToDateMinutes int      `json:"required_to_date_minutes"`
	BalanceMinutes        int      `json:"balance_minutes"`
	BalanceToDateMinutes  int      `json:"balance_to_date_minutes"`
	BalanceToDateHours    string   `json:"balance_to_date_hours"`
	WorkingDays           int      `json:"working_days"`
	PassedWorkingDays     int      `json:"passed_working_days"`
}

func toMonthDTO(ms worktime.MonthSummary) MonthDTO {
	return MonthDTO{
		Month:                 ms.Month.Start.String()[:7],
		Start:                 ms.Month.Start.String(),
		End:                   ms.Month.End.String(),
		Days:                  toDayDTOs(ms.Days),
		WorkedMinutes:         ms.WorkedMinutes,
		BreakMinutes:          ms.BreakMinutes,
		RequiredMinutes:       ms.RequiredMinutes,
		RequiredToDateMinutes: ms.RequiredToDateMinutes,
		BalanceMinutes:        ms.BalanceMinutes,
		BalanceToDateMinutes:  ms.BalanceToDateMinutes,
		BalanceToDateHours:    factory.FormatHours(ms.BalanceToDateMinutes),
		WorkingDays:           ms.WorkingDays,
		PassedWorkingDays:     ms.PassedWorkingDays,
	}
}

// =============================================================================
// HOLIDAYS
// =============================================================================

type HolidayDTO struct {
	ID       string `json:"id"`
	Date     string `json:"date"`
	Name     string `json:"name"`
	Origin   string `json:"origin"`
	Disabled bool   `json:"disabled,omitempty"`
}

func toHolidayDTO(h worktime.Holiday, disabled bool) HolidayDTO {
	return HolidayDTO{
		ID:       h.ID,
		Date:     h.Date.String(),
		Name:     h.Name,
		Origin:   h.Origin.String(),
		Disabled: disabled,
	}
}

func toHolidayDTOs(views []tracker.HolidayView) []HolidayDTO {
	out := make([]HolidayDTO, 0, len(views))
	for _, v := range views {
		out = append(out, toHolidayDTO(v.Holiday, v.Disabled))
	}
	return out
}

// CreateHolidayRequest declares a custom non-working day. Date is
// YYYY-MM-DD and is validated before anything is stored.
type CreateHolidayRequest struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// =============================================================================
// PERIODS / RULES / ERRORS
// =============================================================================

type PeriodCloseDTO struct {
	worktime.PeriodClose
	BalanceHours string `json:"balance_hours"`
}

func toPeriodCloseDTOs(closes []worktime.PeriodClose) []PeriodCloseDTO {
	out := make([]PeriodCloseDTO, 0, len(closes))
	for _, pc := range closes {
		out = append(out, PeriodCloseDTO{PeriodClose: pc, BalanceHours: factory.FormatHours(pc.BalanceMinutes)})
	}
	return out
}

// RulesDTO is the active rule set with its resolved per-weekday targets.
type RulesDTO struct {
	factory.RulesJSON
	TargetMinutes map[string]int `json:"target_minutes"`
}

func toRulesDTO(rs factory.RuleSet) RulesDTO {
	dto := RulesDTO{
		RulesJSON:     factory.NewRulesFactory().ToJSON(rs),
		TargetMinutes: make(map[string]int, 7),
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		dto.TargetMinutes[strings.ToLower(wd.String())] = rs.Rules.Targets[wd]
	}
	return dto
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
