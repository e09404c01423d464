package booking

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/faylib/equipment-calendar/internal/model"
)

const (
	bookingLengthMinutes = 60
	bookingSource        = "WEB_V1"
	availabilityType     = "INPERSON"

	// Upstream custom question field ids.
	fieldCostConsent     = "field_RFJLWgtS"
	fieldTrainingConsent = "field_ozMFFjbX"
	fieldLateArrival     = "field_AyNGUYSO"
)

// StartTime renders the upstream start_time for a date and hour,
// e.g. "2025-12-16 09:00".
func StartTime(date string, hour int) string {
	return fmt.Sprintf("%s %02d:00", date, hour)
}

// Bookable drops groups that have no concrete unit left.  Dropped groups are
// neither submitted nor reported.
func Bookable(groups []model.BookingGroup) []model.BookingGroup {
	out := make([]model.BookingGroup, 0, len(groups))
	for _, g := range groups {
		if len(g.AssetIDs) > 0 {
			out = append(out, g)
		}
	}
	return out
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// customQuestions serializes the consent answers as the upstream expects.
func customQuestions(e ConfirmSubmitted) (string, error) {
	b, err := json.Marshal(map[string]string{
		fieldCostConsent:     yesNo(e.AgreedCost),
		fieldTrainingConsent: yesNo(e.AgreedTraining),
		fieldLateArrival:     "",
	})
	return string(b), err
}

// patronHistory is the placeholder patron_data payload.  The upstream only
// checks its shape, so holds, checkouts and fines are always empty.
type patronHistory struct {
	Patron    patronRef `json:"patron"`
	Holds     []any     `json:"holds"`
	Checkouts []any     `json:"checkouts"`
	Fines     []any     `json:"fines"`
}

type patronRef struct {
	Barcode string `json:"barcode"`
}

func patronData(barcode string) (string, error) {
	b, err := json.Marshal(patronHistory{
		Patron:    patronRef{Barcode: barcode},
		Holds:     []any{},
		Checkouts: []any{},
		Fines:     []any{},
	})
	return string(b), err
}

// BuildRequest assembles the booking body for one group, booking its first
// available unit.
func (m *Machine) BuildRequest(f Flow, g model.BookingGroup, e ConfirmSubmitted) (model.BookingRequest, error) {
	if len(g.AssetIDs) == 0 {
		return model.BookingRequest{}, fmt.Errorf("group %s has no available unit", g.GroupID)
	}
	var p model.Patron
	if f.Patron != nil {
		p = *f.Patron
	}
	questions, err := customQuestions(e)
	if err != nil {
		return model.BookingRequest{}, fmt.Errorf("encode custom questions: %w", err)
	}
	history, err := patronData(p.Barcode)
	if err != nil {
		return model.BookingRequest{}, fmt.Errorf("encode patron data: %w", err)
	}
	return model.BookingRequest{
		ClientID:         m.cfg.ClientID,
		LocationID:       m.cfg.LocationID,
		CategoryID:       m.cfg.CategoryID,
		GroupID:          g.GroupID,
		AssetID:          g.AssetIDs[0],
		StartTime:        StartTime(f.Date, f.Hour),
		Slot:             f.Hour,
		BookingLength:    bookingLengthMinutes,
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Email:            p.Email,
		Cell:             p.Phone,
		CustomQuestions:  questions,
		PatronData:       history,
		BookingSource:    bookingSource,
		AvailabilityType: availabilityType,
	}, nil
}

// submitAll books each bookable group one after the other; the next
// submission starts only when the previous one settled.
func (m *Machine) submitAll(ctx context.Context, f Flow, e ConfirmSubmitted) []model.BookingResult {
	groups := Bookable(f.Groups)
	results := make([]model.BookingResult, 0, len(groups))
	for _, g := range groups {
		res := m.submitOne(ctx, f, g, e)
		results = append(results, res)
		m.publish(ctx, f, res)
	}
	return results
}

func (m *Machine) submitOne(ctx context.Context, f Flow, g model.BookingGroup, e ConfirmSubmitted) model.BookingResult {
	res := model.BookingResult{Name: g.GroupName, GroupID: g.GroupID, AssetID: g.AssetIDs[0]}
	req, err := m.BuildRequest(f, g, e)
	if err != nil {
		res.Message = err.Error()
		return res
	}

	resp, status, err := m.booker.Book(ctx, req)
	if err != nil {
		m.logger.Warn("booking submission failed",
			zap.String("group_id", g.GroupID),
			zap.String("asset_id", req.AssetID),
			zap.Error(err),
		)
		res.Message = err.Error()
		return res
	}
	if statusOK(status) && resp.Status == "success" {
		res.Success = true
		m.logger.Info("booking confirmed",
			zap.String("group_id", g.GroupID),
			zap.String("asset_id", req.AssetID),
			zap.String("start_time", req.StartTime),
		)
		return res
	}
	res.Message = TranslateMessage(resp.Message)
	m.logger.Info("booking rejected",
		zap.String("group_id", g.GroupID),
		zap.Int("status", status),
		zap.String("upstream_message", resp.Message),
	)
	return res
}

// TranslateMessage passes upstream messages through, substituting a default
// for empty ones and rewriting the one code patrons cannot read.
func TranslateMessage(msg string) string {
	switch msg {
	case "":
		return MsgBookingFailed
	case codeNoLongerAvailable:
		return MsgUseLimitReached
	}
	return msg
}

func (m *Machine) publish(ctx context.Context, f Flow, res model.BookingResult) {
	if m.publisher == nil {
		return
	}
	if err := m.publisher.PublishOutcome(ctx, f, res); err != nil {
		m.logger.Warn("publish booking outcome failed",
			zap.String("group_id", res.GroupID),
			zap.Error(err),
		)
	}
}
