package booking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faylib/equipment-calendar/internal/config"
	"github.com/faylib/equipment-calendar/internal/model"
)

type fakePatrons struct {
	resp   *model.PatronResponse
	status int
	err    error
	calls  int
}

func (f *fakePatrons) SignIn(_ context.Context, _, _ string) (*model.PatronResponse, int, error) {
	f.calls++
	return f.resp, f.status, f.err
}

type bookReply struct {
	resp   *model.BookingResponse
	status int
	err    error
}

// fakeBooker answers per group id and records submissions in order.
type fakeBooker struct {
	replies   map[string]bookReply
	submitted []model.BookingRequest
}

func (f *fakeBooker) Book(_ context.Context, req model.BookingRequest) (*model.BookingResponse, int, error) {
	f.submitted = append(f.submitted, req)
	r, ok := f.replies[req.GroupID]
	if !ok {
		return &model.BookingResponse{Status: "success"}, http.StatusOK, nil
	}
	return r.resp, r.status, r.err
}

type fakePublisher struct {
	results []model.BookingResult
	err     error
}

func (f *fakePublisher) PublishOutcome(_ context.Context, _ Flow, r model.BookingResult) error {
	f.results = append(f.results, r)
	return f.err
}

var testBookingConfig = config.BookingConfig{ClientID: 368, LocationID: 36, CategoryID: 609}

func okPatron() *fakePatrons {
	return &fakePatrons{
		status: http.StatusOK,
		resp: &model.PatronResponse{Data: &model.PatronData{
			Names:  []model.PatronName{{FirstName: "Ada", LastName: "Lovelace"}},
			Emails: []string{"ada@example.org"},
		}},
	}
}

func newMachine(p PatronLookup, b Booker, pub OutcomePublisher) *Machine {
	return NewMachine(p, b, testBookingConfig, pub, nil)
}

func groups() []model.BookingGroup {
	return []model.BookingGroup{
		{GroupID: "3581", GroupName: "X1-C", AssetIDs: []string{"u1", "u2"}},
		{GroupID: "3764", GroupName: "A1 mini", AssetIDs: []string{}},
		{GroupID: "3994", GroupName: "H2D", AssetIDs: []string{"u9"}},
	}
}

func loggedIn(t *testing.T, m *Machine) Flow {
	t.Helper()
	f, err := m.Update(context.Background(), NewFlow("2025-12-16", 9, groups()), LoginSubmitted{Barcode: "21000", PIN: "1234"})
	require.NoError(t, err)
	require.Equal(t, StepConfirm, f.Step)
	return f
}

func TestLogin_Success(t *testing.T) {
	m := newMachine(okPatron(), &fakeBooker{}, nil)
	f := loggedIn(t, m)

	require.NotNil(t, f.Patron)
	assert.Equal(t, model.Patron{Barcode: "21000", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.org"}, *f.Patron)
	assert.Empty(t, f.ErrorMsg)
}

func TestLogin_ErrorField(t *testing.T) {
	p := &fakePatrons{status: http.StatusOK, resp: &model.PatronResponse{Error: json.RawMessage(`"bad pin"`)}}
	m := newMachine(p, &fakeBooker{}, nil)

	f, err := m.Update(context.Background(), NewFlow("2025-12-16", 9, nil), LoginSubmitted{Barcode: "1", PIN: "2"})
	require.NoError(t, err)
	assert.Equal(t, StepLogin, f.Step)
	assert.Equal(t, "bad pin", f.ErrorMsg)
	assert.True(t, f.Failed())
}

func TestLogin_BlockData(t *testing.T) {
	p := &fakePatrons{status: http.StatusOK, resp: &model.PatronResponse{Data: &model.PatronData{
		Names:     []model.PatronName{{FirstName: "A"}},
		BlockData: &model.BlockData{Result: "blocked", Message: "Account has fines"},
	}}}
	m := newMachine(p, &fakeBooker{}, nil)

	f, err := m.Update(context.Background(), NewFlow("2025-12-16", 9, nil), LoginSubmitted{})
	require.NoError(t, err)
	assert.Equal(t, StepLogin, f.Step)
	assert.Equal(t, "Account has fines", f.ErrorMsg)
}

func TestLogin_BlockDataOKIsAccepted(t *testing.T) {
	p := okPatron()
	p.resp.Data.BlockData = &model.BlockData{Result: "ok"}
	m := newMachine(p, &fakeBooker{}, nil)
	loggedIn(t, m)
}

func TestLogin_GenericFallback(t *testing.T) {
	p := &fakePatrons{status: http.StatusUnauthorized, resp: &model.PatronResponse{}}
	m := newMachine(p, &fakeBooker{}, nil)

	f, err := m.Update(context.Background(), NewFlow("2025-12-16", 9, nil), LoginSubmitted{})
	require.NoError(t, err)
	assert.Equal(t, MsgInvalidCredentials, f.ErrorMsg)
}

func TestLogin_TransportFailure(t *testing.T) {
	p := &fakePatrons{err: errors.New("dial tcp: refused")}
	m := newMachine(p, &fakeBooker{}, nil)

	f, err := m.Update(context.Background(), NewFlow("2025-12-16", 9, nil), LoginSubmitted{})
	require.NoError(t, err)
	assert.Equal(t, StepLogin, f.Step)
	assert.Equal(t, MsgConnectFailed, f.ErrorMsg)
}

func TestLogin_RetryClearsPreviousError(t *testing.T) {
	p := &fakePatrons{status: http.StatusOK, resp: &model.PatronResponse{Error: json.RawMessage(`"bad pin"`)}}
	m := newMachine(p, &fakeBooker{}, nil)
	f, _ := m.Update(context.Background(), NewFlow("2025-12-16", 9, groups()), LoginSubmitted{})
	require.Equal(t, "bad pin", f.ErrorMsg)

	*p = *okPatron()
	f, err := m.Update(context.Background(), f, LoginSubmitted{Barcode: "21000"})
	require.NoError(t, err)
	assert.Equal(t, StepConfirm, f.Step)
	assert.Empty(t, f.ErrorMsg)
}

func TestConfirm_RequiresBothConsents(t *testing.T) {
	b := &fakeBooker{}
	m := newMachine(okPatron(), b, nil)
	f := loggedIn(t, m)

	for _, ev := range []ConfirmSubmitted{{}, {AgreedCost: true}, {AgreedTraining: true}} {
		next, err := m.Update(context.Background(), f, ev)
		require.NoError(t, err)
		assert.Equal(t, StepConfirm, next.Step)
		assert.Equal(t, MsgAgreeTerms, next.ErrorMsg)
	}
	assert.Empty(t, b.submitted)
}

func TestConfirm_SubmitsSequentiallySkippingEmptyGroups(t *testing.T) {
	b := &fakeBooker{replies: map[string]bookReply{
		"3994": {resp: &model.BookingResponse{Status: "error", Message: "assets.booking.nolongeravailable"}, status: http.StatusOK},
	}}
	pub := &fakePublisher{}
	m := newMachine(okPatron(), b, pub)
	f := loggedIn(t, m)

	f, err := m.Update(context.Background(), f, ConfirmSubmitted{AgreedCost: true, AgreedTraining: true})
	require.NoError(t, err)

	assert.Equal(t, StepSuccess, f.Step)
	require.Len(t, b.submitted, 2)
	assert.Equal(t, "3581", b.submitted[0].GroupID)
	assert.Equal(t, "u1", b.submitted[0].AssetID)
	assert.Equal(t, "3994", b.submitted[1].GroupID)

	require.Len(t, f.Results, 2)
	assert.Equal(t, model.BookingResult{Name: "X1-C", GroupID: "3581", AssetID: "u1", Success: true}, f.Results[0])
	assert.False(t, f.Results[1].Success)
	assert.Equal(t, MsgUseLimitReached, f.Results[1].Message)
	for _, r := range f.Results {
		assert.NotEqual(t, "3764", r.GroupID)
	}
	assert.Equal(t, f.Results, pub.results)
}

func TestConfirm_FailureModes(t *testing.T) {
	b := &fakeBooker{replies: map[string]bookReply{
		"3581": {resp: &model.BookingResponse{Status: "success"}, status: http.StatusConflict},
		"3994": {err: errors.New("connection reset")},
	}}
	m := newMachine(okPatron(), b, &fakePublisher{err: errors.New("broker down")})
	f := loggedIn(t, m)

	f, err := m.Update(context.Background(), f, ConfirmSubmitted{AgreedCost: true, AgreedTraining: true})
	require.NoError(t, err)
	assert.Equal(t, StepSuccess, f.Step)
	require.Len(t, f.Results, 2)
	assert.False(t, f.Results[0].Success)
	assert.Equal(t, MsgBookingFailed, f.Results[0].Message)
	assert.False(t, f.Results[1].Success)
	assert.Equal(t, "connection reset", f.Results[1].Message)
}

func TestUpdate_RejectsOutOfStepEvents(t *testing.T) {
	m := newMachine(okPatron(), &fakeBooker{}, nil)
	start := NewFlow("2025-12-16", 9, groups())

	f, err := m.Update(context.Background(), start, ConfirmSubmitted{AgreedCost: true, AgreedTraining: true})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, start, f)

	done := loggedIn(t, m)
	done, err = m.Update(context.Background(), done, ConfirmSubmitted{AgreedCost: true, AgreedTraining: true})
	require.NoError(t, err)
	_, err = m.Update(context.Background(), done, LoginSubmitted{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestBuildRequest(t *testing.T) {
	m := newMachine(okPatron(), &fakeBooker{}, nil)
	f := loggedIn(t, m)

	req, err := m.BuildRequest(f, groups()[0], ConfirmSubmitted{AgreedCost: true, AgreedTraining: true})
	require.NoError(t, err)

	assert.Equal(t, 368, req.ClientID)
	assert.Equal(t, 36, req.LocationID)
	assert.Equal(t, 609, req.CategoryID)
	assert.Equal(t, "2025-12-16 09:00", req.StartTime)
	assert.Equal(t, 9, req.Slot)
	assert.Equal(t, 60, req.BookingLength)
	assert.Equal(t, "Ada", req.FirstName)
	assert.Equal(t, "ada@example.org", req.Email)
	assert.Equal(t, "", req.Cell)
	assert.Equal(t, "WEB_V1", req.BookingSource)
	assert.Equal(t, "INPERSON", req.AvailabilityType)
	assert.JSONEq(t, `{"field_RFJLWgtS":"Yes","field_ozMFFjbX":"Yes","field_AyNGUYSO":""}`, req.CustomQuestions)
	assert.JSONEq(t, `{"patron":{"barcode":"21000"},"holds":[],"checkouts":[],"fines":[]}`, req.PatronData)

	_, err = m.BuildRequest(f, groups()[1], ConfirmSubmitted{})
	assert.Error(t, err)
}

func TestStartTime(t *testing.T) {
	assert.Equal(t, "2025-12-16 07:00", StartTime("2025-12-16", 7))
	assert.Equal(t, "2025-12-16 17:00", StartTime("2025-12-16", 17))
}

func TestTranslateMessage(t *testing.T) {
	assert.Equal(t, MsgUseLimitReached, TranslateMessage("assets.booking.nolongeravailable"))
	assert.Equal(t, "Slot taken", TranslateMessage("Slot taken"))
	assert.Equal(t, MsgBookingFailed, TranslateMessage(""))
}

func TestLogin_NullErrorFieldRejects(t *testing.T) {
	cases := map[string]struct {
		body string
		want string
	}{
		"generic":     {`{"error":null,"data":{"names":[{"first_name":"Ada"}]}}`, MsgInvalidCredentials},
		"block first": {`{"error":null,"data":{"names":[],"blockData":{"result":"blocked","message":"Account has fines"}}}`, "Account has fines"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var resp model.PatronResponse
			require.NoError(t, json.Unmarshal([]byte(tc.body), &resp))
			m := newMachine(&fakePatrons{status: http.StatusOK, resp: &resp}, &fakeBooker{}, nil)

			f, err := m.Update(context.Background(), NewFlow("2025-12-16", 9, nil), LoginSubmitted{Barcode: "1", PIN: "2"})
			require.NoError(t, err)
			assert.Equal(t, StepLogin, f.Step)
			assert.Equal(t, tc.want, f.ErrorMsg)
		})
	}
}
