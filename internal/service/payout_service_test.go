package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/showpayouts/internal/auth"
	"github.com/mmynk/showpayouts/internal/middleware"
	"github.com/mmynk/showpayouts/internal/storage/sqlite"
	"github.com/mmynk/showpayouts/pkg/api"
)

// testAuthInterceptor returns a Connect interceptor that sets a test user ID in the context.
func testAuthInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			ctx = context.WithValue(ctx, middleware.UserIDKey, "Alice")
			return next(ctx, req)
		}
	}
}

// setupTestServer creates a test server backed by a temporary SQLite database.
func setupTestServer(t *testing.T, interceptors ...connect.Interceptor) api.PayoutServiceClient {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	if len(interceptors) == 0 {
		interceptors = []connect.Interceptor{testAuthInterceptor()}
	}
	path, handler := api.NewPayoutServiceHandler(NewPayoutService(store, nil), connect.WithInterceptors(interceptors...))

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		store.Close()
		os.Remove(tmpFile.Name())
	})

	return api.NewPayoutServiceClient(http.DefaultClient, server.URL)
}

// scenarioShow has a $1200 pool: $1400 of ticket sales less $200 expenses.
func scenarioShow(id string) api.Show {
	return api.Show{
		ID:           id,
		ProductionID: "prod-1",
		Financials: &api.Financials{
			RevenueType:   "ticket_sales",
			TicketCount:   140,
			TicketRevenue: "1400",
			Expenses:      "200",
			DataConfirmed: true,
		},
		Roster: []api.RoleAssignment{
			{RoleName: "Lead", Payee: api.Payee{Type: "Person", ID: "p1"}},
			{RoleName: "Band", Payee: api.Payee{Type: "Group", ID: "g1"}},
			{RoleName: "Cameo", Payee: api.Payee{Type: "Guest", GuestName: "Guest Star"}},
		},
	}
}

func mustUpsert(t *testing.T, client api.PayoutServiceClient, show api.Show) {
	t.Helper()
	if _, err := client.UpsertShow(context.Background(), connect.NewRequest(&api.UpsertShowRequest{Show: show})); err != nil {
		t.Fatalf("UpsertShow failed: %v", err)
	}
}

func mustDefaultScheme(t *testing.T, client api.PayoutServiceClient, rules string) api.Scheme {
	t.Helper()
	resp, err := client.SaveScheme(context.Background(), connect.NewRequest(&api.SaveSchemeRequest{
		ProductionID: "prod-1",
		Name:         "standard",
		Rules:        json.RawMessage(rules),
		IsDefault:    true,
	}))
	if err != nil {
		t.Fatalf("SaveScheme failed: %v", err)
	}
	return resp.Msg.Scheme
}

func assertFailure(t *testing.T, err error, code connect.Code, reason string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected connect error, got %T: %v", err, err)
	}
	if cerr.Code() != code {
		t.Errorf("code = %s, want %s (%v)", cerr.Code(), code, err)
	}
	if got := cerr.Meta().Get(middleware.FailureReasonHeader); got != reason {
		t.Errorf("failure reason = %q, want %q", got, reason)
	}
}

func TestPayoutService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	client := setupTestServer(t)
	scheme := mustDefaultScheme(t, client, `{"distribution": {"method": "equal"}}`)
	if !scheme.IsDefault || scheme.Version != 1 {
		t.Errorf("scheme = %+v, want default v1", scheme)
	}
	mustUpsert(t, client, scenarioShow("show-1"))

	calc, err := client.CalculatePayout(ctx, connect.NewRequest(&api.CalculatePayoutRequest{ShowID: "show-1"}))
	if err != nil {
		t.Fatalf("CalculatePayout failed: %v", err)
	}
	msg := calc.Msg
	if len(msg.LineItems) != 3 {
		t.Fatalf("got %d line items, want 3", len(msg.LineItems))
	}
	for _, li := range msg.LineItems {
		if li.Amount != "400.00" || li.NetAmount != "400.00" {
			t.Errorf("line item %+v, want 400.00", li)
		}
	}
	if guest := msg.LineItems[2].Payee; guest.Type != "Guest" || guest.GuestName != "Guest Star" || guest.ID != "" {
		t.Errorf("guest payee = %+v", guest)
	}
	if msg.Payout.TotalPayout != "1200.00" || msg.Payout.Status != "draft" || msg.Payout.SchemeID != scheme.ID {
		t.Errorf("payout = %+v", msg.Payout)
	}
	if msg.Allocation.Pool != "1200.00" || msg.Allocation.Gross != "1400.00" {
		t.Errorf("allocation = %+v", msg.Allocation)
	}
	var details map[string]any
	if err := json.Unmarshal(msg.LineItems[0].Details, &details); err != nil || details["method"] != "equal" {
		t.Errorf("calculation details = %s (%v)", msg.LineItems[0].Details, err)
	}

	payoutID := msg.Payout.ID
	transition := func(action, reason string) (*connect.Response[api.TransitionPayoutResponse], error) {
		return client.TransitionPayout(ctx, connect.NewRequest(&api.TransitionPayoutRequest{
			PayoutID: payoutID, Action: action, Reason: reason,
		}))
	}

	if _, err := transition(api.ActionApprove, ""); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	_, err = client.CalculatePayout(ctx, connect.NewRequest(&api.CalculatePayoutRequest{ShowID: "show-1"}))
	assertFailure(t, err, connect.CodeFailedPrecondition, "already_approved")

	paid, err := client.MarkLineItemPaid(ctx, connect.NewRequest(&api.MarkLineItemPaidRequest{
		LineItemID: msg.LineItems[0].ID, Method: "check", Reference: "1042",
	}))
	if err != nil {
		t.Fatalf("MarkLineItemPaid failed: %v", err)
	}
	if paid.Msg.LineItem.PayoutStatus != "paid" || paid.Msg.LineItem.PayoutReferenceID != "1042" {
		t.Errorf("paid line item = %+v", paid.Msg.LineItem)
	}

	if _, err := transition(api.ActionMarkPaid, ""); err != nil {
		t.Fatalf("mark_paid failed: %v", err)
	}
	if _, err := transition(api.ActionUnwind, ""); connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("unwind without reason: %v, want InvalidArgument", err)
	}
	if _, err := transition(api.ActionApprove, ""); connect.CodeOf(err) != connect.CodeFailedPrecondition {
		t.Errorf("approve paid payout: %v, want FailedPrecondition", err)
	}
	if _, err := transition("archive", ""); connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("unknown action: %v, want InvalidArgument", err)
	}
	unwound, err := transition(api.ActionUnwind, "wrong check amount")
	if err != nil {
		t.Fatalf("unwind failed: %v", err)
	}
	if unwound.Msg.Payout.Status != "draft" {
		t.Errorf("status after unwind = %s", unwound.Msg.Payout.Status)
	}

	got, err := client.GetPayout(ctx, connect.NewRequest(&api.GetPayoutRequest{ShowID: "show-1"}))
	if err != nil {
		t.Fatalf("GetPayout failed: %v", err)
	}
	if len(got.Msg.Events) != 3 {
		t.Fatalf("got %d events, want 3", len(got.Msg.Events))
	}
	for _, e := range got.Msg.Events {
		if e.Actor != "Alice" {
			t.Errorf("event actor = %q, want Alice", e.Actor)
		}
	}
	if last := got.Msg.Events[2]; last.FromStatus != "paid" || last.ToStatus != "draft" || last.Reason != "wrong check amount" {
		t.Errorf("unwind event = %+v", last)
	}
}

func TestPayoutService_FailureReasons(t *testing.T) {
	ctx := context.Background()
	client := setupTestServer(t)

	noFinancials := scenarioShow("show-nofin")
	noFinancials.Financials = nil
	mustUpsert(t, client, noFinancials)

	noCast := scenarioShow("show-nocast")
	noCast.Roster = nil
	mustUpsert(t, client, noCast)

	mustUpsert(t, client, scenarioShow("show-1"))

	_, err := client.CalculatePayout(ctx, connect.NewRequest(&api.CalculatePayoutRequest{ShowID: "show-1"}))
	assertFailure(t, err, connect.CodeFailedPrecondition, "no_rules")

	mustDefaultScheme(t, client, `{"distribution": {"method": "equal"}}`)

	tests := []struct {
		name   string
		req    *api.CalculatePayoutRequest
		code   connect.Code
		reason string
	}{
		{name: "unknown show", req: &api.CalculatePayoutRequest{ShowID: "nope"}, code: connect.CodeNotFound, reason: "no_show"},
		{name: "no financial data", req: &api.CalculatePayoutRequest{ShowID: "show-nofin"}, code: connect.CodeFailedPrecondition, reason: "no_financial_data"},
		{name: "no performers", req: &api.CalculatePayoutRequest{ShowID: "show-nocast"}, code: connect.CodeFailedPrecondition, reason: "no_performers"},
		{
			name:   "unknown method",
			req:    &api.CalculatePayoutRequest{ShowID: "show-1", OverrideRules: json.RawMessage(`{"distribution": {"method": "raffle"}}`)},
			code:   connect.CodeInvalidArgument,
			reason: "invalid_rules",
		},
		{name: "missing show id", req: &api.CalculatePayoutRequest{}, code: connect.CodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.CalculatePayout(ctx, connect.NewRequest(tt.req))
			assertFailure(t, err, tt.code, tt.reason)
		})
	}

	t.Run("failed override calculation stores no payout", func(t *testing.T) {
		_, err := client.CalculatePayout(ctx, connect.NewRequest(&api.CalculatePayoutRequest{
			ShowID:        "show-nocast",
			OverrideRules: json.RawMessage(`{"distribution": {"method": "no_pay"}}`),
		}))
		assertFailure(t, err, connect.CodeFailedPrecondition, "no_performers")

		_, err = client.GetPayout(ctx, connect.NewRequest(&api.GetPayoutRequest{ShowID: "show-nocast"}))
		if connect.CodeOf(err) != connect.CodeNotFound {
			t.Errorf("GetPayout after failed calculation: %v, want NotFound", err)
		}
	})

	t.Run("person id shaped like a group key", func(t *testing.T) {
		show := scenarioShow("show-collide")
		show.Roster = append(show.Roster, api.RoleAssignment{RoleName: "Swing", Payee: api.Payee{Type: "Person", ID: "group:g1"}})
		_, err := client.UpsertShow(ctx, connect.NewRequest(&api.UpsertShowRequest{Show: show}))
		if connect.CodeOf(err) != connect.CodeInvalidArgument {
			t.Errorf("UpsertShow: %v, want InvalidArgument", err)
		}
	})
}

func TestPayoutService_PreviewPayout(t *testing.T) {
	ctx := context.Background()
	client := setupTestServer(t)

	financials := scenarioShow("x").Financials
	tests := []struct {
		name       string
		req        *api.PreviewPayoutRequest
		wantPer    string
		wantTotal  string
		wantCode   connect.Code
		wantReason string
	}{
		{
			name:      "equal",
			req:       &api.PreviewPayoutRequest{Rules: json.RawMessage(`{"distribution": {"method": "equal"}}`), Financials: financials, PerformerCount: 4},
			wantPer:   "300.00",
			wantTotal: "1200.00",
		},
		{
			name:      "guaranteed minimum",
			req:       &api.PreviewPayoutRequest{Rules: json.RawMessage(`{"distribution": {"method": "per_ticket_guaranteed", "per_ticket_rate": 1, "minimum": 150}}`), Financials: financials, PerformerCount: 2},
			wantPer:   "150.00",
			wantTotal: "300.00",
		},
		{
			name:     "bad amount",
			req:      &api.PreviewPayoutRequest{Rules: json.RawMessage(`{"distribution": {"method": "equal"}}`), Financials: &api.Financials{TicketRevenue: "lots", DataConfirmed: true}, PerformerCount: 2},
			wantCode: connect.CodeInvalidArgument,
		},
		{
			name:       "no rules",
			req:        &api.PreviewPayoutRequest{Financials: financials, PerformerCount: 2},
			wantCode:   connect.CodeFailedPrecondition,
			wantReason: "no_rules",
		},
		{
			name:       "no performers",
			req:        &api.PreviewPayoutRequest{Rules: json.RawMessage(`{"distribution": {"method": "equal"}}`), Financials: financials},
			wantCode:   connect.CodeFailedPrecondition,
			wantReason: "no_performers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := client.PreviewPayout(ctx, connect.NewRequest(tt.req))
			if tt.wantCode != 0 {
				assertFailure(t, err, tt.wantCode, tt.wantReason)
				return
			}
			if err != nil {
				t.Fatalf("PreviewPayout failed: %v", err)
			}
			if resp.Msg.PerPerson != tt.wantPer || resp.Msg.Total != tt.wantTotal {
				t.Errorf("preview = %+v, want %s / %s", resp.Msg, tt.wantPer, tt.wantTotal)
			}
		})
	}
}

func TestPayoutService_Schemes(t *testing.T) {
	ctx := context.Background()
	client := setupTestServer(t)

	first := mustDefaultScheme(t, client, `{"distribution": {"method": "equal"}}`)
	second, err := client.SaveScheme(ctx, connect.NewRequest(&api.SaveSchemeRequest{
		ProductionID: "prod-1", Name: "flat", Rules: json.RawMessage(`{"distribution": {"method": "flat_fee", "flat_amount": 75}}`),
	}))
	if err != nil {
		t.Fatalf("SaveScheme failed: %v", err)
	}

	_, err = client.SaveScheme(ctx, connect.NewRequest(&api.SaveSchemeRequest{
		ProductionID: "prod-1", Name: "flat", Rules: json.RawMessage(`{"distribution": {"method": "no_pay"}}`),
	}))
	if connect.CodeOf(err) != connect.CodeAlreadyExists {
		t.Errorf("duplicate name: %v, want AlreadyExists", err)
	}

	updated, err := client.SaveScheme(ctx, connect.NewRequest(&api.SaveSchemeRequest{
		ID: second.Msg.Scheme.ID, Rules: json.RawMessage(`{"distribution": {"method": "flat_fee", "flat_amount": 80}}`), IsDefault: true,
	}))
	if err != nil {
		t.Fatalf("SaveScheme update failed: %v", err)
	}
	if updated.Msg.Scheme.Version != 2 || !updated.Msg.Scheme.IsDefault {
		t.Errorf("updated scheme = %+v", updated.Msg.Scheme)
	}

	list, err := client.ListSchemes(ctx, connect.NewRequest(&api.ListSchemesRequest{ProductionID: "prod-1"}))
	if err != nil {
		t.Fatalf("ListSchemes failed: %v", err)
	}
	for _, s := range list.Msg.Schemes {
		if s.IsDefault != (s.ID == second.Msg.Scheme.ID) {
			t.Errorf("scheme %s default = %v", s.Name, s.IsDefault)
		}
	}

	show := scenarioShow("show-1")
	show.PayoutSchemeID = first.ID
	mustUpsert(t, client, show)
	_, err = client.DeleteScheme(ctx, connect.NewRequest(&api.DeleteSchemeRequest{SchemeID: first.ID}))
	if connect.CodeOf(err) != connect.CodeFailedPrecondition {
		t.Errorf("delete referenced scheme: %v, want FailedPrecondition", err)
	}

	if _, err := client.SetDefaultScheme(ctx, connect.NewRequest(&api.SetDefaultSchemeRequest{ProductionID: "prod-1", SchemeID: first.ID})); err != nil {
		t.Fatalf("SetDefaultScheme failed: %v", err)
	}
	if _, err := client.DeleteScheme(ctx, connect.NewRequest(&api.DeleteSchemeRequest{SchemeID: second.Msg.Scheme.ID})); err != nil {
		t.Errorf("DeleteScheme failed: %v", err)
	}
	_, err = client.SetDefaultScheme(ctx, connect.NewRequest(&api.SetDefaultSchemeRequest{ProductionID: "prod-2", SchemeID: first.ID}))
	if connect.CodeOf(err) != connect.CodeNotFound {
		t.Errorf("default from another production: %v, want NotFound", err)
	}
}

func TestPayoutService_Advances(t *testing.T) {
	ctx := context.Background()
	client := setupTestServer(t)
	mustDefaultScheme(t, client, `{"distribution": {"method": "equal"}}`)
	mustUpsert(t, client, scenarioShow("show-1"))

	created, err := client.CreateAdvance(ctx, connect.NewRequest(&api.CreateAdvanceRequest{
		PersonID: "p1", ProductionID: "prod-1", Amount: "150", Note: "bus fare",
	}))
	if err != nil {
		t.Fatalf("CreateAdvance failed: %v", err)
	}
	adv := created.Msg.Advance
	if adv.Status != "pending" || adv.RemainingBalance != "150.00" {
		t.Errorf("advance = %+v", adv)
	}

	if _, err := client.CreateAdvance(ctx, connect.NewRequest(&api.CreateAdvanceRequest{
		PersonID: "p1", ProductionID: "prod-1", Amount: "0",
	})); connect.CodeOf(err) != connect.CodeInvalidArgument {
		t.Errorf("zero advance: %v, want InvalidArgument", err)
	}

	calc, err := client.CalculatePayout(ctx, connect.NewRequest(&api.CalculatePayoutRequest{ShowID: "show-1"}))
	if err != nil {
		t.Fatalf("CalculatePayout failed: %v", err)
	}
	p1 := calc.Msg.LineItems[0]
	if p1.Amount != "400.00" || p1.AdvanceDeduction != "150.00" || p1.NetAmount != "250.00" {
		t.Errorf("p1 line item = %+v", p1)
	}

	list, err := client.ListAdvances(ctx, connect.NewRequest(&api.ListAdvancesRequest{PersonID: "p1", OutstandingOnly: true}))
	if err != nil {
		t.Fatalf("ListAdvances failed: %v", err)
	}
	if len(list.Msg.Advances) != 0 {
		t.Errorf("outstanding advances = %+v, want none", list.Msg.Advances)
	}

	_, err = client.WriteOffAdvance(ctx, connect.NewRequest(&api.WriteOffAdvanceRequest{AdvanceID: adv.ID}))
	if connect.CodeOf(err) != connect.CodeFailedPrecondition {
		t.Errorf("write off settled advance: %v, want FailedPrecondition", err)
	}

	second, err := client.CreateAdvance(ctx, connect.NewRequest(&api.CreateAdvanceRequest{
		PersonID: "p1", ProductionID: "prod-1", Amount: "20",
	}))
	if err != nil {
		t.Fatal(err)
	}
	off, err := client.WriteOffAdvance(ctx, connect.NewRequest(&api.WriteOffAdvanceRequest{AdvanceID: second.Msg.Advance.ID}))
	if err != nil {
		t.Fatalf("WriteOffAdvance failed: %v", err)
	}
	if off.Msg.Advance.Status != "written_off" {
		t.Errorf("status = %s, want written_off", off.Msg.Advance.Status)
	}
}

func TestPayoutService_RequireAuth(t *testing.T) {
	ctx := context.Background()
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	client := setupTestServer(t, middleware.RequireAuth(jwtManager), middleware.LoggingInterceptor(nil))

	req := &api.ListSchemesRequest{ProductionID: "prod-1"}
	if _, err := client.ListSchemes(ctx, connect.NewRequest(req)); connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("no token: %v, want Unauthenticated", err)
	}

	bad := connect.NewRequest(req)
	bad.Header().Set("Authorization", "Bearer nonsense")
	if _, err := client.ListSchemes(ctx, bad); connect.CodeOf(err) != connect.CodeUnauthenticated {
		t.Errorf("bad token: %v, want Unauthenticated", err)
	}

	token, err := jwtManager.Generate("stage-manager", "sm@example.com")
	if err != nil {
		t.Fatal(err)
	}
	good := connect.NewRequest(req)
	good.Header().Set("Authorization", "Bearer "+token)
	if _, err := client.ListSchemes(ctx, good); err != nil {
		t.Errorf("valid token: %v", err)
	}
}
