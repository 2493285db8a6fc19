package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/showpayouts/internal/middleware"
	"github.com/mmynk/showpayouts/internal/models"
	"github.com/mmynk/showpayouts/internal/payout"
	"github.com/mmynk/showpayouts/internal/rules"
	"github.com/mmynk/showpayouts/internal/storage"
	"github.com/mmynk/showpayouts/pkg/api"
)

// PayoutService implements the Connect PayoutService.
type PayoutService struct {
	store    storage.Store
	calc     *payout.Calculator
	schemes  *payout.Schemes
	advances *payout.Advances
	logger   *slog.Logger
}

var _ api.PayoutServiceHandler = (*PayoutService)(nil)

// NewPayoutService creates a PayoutService with the given storage backend.
// opts configure the underlying calculator, scheme and advance managers.
func NewPayoutService(store storage.Store, logger *slog.Logger, opts ...payout.Option) *PayoutService {
	if logger == nil {
		logger = slog.Default()
	}
	opts = append([]payout.Option{payout.WithLogger(logger)}, opts...)
	return &PayoutService{
		store:    store,
		calc:     payout.NewCalculator(store, opts...),
		schemes:  payout.NewSchemes(store, opts...),
		advances: payout.NewAdvances(store, opts...),
		logger:   logger,
	}
}

// toConnectError maps domain errors to Connect codes. Calculation failures
// also carry their reason in the Payout-Failure-Reason header.
func toConnectError(err error) error {
	if reason := reasonFromPayout(err); reason != "" {
		code := connect.CodeFailedPrecondition
		switch payout.Reason(reason) {
		case payout.ReasonNoShow:
			code = connect.CodeNotFound
		case payout.ReasonInvalidRules:
			code = connect.CodeInvalidArgument
		case payout.ReasonConcurrentUpdate:
			code = connect.CodeAborted
		}
		cerr := connect.NewError(code, err)
		cerr.Meta().Set(middleware.FailureReasonHeader, reason)
		return cerr
	}

	var verr *rules.ValidationError
	switch {
	case errors.Is(err, errInvalidInput), errors.As(err, &verr), errors.Is(err, rules.ErrEmpty),
		errors.Is(err, payout.ErrReasonRequired):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, storage.ErrConflict):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, storage.ErrStaleVersion):
		return connect.NewError(connect.CodeAborted, err)
	case errors.Is(err, storage.ErrInUse), errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, payout.ErrNotApproved), errors.Is(err, payout.ErrAdvanceClosed):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

// UpsertShow stores a show with its financials and roster.
func (s *PayoutService) UpsertShow(ctx context.Context, req *connect.Request[api.UpsertShowRequest]) (*connect.Response[api.UpsertShowResponse], error) {
	show, err := showFromAPI(req.Msg.Show)
	if err != nil {
		return nil, toConnectError(err)
	}
	if err := s.store.UpsertShow(ctx, show); err != nil {
		s.logger.Error("UpsertShow failed", "show_id", show.ID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.UpsertShowResponse{ShowID: show.ID}), nil
}

// CalculatePayout (re)calculates a show's draft payout.
func (s *PayoutService) CalculatePayout(ctx context.Context, req *connect.Request[api.CalculatePayoutRequest]) (*connect.Response[api.CalculatePayoutResponse], error) {
	if req.Msg.ShowID == "" {
		return nil, toConnectError(invalidf("show_id is required"))
	}

	var (
		res *payout.Result
		err error
	)
	if len(req.Msg.OverrideRules) > 0 {
		res, err = s.calc.CalculateWithOverride(ctx, req.Msg.ShowID, req.Msg.OverrideRules)
	} else {
		res, err = s.calc.CalculateForShow(ctx, req.Msg.ShowID)
	}
	if err != nil {
		return nil, toConnectError(err)
	}
	items, err := lineItemsToAPI(res.LineItems)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.CalculatePayoutResponse{
		Payout:     payoutToAPI(res.Payout),
		LineItems:  items,
		Allocation: allocationToAPI(res.Allocation),
		Warnings:   res.Warnings,
	}), nil
}

// PreviewPayout estimates per-person payouts without touching storage.
func (s *PayoutService) PreviewPayout(ctx context.Context, req *connect.Request[api.PreviewPayoutRequest]) (*connect.Response[api.PreviewPayoutResponse], error) {
	var r *rules.Rules
	if len(req.Msg.Rules) > 0 {
		parsed, err := rules.Parse(req.Msg.Rules)
		if err != nil {
			return nil, toConnectError(err)
		}
		r = parsed
	}
	financials, err := financialsFromAPI(req.Msg.Financials)
	if err != nil {
		return nil, toConnectError(err)
	}

	res, err := payout.Preview(r, financials, req.Msg.PerformerCount)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(previewToAPI(res)), nil
}

// GetPayout returns a show's payout, line items and audit events.
func (s *PayoutService) GetPayout(ctx context.Context, req *connect.Request[api.GetPayoutRequest]) (*connect.Response[api.GetPayoutResponse], error) {
	p, items, err := s.calc.GetPayout(ctx, req.Msg.ShowID)
	if err != nil {
		return nil, toConnectError(err)
	}
	events, err := s.calc.Events(ctx, p.ID)
	if err != nil {
		return nil, toConnectError(err)
	}

	apiItems, err := lineItemsToAPI(items)
	if err != nil {
		return nil, toConnectError(err)
	}
	resp := &api.GetPayoutResponse{Payout: payoutToAPI(p), LineItems: apiItems}
	for _, e := range events {
		resp.Events = append(resp.Events, eventToAPI(e))
	}
	return connect.NewResponse(resp), nil
}

// TransitionPayout moves a payout through its lifecycle. The caller is
// recorded as the actor.
func (s *PayoutService) TransitionPayout(ctx context.Context, req *connect.Request[api.TransitionPayoutRequest]) (*connect.Response[api.TransitionPayoutResponse], error) {
	actor := middleware.GetUserID(ctx)
	id := req.Msg.PayoutID

	var (
		p   *models.ShowPayout
		err error
	)
	switch req.Msg.Action {
	case api.ActionApprove:
		p, err = s.calc.Approve(ctx, id, actor)
	case api.ActionRevert:
		p, err = s.calc.RevertToDraft(ctx, id, actor, req.Msg.Reason)
	case api.ActionMarkPaid:
		p, err = s.calc.MarkPaid(ctx, id, actor)
	case api.ActionUnwind:
		p, err = s.calc.Unwind(ctx, id, actor, req.Msg.Reason)
	default:
		err = invalidf("unknown action %q", req.Msg.Action)
	}
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.TransitionPayoutResponse{Payout: payoutToAPI(p)}), nil
}

// MarkLineItemPaid records payment of one line item on an approved payout.
func (s *PayoutService) MarkLineItemPaid(ctx context.Context, req *connect.Request[api.MarkLineItemPaidRequest]) (*connect.Response[api.MarkLineItemPaidResponse], error) {
	li, err := s.calc.MarkLineItemPaid(ctx, req.Msg.LineItemID, req.Msg.Method, req.Msg.Reference)
	if err != nil {
		return nil, toConnectError(err)
	}
	item, err := lineItemToAPI(li)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.MarkLineItemPaidResponse{LineItem: item}), nil
}

// SaveScheme creates a scheme or replaces an existing scheme's rules.
func (s *PayoutService) SaveScheme(ctx context.Context, req *connect.Request[api.SaveSchemeRequest]) (*connect.Response[api.SaveSchemeResponse], error) {
	msg := req.Msg
	if msg.ID == "" {
		if msg.ProductionID == "" || msg.Name == "" {
			return nil, toConnectError(invalidf("production_id and name are required"))
		}
		scheme := &models.PayoutScheme{
			ProductionID: msg.ProductionID,
			Name:         msg.Name,
			Rules:        msg.Rules,
			IsDefault:    msg.IsDefault,
		}
		if err := s.schemes.Create(ctx, scheme); err != nil {
			return nil, toConnectError(err)
		}
		return connect.NewResponse(&api.SaveSchemeResponse{Scheme: schemeToAPI(scheme)}), nil
	}

	scheme, err := s.schemes.UpdateRules(ctx, msg.ID, msg.Rules)
	if err != nil {
		return nil, toConnectError(err)
	}
	if msg.IsDefault && !scheme.IsDefault {
		if err := s.schemes.SetDefault(ctx, scheme.ProductionID, scheme.ID); err != nil {
			return nil, toConnectError(err)
		}
		scheme.IsDefault = true
	}
	return connect.NewResponse(&api.SaveSchemeResponse{Scheme: schemeToAPI(scheme)}), nil
}

func (s *PayoutService) SetDefaultScheme(ctx context.Context, req *connect.Request[api.SetDefaultSchemeRequest]) (*connect.Response[api.SetDefaultSchemeResponse], error) {
	if err := s.schemes.SetDefault(ctx, req.Msg.ProductionID, req.Msg.SchemeID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.SetDefaultSchemeResponse{}), nil
}

func (s *PayoutService) DeleteScheme(ctx context.Context, req *connect.Request[api.DeleteSchemeRequest]) (*connect.Response[api.DeleteSchemeResponse], error) {
	if err := s.schemes.Delete(ctx, req.Msg.SchemeID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.DeleteSchemeResponse{}), nil
}

func (s *PayoutService) ListSchemes(ctx context.Context, req *connect.Request[api.ListSchemesRequest]) (*connect.Response[api.ListSchemesResponse], error) {
	schemes, err := s.schemes.List(ctx, req.Msg.ProductionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	resp := &api.ListSchemesResponse{Schemes: make([]api.Scheme, 0, len(schemes))}
	for _, scheme := range schemes {
		resp.Schemes = append(resp.Schemes, schemeToAPI(scheme))
	}
	return connect.NewResponse(resp), nil
}

// CreateAdvance records money paid to a person ahead of their payouts.
func (s *PayoutService) CreateAdvance(ctx context.Context, req *connect.Request[api.CreateAdvanceRequest]) (*connect.Response[api.CreateAdvanceResponse], error) {
	msg := req.Msg
	if msg.PersonID == "" || msg.ProductionID == "" {
		return nil, toConnectError(invalidf("person_id and production_id are required"))
	}
	amount, err := parseMoney("amount", msg.Amount)
	if err != nil {
		return nil, toConnectError(err)
	}
	if !amount.IsPositive() {
		return nil, toConnectError(invalidf("amount must be positive"))
	}

	adv := &models.PersonAdvance{
		PersonID:       msg.PersonID,
		ProductionID:   msg.ProductionID,
		ShowID:         msg.ShowID,
		OriginalAmount: amount,
		Note:           msg.Note,
	}
	if err := s.advances.Create(ctx, adv); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.CreateAdvanceResponse{Advance: advanceToAPI(adv)}), nil
}

func (s *PayoutService) WriteOffAdvance(ctx context.Context, req *connect.Request[api.WriteOffAdvanceRequest]) (*connect.Response[api.WriteOffAdvanceResponse], error) {
	adv, err := s.advances.WriteOff(ctx, req.Msg.AdvanceID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.WriteOffAdvanceResponse{Advance: advanceToAPI(adv)}), nil
}

func (s *PayoutService) ListAdvances(ctx context.Context, req *connect.Request[api.ListAdvancesRequest]) (*connect.Response[api.ListAdvancesResponse], error) {
	advances, err := s.advances.List(ctx, storage.AdvanceFilter{
		PersonID:        req.Msg.PersonID,
		ProductionID:    req.Msg.ProductionID,
		OutstandingOnly: req.Msg.OutstandingOnly,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	resp := &api.ListAdvancesResponse{Advances: make([]api.Advance, 0, len(advances))}
	for _, adv := range advances {
		resp.Advances = append(resp.Advances, advanceToAPI(adv))
	}
	return connect.NewResponse(resp), nil
}
