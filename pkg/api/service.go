package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// PayoutServiceName is the fully-qualified name of the PayoutService.
const PayoutServiceName = "showpayouts.v1.PayoutService"

// Procedure paths, used for routing and in interceptors.
const (
	PayoutServiceUpsertShowProcedure       = "/" + PayoutServiceName + "/UpsertShow"
	PayoutServiceCalculatePayoutProcedure  = "/" + PayoutServiceName + "/CalculatePayout"
	PayoutServicePreviewPayoutProcedure    = "/" + PayoutServiceName + "/PreviewPayout"
	PayoutServiceGetPayoutProcedure        = "/" + PayoutServiceName + "/GetPayout"
	PayoutServiceTransitionPayoutProcedure = "/" + PayoutServiceName + "/TransitionPayout"
	PayoutServiceMarkLineItemPaidProcedure = "/" + PayoutServiceName + "/MarkLineItemPaid"
	PayoutServiceSaveSchemeProcedure       = "/" + PayoutServiceName + "/SaveScheme"
	PayoutServiceSetDefaultSchemeProcedure = "/" + PayoutServiceName + "/SetDefaultScheme"
	PayoutServiceDeleteSchemeProcedure     = "/" + PayoutServiceName + "/DeleteScheme"
	PayoutServiceListSchemesProcedure      = "/" + PayoutServiceName + "/ListSchemes"
	PayoutServiceCreateAdvanceProcedure    = "/" + PayoutServiceName + "/CreateAdvance"
	PayoutServiceWriteOffAdvanceProcedure  = "/" + PayoutServiceName + "/WriteOffAdvance"
	PayoutServiceListAdvancesProcedure     = "/" + PayoutServiceName + "/ListAdvances"
)

// PayoutServiceHandler is implemented by the server.
type PayoutServiceHandler interface {
	UpsertShow(context.Context, *connect.Request[UpsertShowRequest]) (*connect.Response[UpsertShowResponse], error)
	CalculatePayout(context.Context, *connect.Request[CalculatePayoutRequest]) (*connect.Response[CalculatePayoutResponse], error)
	PreviewPayout(context.Context, *connect.Request[PreviewPayoutRequest]) (*connect.Response[PreviewPayoutResponse], error)
	GetPayout(context.Context, *connect.Request[GetPayoutRequest]) (*connect.Response[GetPayoutResponse], error)
	TransitionPayout(context.Context, *connect.Request[TransitionPayoutRequest]) (*connect.Response[TransitionPayoutResponse], error)
	MarkLineItemPaid(context.Context, *connect.Request[MarkLineItemPaidRequest]) (*connect.Response[MarkLineItemPaidResponse], error)
	SaveScheme(context.Context, *connect.Request[SaveSchemeRequest]) (*connect.Response[SaveSchemeResponse], error)
	SetDefaultScheme(context.Context, *connect.Request[SetDefaultSchemeRequest]) (*connect.Response[SetDefaultSchemeResponse], error)
	DeleteScheme(context.Context, *connect.Request[DeleteSchemeRequest]) (*connect.Response[DeleteSchemeResponse], error)
	ListSchemes(context.Context, *connect.Request[ListSchemesRequest]) (*connect.Response[ListSchemesResponse], error)
	CreateAdvance(context.Context, *connect.Request[CreateAdvanceRequest]) (*connect.Response[CreateAdvanceResponse], error)
	WriteOffAdvance(context.Context, *connect.Request[WriteOffAdvanceRequest]) (*connect.Response[WriteOffAdvanceResponse], error)
	ListAdvances(context.Context, *connect.Request[ListAdvancesRequest]) (*connect.Response[ListAdvancesResponse], error)
}

// NewPayoutServiceHandler builds an HTTP handler for svc. It returns the path
// to mount the handler on.
func NewPayoutServiceHandler(svc PayoutServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
	handlers := map[string]http.Handler{
		PayoutServiceUpsertShowProcedure:       connect.NewUnaryHandler(PayoutServiceUpsertShowProcedure, svc.UpsertShow, opts...),
		PayoutServiceCalculatePayoutProcedure:  connect.NewUnaryHandler(PayoutServiceCalculatePayoutProcedure, svc.CalculatePayout, opts...),
		PayoutServicePreviewPayoutProcedure:    connect.NewUnaryHandler(PayoutServicePreviewPayoutProcedure, svc.PreviewPayout, opts...),
		PayoutServiceGetPayoutProcedure:        connect.NewUnaryHandler(PayoutServiceGetPayoutProcedure, svc.GetPayout, opts...),
		PayoutServiceTransitionPayoutProcedure: connect.NewUnaryHandler(PayoutServiceTransitionPayoutProcedure, svc.TransitionPayout, opts...),
		PayoutServiceMarkLineItemPaidProcedure: connect.NewUnaryHandler(PayoutServiceMarkLineItemPaidProcedure, svc.MarkLineItemPaid, opts...),
		PayoutServiceSaveSchemeProcedure:       connect.NewUnaryHandler(PayoutServiceSaveSchemeProcedure, svc.SaveScheme, opts...),
		PayoutServiceSetDefaultSchemeProcedure: connect.NewUnaryHandler(PayoutServiceSetDefaultSchemeProcedure, svc.SetDefaultScheme, opts...),
		PayoutServiceDeleteSchemeProcedure:     connect.NewUnaryHandler(PayoutServiceDeleteSchemeProcedure, svc.DeleteScheme, opts...),
		PayoutServiceListSchemesProcedure:      connect.NewUnaryHandler(PayoutServiceListSchemesProcedure, svc.ListSchemes, opts...),
		PayoutServiceCreateAdvanceProcedure:    connect.NewUnaryHandler(PayoutServiceCreateAdvanceProcedure, svc.CreateAdvance, opts...),
		PayoutServiceWriteOffAdvanceProcedure:  connect.NewUnaryHandler(PayoutServiceWriteOffAdvanceProcedure, svc.WriteOffAdvance, opts...),
		PayoutServiceListAdvancesProcedure:     connect.NewUnaryHandler(PayoutServiceListAdvancesProcedure, svc.ListAdvances, opts...),
	}

	prefix := "/" + PayoutServiceName + "/"
	return prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h, ok := handlers[r.URL.Path]; ok {
			h.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// PayoutServiceClient calls a PayoutService server.
type PayoutServiceClient interface {
	UpsertShow(context.Context, *connect.Request[UpsertShowRequest]) (*connect.Response[UpsertShowResponse], error)
	CalculatePayout(context.Context, *connect.Request[CalculatePayoutRequest]) (*connect.Response[CalculatePayoutResponse], error)
	PreviewPayout(context.Context, *connect.Request[PreviewPayoutRequest]) (*connect.Response[PreviewPayoutResponse], error)
	GetPayout(context.Context, *connect.Request[GetPayoutRequest]) (*connect.Response[GetPayoutResponse], error)
	TransitionPayout(context.Context, *connect.Request[TransitionPayoutRequest]) (*connect.Response[TransitionPayoutResponse], error)
	MarkLineItemPaid(context.Context, *connect.Request[MarkLineItemPaidRequest]) (*connect.Response[MarkLineItemPaidResponse], error)
	SaveScheme(context.Context, *connect.Request[SaveSchemeRequest]) (*connect.Response[SaveSchemeResponse], error)
	SetDefaultScheme(context.Context, *connect.Request[SetDefaultSchemeRequest]) (*connect.Response[SetDefaultSchemeResponse], error)
	DeleteScheme(context.Context, *connect.Request[DeleteSchemeRequest]) (*connect.Response[DeleteSchemeResponse], error)
	ListSchemes(context.Context, *connect.Request[ListSchemesRequest]) (*connect.Response[ListSchemesResponse], error)
	CreateAdvance(context.Context, *connect.Request[CreateAdvanceRequest]) (*connect.Response[CreateAdvanceResponse], error)
	WriteOffAdvance(context.Context, *connect.Request[WriteOffAdvanceRequest]) (*connect.Response[WriteOffAdvanceResponse], error)
	ListAdvances(context.Context, *connect.Request[ListAdvancesRequest]) (*connect.Response[ListAdvancesResponse], error)
}

type payoutServiceClient struct {
	upsertShow       *connect.Client[UpsertShowRequest, UpsertShowResponse]
	calculatePayout  *connect.Client[CalculatePayoutRequest, CalculatePayoutResponse]
	previewPayout    *connect.Client[PreviewPayoutRequest, PreviewPayoutResponse]
	getPayout        *connect.Client[GetPayoutRequest, GetPayoutResponse]
	transitionPayout *connect.Client[TransitionPayoutRequest, TransitionPayoutResponse]
	markLineItemPaid *connect.Client[MarkLineItemPaidRequest, MarkLineItemPaidResponse]
	saveScheme       *connect.Client[SaveSchemeRequest, SaveSchemeResponse]
	setDefaultScheme *connect.Client[SetDefaultSchemeRequest, SetDefaultSchemeResponse]
	deleteScheme     *connect.Client[DeleteSchemeRequest, DeleteSchemeResponse]
	listSchemes      *connect.Client[ListSchemesRequest, ListSchemesResponse]
	createAdvance    *connect.Client[CreateAdvanceRequest, CreateAdvanceResponse]
	writeOffAdvance  *connect.Client[WriteOffAdvanceRequest, WriteOffAdvanceResponse]
	listAdvances     *connect.Client[ListAdvancesRequest, ListAdvancesResponse]
}

// NewPayoutServiceClient creates a client for the server at baseURL, for
// example http://localhost:8080.
func NewPayoutServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) PayoutServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &payoutServiceClient{
		upsertShow:       connect.NewClient[UpsertShowRequest, UpsertShowResponse](httpClient, baseURL+PayoutServiceUpsertShowProcedure, opts...),
		calculatePayout:  connect.NewClient[CalculatePayoutRequest, CalculatePayoutResponse](httpClient, baseURL+PayoutServiceCalculatePayoutProcedure, opts...),
		previewPayout:    connect.NewClient[PreviewPayoutRequest, PreviewPayoutResponse](httpClient, baseURL+PayoutServicePreviewPayoutProcedure, opts...),
		getPayout:        connect.NewClient[GetPayoutRequest, GetPayoutResponse](httpClient, baseURL+PayoutServiceGetPayoutProcedure, opts...),
		transitionPayout: connect.NewClient[TransitionPayoutRequest, TransitionPayoutResponse](httpClient, baseURL+PayoutServiceTransitionPayoutProcedure, opts...),
		markLineItemPaid: connect.NewClient[MarkLineItemPaidRequest, MarkLineItemPaidResponse](httpClient, baseURL+PayoutServiceMarkLineItemPaidProcedure, opts...),
		saveScheme:       connect.NewClient[SaveSchemeRequest, SaveSchemeResponse](httpClient, baseURL+PayoutServiceSaveSchemeProcedure, opts...),
		setDefaultScheme: connect.NewClient[SetDefaultSchemeRequest, SetDefaultSchemeResponse](httpClient, baseURL+PayoutServiceSetDefaultSchemeProcedure, opts...),
		deleteScheme:     connect.NewClient[DeleteSchemeRequest, DeleteSchemeResponse](httpClient, baseURL+PayoutServiceDeleteSchemeProcedure, opts...),
		listSchemes:      connect.NewClient[ListSchemesRequest, ListSchemesResponse](httpClient, baseURL+PayoutServiceListSchemesProcedure, opts...),
		createAdvance:    connect.NewClient[CreateAdvanceRequest, CreateAdvanceResponse](httpClient, baseURL+PayoutServiceCreateAdvanceProcedure, opts...),
		writeOffAdvance:  connect.NewClient[WriteOffAdvanceRequest, WriteOffAdvanceResponse](httpClient, baseURL+PayoutServiceWriteOffAdvanceProcedure, opts...),
		listAdvances:     connect.NewClient[ListAdvancesRequest, ListAdvancesResponse](httpClient, baseURL+PayoutServiceListAdvancesProcedure, opts...),
	}
}

func (c *payoutServiceClient) UpsertShow(ctx context.Context, req *connect.Request[UpsertShowRequest]) (*connect.Response[UpsertShowResponse], error) {
	return c.upsertShow.CallUnary(ctx, req)
}

func (c *payoutServiceClient) CalculatePayout(ctx context.Context, req *connect.Request[CalculatePayoutRequest]) (*connect.Response[CalculatePayoutResponse], error) {
	return c.calculatePayout.CallUnary(ctx, req)
}

func (c *payoutServiceClient) PreviewPayout(ctx context.Context, req *connect.Request[PreviewPayoutRequest]) (*connect.Response[PreviewPayoutResponse], error) {
	return c.previewPayout.CallUnary(ctx, req)
}

func (c *payoutServiceClient) GetPayout(ctx context.Context, req *connect.Request[GetPayoutRequest]) (*connect.Response[GetPayoutResponse], error) {
	return c.getPayout.CallUnary(ctx, req)
}

func (c *payoutServiceClient) TransitionPayout(ctx context.Context, req *connect.Request[TransitionPayoutRequest]) (*connect.Response[TransitionPayoutResponse], error) {
	return c.transitionPayout.CallUnary(ctx, req)
}

func (c *payoutServiceClient) MarkLineItemPaid(ctx context.Context, req *connect.Request[MarkLineItemPaidRequest]) (*connect.Response[MarkLineItemPaidResponse], error) {
	return c.markLineItemPaid.CallUnary(ctx, req)
}

func (c *payoutServiceClient) SaveScheme(ctx context.Context, req *connect.Request[SaveSchemeRequest]) (*connect.Response[SaveSchemeResponse], error) {
	return c.saveScheme.CallUnary(ctx, req)
}

func (c *payoutServiceClient) SetDefaultScheme(ctx context.Context, req *connect.Request[SetDefaultSchemeRequest]) (*connect.Response[SetDefaultSchemeResponse], error) {
	return c.setDefaultScheme.CallUnary(ctx, req)
}

func (c *payoutServiceClient) DeleteScheme(ctx context.Context, req *connect.Request[DeleteSchemeRequest]) (*connect.Response[DeleteSchemeResponse], error) {
	return c.deleteScheme.CallUnary(ctx, req)
}

func (c *payoutServiceClient) ListSchemes(ctx context.Context, req *connect.Request[ListSchemesRequest]) (*connect.Response[ListSchemesResponse], error) {
	return c.listSchemes.CallUnary(ctx, req)
}

func (c *payoutServiceClient) CreateAdvance(ctx context.Context, req *connect.Request[CreateAdvanceRequest]) (*connect.Response[CreateAdvanceResponse], error) {
	return c.createAdvance.CallUnary(ctx, req)
}

func (c *payoutServiceClient) WriteOffAdvance(ctx context.Context, req *connect.Request[WriteOffAdvanceRequest]) (*connect.Response[WriteOffAdvanceResponse], error) {
	return c.writeOffAdvance.CallUnary(ctx, req)
}

func (c *payoutServiceClient) ListAdvances(ctx context.Context, req *connect.Request[ListAdvancesRequest]) (*connect.Response[ListAdvancesResponse], error) {
	return c.listAdvances.CallUnary(ctx, req)
}
