package grpc

import (
	"context"
	"errors"
	"time"

	domainErrors "github.com/wekeepgrowing/momo-checkout/internal/domain/errors"
	"github.com/wekeepgrowing/momo-checkout/internal/domain/model"
	"github.com/wekeepgrowing/momo-checkout/internal/usecase"
	pkgErrors "github.com/wekeepgrowing/momo-checkout/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// StatusServiceName is the fully qualified name of the session lookup service.
// Requests and responses are google.protobuf.Struct so no generated stubs are
// needed.
const StatusServiceName = "momo.payment.v1.PaymentStatus"

const GetSessionMethod = "/" + StatusServiceName + "/GetSession"

type StatusServer interface {
	GetSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// StatusServiceDesc registers a StatusServer on a grpc.Server.
var StatusServiceDesc = grpc.ServiceDesc{
	ServiceName: StatusServiceName,
	HandlerType: (*StatusServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetSession",
			Handler:    getSessionHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "momo/payment/v1/status",
}

func getSessionHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StatusServer).GetSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetSessionMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(StatusServer).GetSession(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// StatusHandler serves read-only session lookups for internal callers.
type StatusHandler struct {
	sessions *usecase.SessionManager
	logger   *zap.Logger
}

func NewStatusHandler(sessions *usecase.SessionManager, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// GetSession accepts {"reference": "..."}.
func (h *StatusHandler) GetSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	reference := req.GetFields()["reference"].GetStringValue()
	if reference == "" {
		return nil, pkgErrors.ToGRPCError(pkgErrors.NewAppError(pkgErrors.ErrInvalidArgument, "reference is required", nil))
	}

	session, err := h.sessions.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, domainErrors.ErrSessionNotFound) {
			return nil, pkgErrors.ToGRPCError(pkgErrors.NewAppError(pkgErrors.ErrNotFound, "Payment session not found", err))
		}
		appErr := pkgErrors.NewAppError(pkgErrors.ErrInternal, "Failed to load payment session", err)
		pkgErrors.LogError(h.logger, appErr, "gRPC session lookup failed", zap.String("reference", reference))
		return nil, pkgErrors.ToGRPCError(appErr)
	}

	resp, err := structpb.NewStruct(sessionFields(session))
	if err != nil {
		return nil, pkgErrors.ToGRPCError(pkgErrors.NewAppError(pkgErrors.ErrInternal, "Failed to encode session", err))
	}
	return resp, nil
}

func sessionFields(session *model.PaymentSession) map[string]interface{} {
	fields := map[string]interface{}{
		"id":                    session.ID.String(),
		"transaction_reference": session.TransactionReference,
		"user_id":               session.UserID.String(),
		"status":                string(session.Status),
		"amount":                session.Amount.StringFixed(2),
		"currency":              session.Currency,
		"provider":              string(session.Provider),
		"created_at":            session.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":            session.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if session.OrderID != nil {
		fields["order_id"] = session.OrderID.String()
	}
	if session.FailureReason != nil {
		fields["failure_reason"] = *session.FailureReason
	}
	if session.GatewayTransactionID != nil {
		fields["gateway_transaction_id"] = *session.GatewayTransactionID
	}
	return fields
}
