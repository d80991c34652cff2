package errors

// 공통 에러 코드 정의
const (
	ErrInternal        = "INTERNAL"
	ErrNotFound        = "NOT_FOUND"
	ErrInvalidArgument = "INVALID_ARGUMENT"
	ErrUnauthenticated = "UNAUTHENTICATED"
	ErrUnauthorized    = "UNAUTHORIZED"
	ErrConflict        = "CONFLICT"
	ErrTimeout         = "TIMEOUT"

	// 결제 도메인 에러 코드
	ErrGatewayUnavailable = "GATEWAY_UNAVAILABLE"
	ErrGatewayRejected    = "GATEWAY_REJECTED"
	ErrTooEarly           = "TOO_EARLY"
	ErrPreconditionFailed = "PRECONDITION_FAILED"
)

// CodePair는 프레임워크 간 코드 매핑을 위한 구조체입니다
type CodePair struct {
	HTTPStatus int
	GRPCCode   int
}

var codeMapping = map[string]CodePair{
	ErrInternal:           {500, 13}, // INTERNAL
	ErrNotFound:           {404, 5},  // NOT_FOUND
	ErrInvalidArgument:    {400, 3},  // INVALID_ARGUMENT
	ErrUnauthenticated:    {401, 16}, // UNAUTHENTICATED
	ErrUnauthorized:       {403, 7},  // PERMISSION_DENIED
	ErrConflict:           {409, 6},  // ALREADY_EXISTS
	ErrTimeout:            {504, 4},  // DEADLINE_EXCEEDED
	ErrGatewayUnavailable: {502, 14}, // UNAVAILABLE
	ErrGatewayRejected:    {402, 9},  // FAILED_PRECONDITION
	ErrTooEarly:           {429, 8},  // RESOURCE_EXHAUSTED
	ErrPreconditionFailed: {422, 9},  // FAILED_PRECONDITION
}

// GetCodeMapping은 특정 에러 코드에 대한 HTTP 및 gRPC 코드 매핑을 반환합니다
func GetCodeMapping(code string) (int, int) {
	if pair, ok := codeMapping[code]; ok {
		return pair.HTTPStatus, pair.GRPCCode
	}
	return 500, 13
}
