package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Request/command layer.
	ErrBadRequest = "E_BAD_REQUEST"
	ErrNotFound   = "E_NOT_FOUND"
	ErrNoResource = "E_NO_RESOURCE"
	ErrAllocation = "E_ALLOCATION"
	ErrConflict   = "E_CONFLICT"
	ErrInternal   = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrNotFound:        {},
	ErrNoResource:      {},
	ErrAllocation:      {},
	ErrConflict:        {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// ErrorBody is the JSON error envelope every API surface returns.
type ErrorBody struct {
	Code    string             `json:"code"`
	Message string             `json:"message"`
	Missing map[string]float64 `json:"missing,omitempty"`
}
