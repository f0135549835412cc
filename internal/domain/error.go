package domain

var (
	ErrProviderUnavailable = errSentinel("wallet provider unavailable")
	ErrConnectionRejected  = errSentinel("wallet connection rejected")
	ErrNoSigner            = errSentinel("no signer available")
	ErrUploadFailed        = errSentinel("upload failed")
	ErrInvalidAmount       = errSentinel("invalid amount")
	ErrGatewayCall         = errSentinel("gateway call failed")
	ErrMetadataFetch       = errSentinel("metadata fetch failed")
	ErrInvalidInput        = errSentinel("invalid input")
)

type errSentinel string

func (e errSentinel) Error() string { return string(e) }
