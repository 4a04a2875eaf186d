package services

import "errors"

var (
	ErrMissingCredential   = errors.New("missing credential")
	ErrMissingAsset        = errors.New("missing asset")
	ErrTimeout             = errors.New("request timed out")
	ErrMalformedResponse   = errors.New("malformed provider response")
	ErrAuthExpired         = errors.New("authorization expired, reconnect required")
	ErrUnsupportedProvider = errors.New("unsupported vision provider")

	// ErrDuplicateExternalItem is a skip signal used by the importer, not a failure.
	ErrDuplicateExternalItem = errors.New("external media item already imported")

	ErrEmptyImage      = errors.New("image data is empty")
	ErrPhotoNotFound   = errors.New("photo not found")
	ErrFaceNotFound    = errors.New("face not found")
	ErrNotConnected    = errors.New("google photos is not connected")
	ErrNotConfigured   = errors.New("google photos client credentials are not configured")
	ErrEmptyAlbum      = errors.New("no photos found in album")
	ErrNoAlbums        = errors.New("no albums found or connection failed")
	ErrInvalidUpload   = errors.New("invalid image upload")
	ErrInvalidTag      = errors.New("tag name is required")
	ErrUploadsDisabled = errors.New("user uploads are disabled")
	ErrInvalidState    = errors.New("invalid oauth state")
	ErrInvalidLogin    = errors.New("invalid username or password")
)

// ErrorKind classifies errors crossing the core boundary.
type ErrorKind string

const (
	KindNone                  ErrorKind = ""
	KindMissingCredential     ErrorKind = "MissingCredential"
	KindMissingAsset          ErrorKind = "MissingAsset"
	KindTimeout               ErrorKind = "Timeout"
	KindMalformedResponse     ErrorKind = "MalformedResponse"
	KindAuthExpired           ErrorKind = "AuthExpired"
	KindDuplicateExternalItem ErrorKind = "DuplicateExternalItem"
	KindUnsupportedProvider   ErrorKind = "UnsupportedProvider"
	KindOther                 ErrorKind = "Other"
)

var kindByError = []struct {
	err  error
	kind ErrorKind
}{
	{ErrMissingCredential, KindMissingCredential},
	{ErrMissingAsset, KindMissingAsset},
	{ErrTimeout, KindTimeout},
	{ErrMalformedResponse, KindMalformedResponse},
	{ErrAuthExpired, KindAuthExpired},
	{ErrDuplicateExternalItem, KindDuplicateExternalItem},
	{ErrUnsupportedProvider, KindUnsupportedProvider},
}

// KindOf returns the kind of the first taxonomy error found in err's chain.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, k := range kindByError {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindOther
}

// ProviderError keeps the message an external provider returned so it can be shown
// to the admin as is.
type ProviderError struct {
	Op      string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	return e.Op + " failed: " + e.Message + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ProviderMessage returns the provider's own message when err carries one.
func ProviderMessage(err error) string {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) && providerErr.Message != "" {
		return providerErr.Message
	}
	return err.Error()
}
