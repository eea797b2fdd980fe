package interfaces

import "context"

// -----------------------------------------------------------------------------
// INetworkManager is the retrying HTTP client the providers fetch through.
// -----------------------------------------------------------------------------

type INetworkManager interface {
	// Get issues a GET with params as the query string and returns the body
	// of a 200 response. Retries stop when ctx is done.
	Get(ctx context.Context, url string, params map[string]string) ([]byte, error)
}
