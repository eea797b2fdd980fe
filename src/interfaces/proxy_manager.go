package interfaces

// -----------------------------------------------------------------------------
// IProxyManager hands the network layer a proxy and a User-Agent per request.
// -----------------------------------------------------------------------------

type IProxyManager interface {
	// GetCurrentProxy returns the active proxy URL, or "" when none is configured.
	GetCurrentProxy() (string, error)

	// RotateProxy moves to the next proxy after a 429 or 403.
	RotateProxy()

	HasProxies() bool
	GetUserAgent() string
}
