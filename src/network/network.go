package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"stock-screener/src/helpers"
	"stock-screener/src/interfaces"
	"stock-screener/src/logger"
	"stock-screener/src/models"

	"github.com/cenkalti/backoff/v4"
)

// ErrTooManyRequests is returned once retries are exhausted on HTTP 429.
var ErrTooManyRequests = errors.New("error: too many requests")

// ErrBlocked is returned when the upstream keeps answering 403.
var ErrBlocked = errors.New("error: request blocked")

// StatusError carries a non-retryable HTTP status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status: %d", e.StatusCode)
}

// -----------------------------------------------------------------------------

type NetworkManager struct {
	Config       *models.MConfig
	ProxyManager interfaces.IProxyManager
	Logger       *logger.Logger

	client     *http.Client
	clientMu   sync.RWMutex
	newBackOff func() backoff.BackOff
}

// -----------------------------------------------------------------------------

func NewNetworkManager(cfg *models.MConfig, log *logger.Logger) *NetworkManager {
	var proxies []string
	if cfg.Network.Enabled {
		proxies = cfg.Network.Proxies
	}

	nm := &NetworkManager{
		Config:       cfg,
		ProxyManager: helpers.NewProxyManager(proxies, cfg.Network.UserAgent, log.Named("ProxyManager")),
		Logger:       log,
	}
	nm.newBackOff = nm.defaultBackOff
	nm.client = nm.createClient()
	return nm
}

// -----------------------------------------------------------------------------

func (nm *NetworkManager) defaultBackOff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 4 * time.Second
	bo.MaxElapsedTime = time.Duration(nm.Config.Network.RequestTimeout) * time.Second
	return backoff.WithMaxRetries(bo, uint64(nm.Config.Network.MaxRetries))
}

// -----------------------------------------------------------------------------

func (nm *NetworkManager) createClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if nm.ProxyManager.HasProxies() {
		proxyStr, err := nm.ProxyManager.GetCurrentProxy()
		if err == nil && proxyStr != "" {
			proxyURL, err := url.Parse(proxyStr)
			if err == nil {
				transport.Proxy = http.ProxyURL(proxyURL)
			}
		}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   time.Duration(nm.Config.Network.RequestTimeout) * time.Second,
	}
}

// -----------------------------------------------------------------------------

func (nm *NetworkManager) rotateProxy() {
	if !nm.ProxyManager.HasProxies() {
		return
	}

	nm.ProxyManager.RotateProxy()
	client := nm.createClient()

	nm.clientMu.Lock()
	nm.client = client
	nm.clientMu.Unlock()
}

// -----------------------------------------------------------------------------

func (nm *NetworkManager) currentClient() *http.Client {
	nm.clientMu.RLock()
	defer nm.clientMu.RUnlock()
	return nm.client
}

// -----------------------------------------------------------------------------

// Get performs a GET request with backoff retries and proxy rotation.
// 429 and 403 rotate the proxy and retry; other 4xx fail immediately.
func (nm *NetworkManager) Get(ctx context.Context, urlStr string, params map[string]string) ([]byte, error) {
	reqURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	q := reqURL.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	reqURL.RawQuery = q.Encode()
	finalURL := reqURL.String()

	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", nm.ProxyManager.GetUserAgent())
		req.Header.Set("Accept", "application/json")

		resp, err := nm.currentClient().Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			nm.rotateProxy()
			return ErrTooManyRequests
		case resp.StatusCode == http.StatusForbidden:
			nm.rotateProxy()
			return ErrBlocked
		case resp.StatusCode >= 500:
			return &StatusError{StatusCode: resp.StatusCode}
		case resp.StatusCode != http.StatusOK:
			return backoff.Permanent(&StatusError{StatusCode: resp.StatusCode})
		}

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		body = b
		return nil
	}

	notify := func(err error, wait time.Duration) {
		nm.Logger.Info("Request failed (attempt %d): %v. Retrying in %v", attempt, err, wait)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(nm.newBackOff(), ctx), notify); err != nil {
		return nil, err
	}
	return body, nil
}

// -----------------------------------------------------------------------------

// Classify maps a transport error to the fetch outcome the retriever switches on.
func Classify(err error) models.MFetchKind {
	var status *StatusError
	switch {
	case err == nil:
		return models.FetchOK
	case errors.Is(err, context.DeadlineExceeded):
		return models.FetchTimeout
	case errors.Is(err, ErrTooManyRequests), errors.Is(err, ErrBlocked):
		return models.FetchRateLimited
	case errors.As(err, &status) && status.StatusCode == http.StatusNotFound:
		return models.FetchEmpty
	default:
		var timeout interface{ Timeout() bool }
		if errors.As(err, &timeout) && timeout.Timeout() {
			return models.FetchTimeout
		}
		return models.FetchNetwork
	}
}
