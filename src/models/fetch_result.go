package models

// MFetchKind classifies a provider outcome so the retriever can switch on it.
type MFetchKind string

const (
	FetchOK          MFetchKind = "ok"
	FetchTimeout     MFetchKind = "timeout"
	FetchRateLimited MFetchKind = "rate_limited"
	FetchEmpty       MFetchKind = "empty"
	FetchMalformed   MFetchKind = "malformed"
	FetchNetwork     MFetchKind = "network"
	FetchUnsupported MFetchKind = "unsupported"
)

// MFetchResult is the typed outcome of a provider price fetch.
type MFetchResult struct {
	Series MPriceSeries
	Kind   MFetchKind
	Err    error
}

// -----------------------------------------------------------------------------

func (r MFetchResult) OK() bool {
	return r.Kind == FetchOK && len(r.Series.Bars) > 0
}

// MFundamentalsResult is the typed outcome of a provider fundamentals fetch.
type MFundamentalsResult struct {
	Fundamentals MFundamentals
	Kind         MFetchKind
	Err          error
}

// -----------------------------------------------------------------------------

func (r MFundamentalsResult) OK() bool {
	return r.Kind == FetchOK
}
