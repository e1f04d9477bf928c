package llm

import (
	"net/http"
	"slices"
	"sync"
)

// Provider adapts the client to one provider's wire format.
type Provider interface {
	// Name returns the provider identifier used in endpoint configs.
	Name() string

	// BuildURL constructs the completion URL from the endpoint base URL.
	BuildURL(baseURL string) string

	// SetHeaders adds authentication and version headers.
	SetHeaders(req *http.Request)

	// BuildRequestBody encodes a request. A nil temperature leaves the
	// provider default in place.
	BuildRequestBody(model string, messages []Message, temperature *float64, maxTokens int) ([]byte, error)

	// ParseResponse decodes a successful response body.
	ParseResponse(body []byte, model string) (*Response, error)
}

var (
	providerRegistry = make(map[string]Provider)
	providerMu       sync.RWMutex
)

// RegisterProvider adds a provider, replacing any with the same name.
func RegisterProvider(p Provider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	providerRegistry[p.Name()] = p
}

// GetProvider retrieves a provider by name.
func GetProvider(name string) Provider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return providerRegistry[name]
}

// ListProviders returns the registered provider names, sorted.
func ListProviders() []string {
	providerMu.RLock()
	defer providerMu.RUnlock()

	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
