package httputil

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"time"

	"hogar_scrooper/config"
)

// BrowserUserAgent is sent on every outbound image and page fetch; portal
// CDNs reject the default Go user agent.
const BrowserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type Clients struct {
	Relay *http.Client // proxied, for the image relay
	Media *http.Client // proxied, longer timeout for archiving downloads
}

func NewClients(proxyCfg config.ProxyConfig) *Clients {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		ForceAttemptHTTP2:   false,
		TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
		MaxIdleConnsPerHost: 4,
	}
	if proxyCfg.URL != "" {
		if proxyURL, err := url.Parse(proxyCfg.URL); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &Clients{
		Relay: &http.Client{Timeout: 15 * time.Second, Transport: transport},
		Media: &http.Client{Timeout: 60 * time.Second, Transport: transport},
	}
}

// NewImageRequest builds a GET for a portal image carrying the headers its
// CDN expects.
func NewImageRequest(ctx context.Context, imageURL, referer string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", BrowserUserAgent)
	req.Header.Set("Accept", "image/webp,image/apng,image/*,*/*;q=0.8")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}
	return req, nil
}
