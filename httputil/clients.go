package httputil

import (
	"crypto/tls"
	"log"
	"net/http"
	"net/url"
	"time"

	"feedsync/config"
)

type Clients struct {
	Auth *http.Client // token endpoint
	Feed *http.Client // listing feed
}

// NewClients builds the upstream HTTP clients. When a proxy URL is
// configured both clients route through it.
func NewClients(cfg *config.IngestionConfig) *Clients {
	transport := http.DefaultTransport
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			log.Printf("Warning: ignoring invalid proxy url: %v", err)
		} else {
			transport = &http.Transport{
				Proxy:             http.ProxyURL(proxyURL),
				ForceAttemptHTTP2: false,
				TLSNextProto:      make(map[string]func(string, *tls.Conn) http.RoundTripper),
			}
		}
	}

	return &Clients{
		Auth: &http.Client{Timeout: orDefault(cfg.AuthTimeout, 30*time.Second), Transport: transport},
		Feed: &http.Client{Timeout: orDefault(cfg.FeedTimeout, 60*time.Second), Transport: transport},
	}
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
