package http

import (
	"crypto/tls"
	nethttp "net/http"
	"os"

	"golang.org/x/net/http2"

	"github.com/aiverify/aiv-upload/internal/config"
	"github.com/aiverify/aiv-upload/internal/constants"
	"github.com/aiverify/aiv-upload/internal/logging"
)

// CreateTransferClient returns the client shared by the API, S3 and Azure
// uploaders. It starts from ConfigureHTTPClient and widens the connection
// pool so one connection per upload worker can stay open.
//
// HTTP/2 is attempted unless a proxy is active or DISABLE_HTTP2=true.
func CreateTransferClient(cfg *config.Config, logger *logging.Logger) (*nethttp.Client, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	client, err := ConfigureHTTPClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	tr, ok := client.Transport.(*nethttp.Transport)
	if !ok {
		// NTLM wraps the transport; leave it alone.
		return client, nil
	}

	workers := cfg.UploadWorkers
	if workers < constants.DefaultUploadWorkers {
		workers = constants.DefaultUploadWorkers
	}
	tr.MaxIdleConnsPerHost = workers * 2
	tr.MaxConnsPerHost = workers * 2
	tr.DisableCompression = true
	tr.ForceAttemptHTTP2 = true
	_ = http2.ConfigureTransport(tr)

	if os.Getenv("DISABLE_HTTP2") == "true" || proxyActive(cfg) {
		tr.ForceAttemptHTTP2 = false
		tr.TLSNextProto = make(map[string]func(string, *tls.Conn) nethttp.RoundTripper)
	}

	client.Transport = tr
	return client, nil
}

func proxyActive(cfg *config.Config) bool {
	switch cfg.ProxyMode {
	case "no-proxy", "":
		return false
	case "system":
		return os.Getenv("HTTPS_PROXY") != "" || os.Getenv("https_proxy") != "" ||
			os.Getenv("HTTP_PROXY") != "" || os.Getenv("http_proxy") != ""
	default:
		return cfg.ProxyHost != ""
	}
}
