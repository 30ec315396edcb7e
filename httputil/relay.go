package httputil

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"hogar_scrooper/logging"
)

// RefererSource decides which image hosts may be relayed and with which
// Referer. *parsers.Registry satisfies it.
type RefererSource interface {
	RefererForImage(imageURL string) (string, bool)
}

// ImageRelay serves portal images to the browser. The portals' CDNs refuse
// hotlinked requests, so the relay fetches them with the owning platform's
// Referer. Only hosts belonging to a registered platform are relayed.
type ImageRelay struct {
	referers RefererSource
	client   *http.Client
}

func NewImageRelay(referers RefererSource, client *http.Client) *ImageRelay {
	if client == nil {
		client = http.DefaultClient
	}
	h := &ImageRelay{referers: referers}
	c := *client
	c.CheckRedirect = h.checkRedirect
	h.client = &c
	return h
}

const maxRelayRedirects = 5

// checkRedirect holds every hop to the same allow-list as the first request.
func (h *ImageRelay) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRelayRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRelayRedirects)
	}
	referer, ok := h.referers.RefererForImage(req.URL.String())
	if !ok {
		return fmt.Errorf("redirect to %s not allowed", req.URL.Hostname())
	}
	req.Header.Set("Referer", referer)
	return nil
}

const relayCacheControl = "public, max-age=2592000, immutable"

var idealistaImageRe = regexp.MustCompile(`(?i)https?://img\d?\.idealista\.com/[^"'\s<>]+\.(?:jpg|jpeg|png|webp)`)

func (h *ImageRelay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	imageURL := strings.TrimSpace(r.URL.Query().Get("url"))
	if imageURL == "" {
		http.Error(w, "missing url parameter", http.StatusBadRequest)
		return
	}
	referer, ok := h.referers.RefererForImage(imageURL)
	if !ok {
		http.Error(w, "domain not allowed", http.StatusForbidden)
		return
	}

	target := imageURL
	if isIdealistaPhotoPage(imageURL) {
		resolved, err := h.resolvePhotoPage(r, imageURL, referer)
		if err != nil {
			logging.Warnf("Image relay: %v", err)
			http.Error(w, "no image found in photo page", http.StatusNotFound)
			return
		}
		target = resolved
	}

	req, err := NewImageRequest(r.Context(), target, referer)
	if err != nil {
		http.Error(w, "invalid url", http.StatusBadRequest)
		return
	}
	resp, err := h.client.Do(req)
	if err != nil {
		logging.Warnf("Image relay: fetch %s: %v", target, err)
		http.Error(w, "upstream fetch failed", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		http.Error(w, fmt.Sprintf("failed to fetch: %d", resp.StatusCode), resp.StatusCode)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", relayCacheControl)
	w.Header().Set("Vary", "Accept")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, resp.Body); err != nil {
		logging.Debugf("Image relay: copy %s: %v", target, err)
	}
}

func isIdealistaPhotoPage(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host != "idealista.com" && !strings.HasSuffix(host, ".idealista.com") {
		return false
	}
	return strings.Contains(u.Path, "/inmueble/") && strings.Contains(u.Path, "/foto/")
}

// resolvePhotoPage fetches an Idealista single-photo page and returns the
// CDN URL of the image it shows.
func (h *ImageRelay) resolvePhotoPage(r *http.Request, pageURL, referer string) (string, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", BrowserUserAgent)
	req.Header.Set("Referer", referer)

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch photo page %s: %w", pageURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("photo page %s: status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return "", fmt.Errorf("read photo page: %w", err)
	}
	if src := photoFromMarkup(string(body)); src != "" {
		return src, nil
	}
	if m := idealistaImageRe.FindString(string(body)); m != "" {
		return m, nil
	}
	return "", fmt.Errorf("no image in photo page %s", pageURL)
}

func photoFromMarkup(page string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return ""
	}
	var src string
	doc.Find("img.main-image, img.detail-image, picture img, .multimedia-container img").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, attr := range []string{"src", "data-src"} {
			if v, ok := s.Attr(attr); ok && idealistaImageRe.MatchString(v) {
				src = idealistaImageRe.FindString(v)
				return false
			}
		}
		return true
	})
	return src
}
