package parsers

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Platform describes one supported listing source.
type Platform struct {
	ID    string
	Label string
	// Domains are matched as case-insensitive substrings of a listing URL,
	// and also allow-list image hosts for the relay.
	Domains []string
	// ImageDomains are extra CDN hosts whose images belong to the platform.
	ImageDomains []string
	// ImageReferer is sent when fetching the platform's images; without it
	// most CDNs answer hotlink requests with 403.
	ImageReferer string
	Parse        ParseFunc
}

// Option is an entry for a manual platform picker.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Registry maps platform ids to definitions in registration order. It is
// filled at start-up and read concurrently afterwards.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	platforms map[string]*Platform
}

func NewRegistry() *Registry {
	return &Registry{platforms: make(map[string]*Platform)}
}

// Default returns a registry holding the built-in platforms.
func Default() *Registry {
	r := NewRegistry()
	for _, p := range builtinPlatforms() {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
	return r
}

func builtinPlatforms() []Platform {
	return []Platform{
		{
			ID:           "idealista",
			Label:        "Idealista",
			Domains:      []string{"idealista.com"},
			ImageReferer: "https://www.idealista.com/",
			Parse:        ParseIdealista,
		},
		{
			ID:           "grupotome",
			Label:        "Grupo Tomé",
			Domains:      []string{"grupotome.com"},
			ImageDomains: []string{"apinmo.com"},
			ImageReferer: "https://www.grupotome.com/",
			Parse:        ParseGrupoTome,
		},
		{
			ID:           "engelvolkers",
			Label:        "Engel & Völkers",
			Domains:      []string{"engelvoelkers.com"},
			ImageReferer: "https://www.engelvoelkers.com/",
			Parse:        ParseEngelVolkers,
		},
		{
			ID:           "fotocasa",
			Label:        "Fotocasa",
			Domains:      []string{"fotocasa.es"},
			ImageReferer: "https://www.fotocasa.es/",
			Parse:        ParseFotocasa,
		},
		{
			ID:           "areizaga",
			Label:        "Areizaga",
			Domains:      []string{"areizaga.com"},
			ImageDomains: []string{"inmotek.net"},
			ImageReferer: "https://www.areizaga.com/",
			Parse:        ParseAreizaga,
		},
	}
}

// Register adds a platform, or replaces one with the same id in place.
func (r *Registry) Register(p Platform) error {
	if p.ID == "" {
		return fmt.Errorf("platform id is required")
	}
	if p.Parse == nil {
		return fmt.Errorf("platform %s has no parser", p.ID)
	}
	p.Parse = safely(p.Parse)
	p.Domains = lowerAll(p.Domains)
	p.ImageDomains = lowerAll(p.ImageDomains)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.platforms[p.ID]; !ok {
		r.order = append(r.order, p.ID)
	}
	r.platforms[p.ID] = &p
	return nil
}

// Extend adds domains to a registered platform and optionally replaces its
// image referer. Used for site overrides loaded from config.
func (r *Registry) Extend(id string, domains, imageDomains []string, referer string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.platforms[id]
	if !ok {
		return fmt.Errorf("unknown platform %q", id)
	}
	updated := *p
	updated.Domains = appendNew(append([]string(nil), updated.Domains...), lowerAll(domains))
	updated.ImageDomains = appendNew(append([]string(nil), updated.ImageDomains...), lowerAll(imageDomains))
	if referer != "" {
		updated.ImageReferer = referer
	}
	r.platforms[id] = &updated
	return nil
}

// Resolve returns the platform registered under id.
func (r *Registry) Resolve(id string) (Platform, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.platforms[id]
	if !ok {
		return Platform{}, false
	}
	return *p, true
}

// DetectFromURL returns the first platform, in registration order, with a
// domain contained in the lowercased URL.
func (r *Registry) DetectFromURL(rawURL string) (string, bool) {
	lower := strings.ToLower(rawURL)
	if lower == "" {
		return "", false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		for _, d := range r.platforms[id].Domains {
			if strings.Contains(lower, d) {
				return id, true
			}
		}
	}
	return "", false
}

// ListOptions enumerates platforms for manual selection.
func (r *Registry) ListOptions() []Option {
	r.mu.RLock()
	defer r.mu.RUnlock()
	opts := make([]Option, 0, len(r.order))
	for _, id := range r.order {
		opts = append(opts, Option{ID: id, Label: r.platforms[id].Label})
	}
	return opts
}

// RefererForImage returns the referer to use for an image URL, and false
// when its host belongs to no platform. Hosts match a domain exactly or as
// a subdomain.
func (r *Registry) RefererForImage(imageURL string) (string, bool) {
	p, ok := r.platformForHost(imageURL)
	if !ok {
		return "", false
	}
	return p.ImageReferer, true
}

// PlatformForImage is RefererForImage returning the whole platform.
func (r *Registry) PlatformForImage(imageURL string) (Platform, bool) {
	return r.platformForHost(imageURL)
}

func (r *Registry) platformForHost(rawURL string) (Platform, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return Platform{}, false
	}
	host := strings.ToLower(u.Hostname())

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		p := r.platforms[id]
		for _, d := range append(append([]string(nil), p.Domains...), p.ImageDomains...) {
			if host == d || strings.HasSuffix(host, "."+d) {
				return *p, true
			}
		}
	}
	return Platform{}, false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func appendNew(dst, add []string) []string {
	for _, s := range add {
		found := false
		for _, d := range dst {
			if d == s {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, s)
		}
	}
	return dst
}
