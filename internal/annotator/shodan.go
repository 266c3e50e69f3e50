package annotator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode"

	"daf/internal/config"
	"daf/internal/domain"
)

// ShodanAPIKeyEnv supplies the API key when no key file is configured
const ShodanAPIKeyEnv = "DAF_SHODAN_API_KEY"

// ErrShodanUnauthorized is returned when Shodan rejects the API key
var ErrShodanUnauthorized = errors.New("shodan unauthorized, check the API key")

// ShodanAnnotator annotates hosts from Shodan's OS and open port data
type ShodanAnnotator struct {
	idbURL      string
	apiURL      string
	apiKey      string
	client      *http.Client
	maxTimeouts int
	baseWait    time.Duration
	cacheDir    string
	cacheTTL    time.Duration
}

// NewShodanAnnotator builds the annotator from "shodan_idb_url",
// "shodan_api_url" and either "shodan_api_key_file" or $DAF_SHODAN_API_KEY
func NewShodanAnnotator(cfg config.AnnotatorConfig, _ config.DAFConfig) ([]Annotator, error) {
	if err := cfg.Require("shodan_idb_url", "shodan_api_url"); err != nil {
		return nil, err
	}

	key := os.Getenv(ShodanAPIKeyEnv)
	if path := cfg.String("shodan_api_key_file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("shodan API key file: %w", err)
		}
		key = strings.TrimSpace(string(data))
	}
	if key == "" {
		return nil, fmt.Errorf("%s: %w: shodan_api_key_file or $%s", cfg.Name, config.ErrMissingSetting, ShodanAPIKeyEnv)
	}

	return []Annotator{&ShodanAnnotator{
		idbURL:      cfg.String("shodan_idb_url"),
		apiURL:      cfg.String("shodan_api_url"),
		apiKey:      key,
		client:      &http.Client{Timeout: cfg.DurationSetting("http_request_timeout", 10*time.Second)},
		maxTimeouts: cfg.Int("max_timeouts", 3),
		baseWait:    cfg.DurationSetting("base_wait_time", 10*time.Second),
		cacheDir:    cfg.String("cache_dir"),
		cacheTTL:    cfg.DurationSetting("cache_ttl", 7*24*time.Hour),
	}}, nil
}

// Name returns the annotator identifier
func (s *ShodanAnnotator) Name() string {
	return "shodan_annotator"
}

// Annotate looks up every address, using the pebble cache when configured
func (s *ShodanAnnotator) Annotate(ctx context.Context, b *Batch) error {
	var cache *shodanCache
	if s.cacheDir != "" {
		var err error
		if cache, err = openShodanCache(s.cacheDir, s.cacheTTL); err != nil {
			return err
		}
		defer cache.Close()
	}

	p := newProgress("Shodan annotation", len(b.Addresses))
	for i, addr := range b.Addresses {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.step(i + 1)

		host, ok := cache.get(addr)
		if !ok {
			var complete bool
			var err error
			host, complete, err = s.lookup(ctx, addr)
			if err != nil {
				return err
			}
			if complete {
				if err := cache.put(addr, host); err != nil {
					log.Printf("Shodan annotator: cache write for %s failed: %v", addr, err)
				}
			}
		}
		if !host.Found {
			continue
		}

		osName := ""
		if host.OS != nil {
			osName = *host.OS
		}
		if a := ShodanToAnnotation(osName, host.Ports); !a.IsEmpty() {
			b.Proposer.Propose(addr, a)
		}
	}
	return nil
}

// lookup checks InternetDB first and then queries the host API. complete is
// false when a request failed and the answer must not be cached.
func (s *ShodanAnnotator) lookup(ctx context.Context, addr string) (host shodanHost, complete bool, err error) {
	host.FetchedAt = time.Now().UTC()

	resp, err := s.get(ctx, s.idbURL+addr)
	if err != nil {
		log.Printf("Shodan annotator: InternetDB request for %s failed: %v", addr, err)
		return host, false, ctx.Err()
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return host, true, nil
	}

	resp, err = s.get(ctx, s.apiURL+addr+"?key="+s.apiKey)
	if err != nil {
		log.Printf("Shodan annotator: host request for %s failed: %v", addr, err)
		return host, false, ctx.Err()
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return host, false, ErrShodanUnauthorized
	default:
		return host, true, nil
	}

	if err := json.NewDecoder(resp.Body).Decode(&host); err != nil {
		return host, false, fmt.Errorf("decode shodan response for %s: %w", addr, err)
	}
	host.Found = true
	host.FetchedAt = time.Now().UTC()
	return host, true, nil
}

// get performs a GET request, retrying timeouts with exponential backoff
func (s *ShodanAnnotator) get(ctx context.Context, url string) (*http.Response, error) {
	timeouts := 0
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := s.client.Do(req)
		if err == nil {
			return resp, nil
		}

		var netErr net.Error
		if !errors.As(err, &netErr) || !netErr.Timeout() || ctx.Err() != nil {
			return nil, err
		}
		timeouts++
		if timeouts > s.maxTimeouts {
			return nil, fmt.Errorf("giving up after %d timeouts: %w", timeouts-1, err)
		}

		wait := s.baseWait * time.Duration(1<<(timeouts-1))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

// ShodanToAnnotation maps Shodan's OS string and open ports to an annotation
func ShodanToAnnotation(osName string, ports []int) domain.Annotation {
	var a domain.Annotation

	if osName != "" {
		lower := strings.ToLower(osName)
		if hasDigit(lower) {
			a.OSVersion = lower
			var words []string
			for _, w := range strings.Fields(lower) {
				if hasDigit(w) {
					break
				}
				words = append(words, w)
			}
			a.OSType = strings.Join(words, " ")
		} else {
			a.OSType = lower
		}

		switch {
		case strings.HasPrefix(a.OSType, "windows"):
			a.OSFamily = "windows"
		case strings.HasPrefix(a.OSType, "mac"):
			a.OSFamily = "macos"
		case strings.HasPrefix(a.OSType, "unix"), strings.Contains(a.OSType, "bsd"):
			a.OSFamily = "unix"
		default:
			a.OSFamily = "linux"
		}
	}

	open := make(map[int]bool, len(ports))
	for _, p := range ports {
		open[p] = true
	}
	anyOpen := func(ps ...int) bool {
		for _, p := range ps {
			if open[p] {
				return true
			}
		}
		return false
	}

	switch {
	case a.OSType == "synology diskstation manager (dsm)":
		a.Group, a.Class = "server", "data"
	case a.OSType == "ios":
		if len(ports) > 0 {
			a.OSFamily, a.OSType = "other-unix-like", "cisco ios"
			a.Group, a.Class = "net-device", "core router"
		} else {
			a.OSFamily = "macos"
			a.Group, a.Class = "end-device", "mobile"
		}
	case a.OSType == "android":
		a.Group, a.Class = "end-device", "mobile"
	case len(ports) > 0:
		a.Group = "server"
		switch {
		case open[53]:
			a.Class = "dns"
		case open[67]:
			a.Class = "dhcp"
		case open[123]:
			a.Class = "ntp"
		case anyOpen(179, 264):
			a.Group, a.Class = "net-device", "core router"
		case anyOpen(25, 110, 587, 993, 995):
			a.Class = "mail"
		case open[1701]:
			a.Class = "vpn"
		case anyOpen(80, 443, 8080, 8443):
			a.Class = "web"
		}
	case a.OSFamily != "":
		a.Group, a.Class = "end-device", "workstation"
	}
	return a
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}
