package annotator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"daf/internal/config"
	"daf/internal/domain"
)

// errHandshakeStopped aborts the SSH handshake once the host key is known
var errHandshakeStopped = errors.New("handshake stopped after key exchange")

// SSHAnnotator classifies hosts by their SSH server version banner.
// It never authenticates: the handshake stops after key exchange.
type SSHAnnotator struct {
	port          int
	timeout       time.Duration
	maxConcurrent int
}

// NewSSHAnnotator builds the annotator from "port", "connection_timeout"
// and "max_concurrent"
func NewSSHAnnotator(cfg config.AnnotatorConfig, _ config.DAFConfig) ([]Annotator, error) {
	s := &SSHAnnotator{
		port:          cfg.Int("port", 22),
		timeout:       cfg.DurationSetting("connection_timeout", 5*time.Second),
		maxConcurrent: cfg.Int("max_concurrent", 16),
	}
	if s.port < 1 || s.port > 65535 {
		return nil, fmt.Errorf("%s: invalid port %d", cfg.Name, s.port)
	}
	if s.maxConcurrent < 1 {
		s.maxConcurrent = 1
	}
	return []Annotator{s}, nil
}

// Name returns the annotator identifier
func (s *SSHAnnotator) Name() string {
	return "ssh_annotator"
}

// Annotate probes every address with a bounded number of concurrent connections
func (s *SSHAnnotator) Annotate(ctx context.Context, b *Batch) error {
	sem := make(chan struct{}, s.maxConcurrent)
	var wg sync.WaitGroup
	p := newProgress("SSH banner annotation", len(b.Addresses))
	var pmu sync.Mutex
	done := 0

	for _, addr := range b.Addresses {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			defer func() { <-sem }()

			banner, keyType, err := s.probe(ctx, addr)
			pmu.Lock()
			done++
			p.step(done)
			pmu.Unlock()
			if err != nil || banner == "" {
				return
			}

			a := ClassifySSHBanner(banner)
			if a.IsEmpty() {
				return
			}
			log.Printf("SSH annotator: %s runs %q (host key %s)", addr, banner, keyType)
			b.Proposer.Propose(addr, a)
		}(addr)
	}
	wg.Wait()
	return ctx.Err()
}

// probe connects to addr and returns the server version line and host key type
func (s *SSHAnnotator) probe(ctx context.Context, addr string) (string, string, error) {
	target := net.JoinHostPort(addr, strconv.Itoa(s.port))
	dialer := &net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", target)
	if err != nil {
		return "", "", fmt.Errorf("failed to dial: %w", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(s.timeout))

	rec := &bannerConn{Conn: conn}
	var keyType string
	cfg := &ssh.ClientConfig{
		User: "daf",
		HostKeyCallback: func(_ string, _ net.Addr, key ssh.PublicKey) error {
			keyType = key.Type()
			return errHandshakeStopped
		},
		Timeout: s.timeout,
	}

	_, _, _, err = ssh.NewClientConn(rec, target, cfg)
	banner := rec.banner()
	if banner == "" {
		if err == nil {
			err = errors.New("no version banner")
		}
		return "", "", err
	}
	return banner, keyType, nil
}

// bannerConn records the first line received from the server
type bannerConn struct {
	net.Conn
	mu   sync.Mutex
	buf  bytes.Buffer
	full bool
}

func (c *bannerConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if n > 0 {
		c.mu.Lock()
		if !c.full {
			c.buf.Write(p[:n])
			if bytes.IndexByte(c.buf.Bytes(), '\n') >= 0 || c.buf.Len() > 255 {
				c.full = true
			}
		}
		c.mu.Unlock()
	}
	return n, err
}

func (c *bannerConn) banner() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	line, _, _ := bytes.Cut(c.buf.Bytes(), []byte("\n"))
	s := strings.TrimSpace(string(line))
	if !strings.HasPrefix(s, "SSH-") {
		return ""
	}
	return s
}

// ClassifySSHBanner maps an SSH version banner to an annotation
func ClassifySSHBanner(banner string) domain.Annotation {
	s := strings.ToLower(banner)
	switch {
	case strings.Contains(s, "ubuntu"):
		return domain.Annotation{OSFamily: "linux", OSType: "ubuntu"}
	case strings.Contains(s, "raspbian"):
		return domain.Annotation{OSFamily: "linux", OSType: "raspbian"}
	case strings.Contains(s, "debian"):
		return domain.Annotation{OSFamily: "linux", OSType: "debian"}
	case strings.Contains(s, "freebsd"):
		return domain.Annotation{OSFamily: "unix", OSType: "freebsd"}
	case strings.Contains(s, "openssh_for_windows"):
		return domain.Annotation{OSFamily: "windows", OSType: "windows"}
	case strings.Contains(s, "cisco"):
		return domain.Annotation{Group: "net-device", Class: "router", OSFamily: "other-unix-like", OSType: "cisco ios"}
	case strings.Contains(s, "rosssh"):
		return domain.Annotation{Group: "net-device", Class: "router", OSFamily: "other-unix-like", OSType: "routeros"}
	case strings.Contains(s, "dropbear"):
		return domain.Annotation{OSFamily: "linux"}
	}
	return domain.Annotation{}
}
