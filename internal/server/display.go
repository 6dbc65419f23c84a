package server

import (
	"fmt"
	"net/http"
)

// displayServerInfo prints the startup banner.
func (s *Server) displayServerInfo(httpServer *http.Server) {
	scheme := "http"
	if httpServer.TLSConfig != nil {
		scheme = "https"
	}
	fmt.Printf("Starting %s on %s://%s\n", s.name, scheme, httpServer.Addr)

	switch s.cfg.Server.TLS.Mode {
	case "server":
		fmt.Println("TLS mode: Server-only (no client certificates required)")
	case "mutual":
		fmt.Println("TLS mode: Mutual (client certificates required)")
	default:
		fmt.Println("TLS mode: Disabled (HTTP only)")
	}
	if s.certs != nil && s.certs.Watching() {
		fmt.Println("TLS auto-reload: ENABLED")
	}

	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

func (s *Server) displayAuthInfo() {
	if len(s.apiKeys) > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", len(s.apiKeys))
		fmt.Println("Include 'X-API-Key: <your-key>' header in requests to /api endpoints")
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
	}
}

func (s *Server) displayRequestLimitInfo() {
	if limit := s.cfg.Server.MaxRequestSize; limit > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f KB)\n", limit, float64(limit)/1024)
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

func (s *Server) displayRateLimitInfo() {
	rl := s.cfg.Server.RateLimit
	if !rl.Enabled {
		fmt.Println("Rate limiting: DISABLED")
		return
	}
	fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n", rl.RequestsPerMin, rl.BurstCapacity)
	if rl.ByAPIKey {
		fmt.Println("  - Per API key rate limiting enabled")
	}
	if rl.ByIP {
		fmt.Println("  - Per IP address rate limiting enabled")
	}
}
