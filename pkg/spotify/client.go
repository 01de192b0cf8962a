package spotify

import (
	"fmt"
	"net/http"

	"golang.org/x/time/rate"
)

// Config holds client configuration.
type Config struct {
	ClientID     string       // Required: Spotify application client ID
	ClientSecret string       // Required: Spotify application client secret
	Market       string       // Optional: ISO 3166-1 country code for catalog lookups
	HTTPClient   *http.Client // Optional: HTTP client (defaults to http.DefaultClient)
	BaseURL      string       // Optional: Base URL for API (defaults to Web API, used for testing)
	TokenURL     string       // Optional: Token endpoint (defaults to accounts service, used for testing)
	RateLimit    float64      // Optional: Maximum requests per second (0 disables throttling)
	Logger       Logger       // Optional: Logger interface for debug logging
}

// Logger is an optional interface for logging.
type Logger interface {
	// Debugf logs a debug message with format and arguments.
	Debugf(format string, args ...interface{})
}

// Client is the main entry point for Spotify Web API operations.
type Client struct {
	market     string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     Logger
	tokens     *tokenSource

	search          *SearchService
	artists         *ArtistService
	playlists       *PlaylistService
	recommendations *RecommendationService
}

const (
	// DefaultBaseURL is the default Spotify Web API endpoint.
	DefaultBaseURL = "https://api.spotify.com/v1"

	// DefaultTokenURL is the default Spotify accounts token endpoint.
	DefaultTokenURL = "https://accounts.spotify.com/api/token"
)

// NewClient creates a new Spotify API client.
//
// Returns an error if required configuration (ClientID, ClientSecret) is missing.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: ClientID is required", ErrInvalidConfig)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: ClientSecret is required", ErrInvalidConfig)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	c := &Client{
		market:     cfg.Market,
		httpClient: httpClient,
		baseURL:    baseURL,
		limiter:    limiter,
		logger:     cfg.Logger,
	}

	c.tokens = &tokenSource{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		tokenURL:     tokenURL,
		httpClient:   httpClient,
	}
	c.search = &SearchService{client: c}
	c.artists = &ArtistService{client: c}
	c.playlists = &PlaylistService{client: c}
	c.recommendations = &RecommendationService{client: c}

	return c, nil
}

// Search returns the search service.
func (c *Client) Search() *SearchService {
	return c.search
}

// Artists returns the artist service.
func (c *Client) Artists() *ArtistService {
	return c.artists
}

// Playlists returns the playlist service.
func (c *Client) Playlists() *PlaylistService {
	return c.playlists
}

// Recommendations returns the recommendation service.
func (c *Client) Recommendations() *RecommendationService {
	return c.recommendations
}

// Market returns the market applied to catalog lookups.
func (c *Client) Market() string {
	return c.market
}

// logDebugf logs a debug message if a logger is configured.
func (c *Client) logDebugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}
