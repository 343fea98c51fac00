package realtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
)

// MercurePublisher posts updates to a Mercure hub
type MercurePublisher struct {
	hubURL string
	token  string
	http   *resty.Client
}

type mercureClaims struct {
	Mercure struct {
		Publish []string `json:"publish"`
	} `json:"mercure"`
	jwt.RegisteredClaims
}

// NewMercurePublisher creates a publisher for the hub at hubURL, authorized by
// a token signed with jwtKey
func NewMercurePublisher(hubURL, jwtKey string, timeout time.Duration) (*MercurePublisher, error) {
	if hubURL == "" {
		return nil, fmt.Errorf("mercure hub url is required")
	}

	claims := mercureClaims{}
	claims.Mercure.Publish = []string{"*"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtKey))
	if err != nil {
		return nil, fmt.Errorf("failed to sign mercure token: %w", err)
	}

	http := resty.New()
	if timeout > 0 {
		http.SetTimeout(timeout)
	}

	return &MercurePublisher{
		hubURL: strings.TrimRight(hubURL, "/"),
		token:  token,
		http:   http,
	}, nil
}

// Publish implements Publisher
func (p *MercurePublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	resp, err := p.http.R().
		SetContext(ctx).
		SetAuthToken(p.token).
		SetFormData(map[string]string{
			"topic": topic,
			"data":  string(payload),
		}).
		Post(p.hubURL)
	if err != nil {
		return fmt.Errorf("mercure publish error: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("mercure hub returned %s", resp.Status())
	}
	return nil
}
