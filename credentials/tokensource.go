// credentials/tokensource.go
package credentials

import (
	"golang.org/x/oauth2"
)

// TokenSource exposes the credential as an oauth2.TokenSource. Each call refreshes if needed.
func (c *Credential) TokenSource() oauth2.TokenSource {
	return &tokenSource{credential: c}
}

type tokenSource struct {
	credential *Credential
}

// Token implements oauth2.TokenSource.
func (s *tokenSource) Token() (*oauth2.Token, error) {
	if err := s.credential.Refresh(); err != nil {
		return nil, err
	}

	s.credential.mu.RLock()
	defer s.credential.mu.RUnlock()

	return &oauth2.Token{
		AccessToken: s.credential.token,
		TokenType:   "bearer",
		Expiry:      s.credential.expiresAt,
	}, nil
}
