package adapter

import "context"

type staticTokenSource struct {
	token string
}

// StaticTokenSource serves a fixed bearer token. Refresh hands back the same
// token, so a persistent 401 surfaces after one replay instead of looping.
func StaticTokenSource(token string) TokenSource {
	return &staticTokenSource{token: token}
}

func (s *staticTokenSource) Token() string { return s.token }

func (s *staticTokenSource) Refresh(context.Context) (string, error) {
	return s.token, nil
}
