package managesieve

import (
	"github.com/emersion/go-sasl"
)

// saslMechanism is the small state machine SPEC_FULL §9 calls for: an
// initial response plus a step function, modeled as an interface with one
// implementation per mechanism rather than a single switch statement.
type saslMechanism interface {
	Name() string
	Start() (initialResponse []byte, err error)
	Next(challenge []byte) (response []byte, err error)
}

// goSASLAdapter wraps an emersion/go-sasl Client, used for the mechanisms
// that library already implements (PLAIN, LOGIN, OAUTHBEARER).
type goSASLAdapter struct {
	name string
	c    sasl.Client
}

func (a *goSASLAdapter) Name() string { return a.name }

func (a *goSASLAdapter) Start() ([]byte, error) {
	_, ir, err := a.c.Start()
	return ir, err
}

func (a *goSASLAdapter) Next(challenge []byte) ([]byte, error) {
	return a.c.Next(challenge)
}

// newMechanism builds the saslMechanism named by name for the given
// credentials. host is used by DIGEST-MD5 to build its RFC 2831
// "digest-uri" ("sieve/<host>") and by OAUTHBEARER. token is only used by
// OAUTHBEARER, in which case password is ignored.
func newMechanism(name, username, password, token, host string) (saslMechanism, error) {
	switch name {
	case "PLAIN":
		return &goSASLAdapter{name: name, c: sasl.NewPlainClient("", username, password)}, nil
	case "LOGIN":
		return &goSASLAdapter{name: name, c: sasl.NewLoginClient(username, password)}, nil
	case "OAUTHBEARER":
		return &goSASLAdapter{name: name, c: sasl.NewOAuthBearerClient(&sasl.OAuthBearerOptions{
			Username: username,
			Token:    token,
			Host:     host,
			Port:     4190,
		})}, nil
	case "DIGEST-MD5":
		return newDigestMD5Client(username, password, "", "sieve/"+host), nil
	default:
		return nil, &AuthError{Mechanism: name, Message: "unsupported SASL mechanism"}
	}
}

// preferredMechanism picks the strongest mechanism from the set the server
// advertised, used when the caller does not name one explicitly.
func preferredMechanism(advertised []string) string {
	order := []string{"DIGEST-MD5", "OAUTHBEARER", "PLAIN", "LOGIN"}
	set := make(map[string]bool, len(advertised))
	for _, m := range advertised {
		set[m] = true
	}
	for _, m := range order {
		if set[m] {
			return m
		}
	}
	if len(advertised) > 0 {
		return advertised[0]
	}
	return ""
}
