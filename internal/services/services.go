// Package services are typed wrappers over the upstream REST endpoints. Each
// bundle is bound to one workspace session so calls carry its token.
package services

import (
	"context"

	"kycportal/internal/transport/apiclient"
)

// Caller is the transport the wrappers need.
type Caller interface {
	Do(ctx context.Context, sess apiclient.Session, req apiclient.Request, out any) error
}

type Services struct {
	Auth     *Auth
	Clients  *Clients
	KYC      *KYC
	Profiles *Profiles
	Reviews  *Reviews
}

// New binds every wrapper to sess.
func New(api Caller, sess apiclient.Session) *Services {
	return &Services{
		Auth:     &Auth{api: api, sess: sess},
		Clients:  &Clients{api: api, sess: sess},
		KYC:      &KYC{api: api, sess: sess},
		Profiles: &Profiles{api: api, sess: sess},
		Reviews:  &Reviews{api: api, sess: sess},
	}
}
