package services

import (
	"context"
	"net/http"
	"net/url"

	"kycportal/internal/domain"
	"kycportal/internal/transport/apiclient"
	id "kycportal/pkg/domain"
)

type Clients struct {
	api  Caller
	sess apiclient.Session
}

func (c *Clients) GetAllClients(ctx context.Context) ([]domain.Client, error) {
	var out []domain.Client
	if err := c.api.Do(ctx, c.sess, apiclient.Request{Method: http.MethodGet, Path: "/clients"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Clients) GetClientByID(ctx context.Context, clientID id.UserID) (*domain.Client, error) {
	var out domain.Client
	err := c.api.Do(ctx, c.sess, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/clients/" + url.PathEscape(string(clientID)),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Clients) SearchClients(ctx context.Context, query string) ([]domain.Client, error) {
	var out []domain.Client
	err := c.api.Do(ctx, c.sess, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/clients/search",
		Query:  url.Values{"q": {query}},
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}
