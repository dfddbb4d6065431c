package services

import (
	"context"
	"net/http"
	"net/url"

	"kycportal/internal/domain"
	"kycportal/internal/transport/apiclient"
	id "kycportal/pkg/domain"
)

type Profiles struct {
	api  Caller
	sess apiclient.Session
}

func (p *Profiles) GetProfile(ctx context.Context, userID id.UserID) (*domain.PersonalInfo, error) {
	var out domain.PersonalInfo
	err := p.api.Do(ctx, p.sess, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/profiles/" + url.PathEscape(string(userID)),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *Profiles) UpdateProfile(ctx context.Context, userID id.UserID, info domain.PersonalInfo) (*domain.PersonalInfo, error) {
	var out domain.PersonalInfo
	err := p.api.Do(ctx, p.sess, apiclient.Request{
		Method: http.MethodPatch,
		Path:   "/profiles/" + url.PathEscape(string(userID)),
		Body:   info,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
