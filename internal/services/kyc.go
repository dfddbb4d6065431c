package services

import (
	"context"
	"net/http"
	"net/url"

	"kycportal/internal/domain"
	"kycportal/internal/transport/apiclient"
	id "kycportal/pkg/domain"
)

type KYC struct {
	api  Caller
	sess apiclient.Session
}

func (k *KYC) SubmitKYC(ctx context.Context, snapshot domain.KYCSnapshot) (*domain.KYCData, error) {
	var out domain.KYCData
	if err := k.api.Do(ctx, k.sess, apiclient.Request{Method: http.MethodPost, Path: "/kyc", Body: snapshot}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetKYCByUserID returns a CodeNotFound error when the user never submitted.
func (k *KYC) GetKYCByUserID(ctx context.Context, userID id.UserID) (*domain.KYCData, error) {
	var out domain.KYCData
	err := k.api.Do(ctx, k.sess, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/kyc/user/" + url.PathEscape(string(userID)),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}
