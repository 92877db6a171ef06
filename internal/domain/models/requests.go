package models

// RangeRequest carries the query parameters of GET /range and GET /data.
// Exactly one of the three modes applies: lastSec, explicit start+end, or
// latest-per-region when no time parameter is present. Cross-parameter rules
// are enforced by the query engine; per-field bounds live in the tags.
type RangeRequest struct {
	LastSec  *int64 `query:"lastSec" validate:"omitempty,gt=0,lte=604800"`
	Start    *int64 `query:"start"`
	End      *int64 `query:"end"`
	RegionID string `query:"regionid"`
	Limit    *int   `query:"limit" default:"100" validate:"omitempty,gt=0"`
	Offset   *int   `query:"offset" default:"0" validate:"omitempty,gte=0"`
}

// TokenRequest is the body of POST /token.
type TokenRequest struct {
	ClientID string `json:"client_id" validate:"required"`
}

// RefreshRequest is the body of POST /refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// TokenResponse is the body returned by POST /token and POST /refresh.
// RefreshToken is empty on refresh responses.
type TokenResponse struct {
	TokenType    string `json:"token_type"`
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
}
