package models

import "github.com/brizzai/mobsq/internal/auth/constants"

// Profile is the provider's profile object as a document. The only field this
// service writes is access_token.
type Profile map[string]interface{}

// Clone returns a shallow copy so callers never share the stored map.
func (p Profile) Clone() Profile {
	if p == nil {
		return nil
	}
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// WithAccessToken returns a copy of p carrying the access token.
func (p Profile) WithAccessToken(token string) Profile {
	out := p.Clone()
	if out == nil {
		out = Profile{}
	}
	out[constants.AccessTokenField] = token
	return out
}

// AccessToken returns the stored access token, if any.
func (p Profile) AccessToken() string {
	token, _ := p[constants.AccessTokenField].(string)
	return token
}

// ID returns the provider's user id.
func (p Profile) ID() string {
	id, _ := p["id"].(string)
	return id
}

// Name returns the display name.
func (p Profile) Name() string {
	name, _ := p["name"].(string)
	return name
}

// AccessToken is the result of exchanging an authorization code. Expires is
// kept verbatim and never interpreted.
type AccessToken struct {
	Value   string
	Expires string
}

// Place is one entry of a places search, kept as the provider sent it.
type Place map[string]interface{}

// ID returns the Graph id of the place.
func (p Place) ID() string {
	id, _ := p["id"].(string)
	return id
}

// Name returns the place's display name.
func (p Place) Name() string {
	name, _ := p["name"].(string)
	return name
}

// PlaceList is the envelope returned by the places search.
type PlaceList struct {
	Data []Place `json:"data"`
}
