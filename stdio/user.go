package stdio

import (
	"encoding/json"
	"os/user"
)

// UserProvider resolves the identity associated with the stdio peer. There is
// no credential to validate on a local pipe; the provider supplies whatever
// implicit identity the deployment trusts.
type UserProvider interface {
	CurrentUserID() (string, error)
}

// OSUserProvider resolves the identity from the operating system's current
// user, preferring the username over the numeric uid.
type OSUserProvider struct{}

func (OSUserProvider) CurrentUserID() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	if u.Username != "" {
		return u.Username, nil
	}
	return u.Uid, nil
}

// localUser is the implicit principal established for every call served over
// the pipe. It carries no claims.
type localUser struct {
	id string
}

func (u localUser) UserID() string { return u.id }

func (u localUser) Claims(ref any) error {
	return json.Unmarshal([]byte("{}"), ref)
}
