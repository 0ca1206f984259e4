package authz

import "context"

// StaticAuthorizer implements ports.Authorizer from a fixed set of admin
// usernames supplied by configuration.
type StaticAuthorizer struct {
	admins map[string]struct{}
}

// NewStaticAuthorizer creates an authorizer from the admin username list.
func NewStaticAuthorizer(usernames []string) *StaticAuthorizer {
	admins := make(map[string]struct{}, len(usernames))
	for _, u := range usernames {
		admins[u] = struct{}{}
	}
	return &StaticAuthorizer{admins: admins}
}

// IsPrivileged reports whether the username belongs to the admin set.
func (a *StaticAuthorizer) IsPrivileged(_ context.Context, username string) (bool, error) {
	_, ok := a.admins[username]
	return ok, nil
}
