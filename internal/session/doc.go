// Package session owns the client's authentication state.
//
// # State
//
// State is the single in-memory record of the session: the bearer token and
// the user profile. It is created empty, handed to the request pipeline and
// the navigation guard as a read-only view, and mutated only by Manager.
// IsAuthenticated is derived from the token, so it cannot diverge from it.
//
// # State Machine
//
//	Anonymous --Login--> Authenticated
//	Authenticated --Logout / 401 / failed profile fetch--> Anonymous
//
// A Manager starts Authenticated if the credential store holds a token. The
// profile is never restored from storage; it stays nil until FetchUser
// succeeds, so Authenticated does not imply a known role.
//
// # Epochs
//
// Every token change and every logout advances the state's epoch. Profile
// fetches remember the epoch they were issued under and their result,
// success or failure, is dropped if the epoch has moved on by the time the
// response arrives. A logout racing an in-flight fetch therefore can never
// be undone by the fetch.
//
// # Errors
//
//   - ErrCredentialRejected: Login was refused by the token endpoint.
//     Returned to the caller; state is untouched.
//   - ErrSessionExpired: the profile endpoint answered 401.
//   - ErrProfileUnavailable: the profile fetch failed for any other reason.
//
// The last two are never returned by FetchUser; they only appear in logs
// and cause a logout.
package session
