// Package router resolves view paths against a route table and runs every
// transition through Guard before it commits.
//
// The guard evaluates, in order:
//
//  1. destination requires auth and the session is anonymous: redirect to /login
//  2. destination is /login and the session is authenticated: redirect to /
//  3. destination requires admin and the profile is missing or not admin: redirect to /
//  4. otherwise allow
//
// A missing profile is never treated as pending. Router also implements
// api.Locator (Location) and session.Navigator (HardRedirect) so the
// pipeline and session manager can be wired to it without globals.
package router
