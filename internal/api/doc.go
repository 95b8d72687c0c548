// Package api is the HTTP client the addoc session layer and its
// collaborators share.
//
// # Interceptor Pipeline
//
// Every request issued through a Client passes through a Pipeline, an
// http.RoundTripper with two stages:
//
//   - Outbound: if the TokenSource holds a token it is attached as
//     "Authorization: Bearer <token>", but only to the base URL's scheme and
//     host. Redirects elsewhere go out without it. Each request also gets an
//     X-Request-ID for log correlation. Attachment never fails a request.
//
//   - Inbound: a 401 response triggers the registered unauthorized hook
//     (normally the session manager's teardown), unless the request context
//     was marked with SkipGlobalErrorHandler, the response came from another
//     host, or the current location is already the login view. The hook's
//     context reports the token the request was sent with via SentToken.
//
// The Client then turns every non-2xx response into an *HTTPError, so
// callers always observe the failure even after the pipeline handled it.
//
// # Usage
//
//	client, err := api.NewClient(api.Config{BaseURL: url, Timeout: 5 * time.Second}, state, router)
//	...
//	client.OnUnauthorized(manager.HandleUnauthorized)
//
//	user, err := client.CurrentUser(ctx)
//
// Requests that need their own 401 handling opt out per call:
//
//	ctx = api.SkipGlobalErrorHandler(ctx)
package api
