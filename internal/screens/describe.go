package screens

import (
	"errors"

	"insta/internal/apiclient"
)

// Messages shown on the login screen.
const (
	MsgLoginOK     = "Login successful! Welcome back."
	MsgLoginBad    = "Incorrect username or password. Please try again."
	MsgLoginFailed = "Login failed. Please try again later."
)

// Describe turns an error into the text a user sees.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, apiclient.ErrAuthenticationFailure):
		return MsgLoginBad
	case errors.Is(err, apiclient.ErrSessionExpired):
		return "Your session has expired. Please log in again."
	case errors.Is(err, apiclient.ErrNetworkFailure):
		return "Could not reach the server. Check your connection and try again."
	case errors.Is(err, apiclient.ErrNotFound):
		return "Not found."
	case errors.Is(err, ErrClosed):
		return ""
	}
	var se *apiclient.StatusError
	if errors.As(err, &se) {
		return "The server could not complete the request."
	}
	return "Something went wrong: " + err.Error()
}
