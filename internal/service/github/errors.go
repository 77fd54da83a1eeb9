package github

import (
	"errors"
	"net/http"
	"strings"

	gh "github.com/google/go-github/v68/github"
)

func statusCode(err error) (int, *gh.ErrorResponse) {
	var apiError *gh.ErrorResponse
	if !errors.As(err, &apiError) || apiError.Response == nil {
		return 0, nil
	}
	return apiError.Response.StatusCode, apiError
}

// IsNotFound reports whether err is a 404 Not Found response.
func IsNotFound(err error) bool {
	code, _ := statusCode(err)
	return code == http.StatusNotFound
}

// IsConflict reports whether err is a rejected contents write.
//
// GitHub answers 409 when the supplied blob SHA is no longer the file's
// current SHA, and 422 ("sha wasn't supplied") when a create is issued
// for a path that already exists.
func IsConflict(err error) bool {
	code, apiError := statusCode(err)
	switch code {
	case http.StatusConflict:
		return true
	case http.StatusUnprocessableEntity:
		return strings.Contains(strings.ToLower(apiError.Message), "sha")
	}
	return false
}

// errorMessage returns the API's message for err, or err's text when the
// response carried none.
func errorMessage(err error) string {
	if _, apiError := statusCode(err); apiError != nil && apiError.Message != "" {
		return apiError.Message
	}
	return err.Error()
}
