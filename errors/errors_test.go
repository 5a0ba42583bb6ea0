package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindMatching(t *testing.T) {
	req := require.New(t)

	err := Conflict("email %q already registered", "a@b.com")
	req.ErrorIs(err, ErrConflict)
	req.NotErrorIs(err, ErrNotFound)
	req.Equal(KindConflict, KindOf(err))
	req.Contains(err.Error(), "a@b.com")
}

func TestKindMatchingThroughWrapping(t *testing.T) {
	req := require.New(t)

	cause := stderrors.New("disk on fire")
	err := Wrap(KindInternal, cause, "storing message")
	req.ErrorIs(err, ErrInternal)
	req.ErrorIs(err, cause)
	req.Equal("storing message: disk on fire", err.Error())

	// A second layer of fmt wrapping must not lose the classification.
	outer := fmt.Errorf("send failed: %w", err)
	req.Equal(KindInternal, KindOf(outer))
}

func TestSentinelsWithMessagesStayDistinct(t *testing.T) {
	req := require.New(t)

	expired := Unauthorized("session token expired")
	malformed := Unauthorized("malformed session token")

	req.ErrorIs(expired, ErrUnauthorized)
	req.ErrorIs(malformed, ErrUnauthorized)
	req.NotErrorIs(expired, malformed)
}

func TestUnclassifiedErrorsAreInternal(t *testing.T) {
	req := require.New(t)
	req.Equal(KindInternal, KindOf(stderrors.New("boom")))
	req.Equal(http.StatusInternalServerError, HTTPStatus(stderrors.New("boom")))
}

func TestHTTPStatusMapping(t *testing.T) {
	req := require.New(t)

	cases := map[error]int{
		BadRequest("x"):   http.StatusBadRequest,
		Unauthorized("x"): http.StatusUnauthorized,
		Forbidden("x"):    http.StatusForbidden,
		NotFound("x"):     http.StatusNotFound,
		Conflict("x"):     http.StatusConflict,
		Internal("x"):     http.StatusInternalServerError,
	}
	for err, status := range cases {
		req.Equal(status, HTTPStatus(err), err.Error())
	}
}
