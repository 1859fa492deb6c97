package gwerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindConflict, KindOf(Conflict("op", "already exists")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("op", "missing")))
	assert.Equal(t, KindBadRequest, KindOf(BadRequest("op", "bad")))
	assert.Equal(t, KindTransient, KindOf(Transient("op", errors.New("retry me"))))
	assert.Equal(t, KindRemoteStoreFailure, KindOf(RemoteStoreFailure("op", errors.New("cloud down"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain error")))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	wrapped := Internal("do_thing", "%w", cause)
	assert.ErrorIs(t, wrapped, cause)
}
