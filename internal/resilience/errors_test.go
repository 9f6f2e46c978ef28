package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

type fakeStatusErr struct{ code int }

func (e *fakeStatusErr) Error() string   { return fmt.Sprintf("status %d", e.code) }
func (e *fakeStatusErr) HTTPStatus() int { return e.code }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("invalid json"), false},
		{"explicit", NewTransientError(errors.New("x"), 0), true},
		{"wrapped explicit", eris.Wrap(NewTransientError(errors.New("x"), 500), "call"), true},
		{"status 429", &fakeStatusErr{429}, true},
		{"status 529 overloaded", &fakeStatusErr{529}, true},
		{"wrapped status 503", eris.Wrap(&fakeStatusErr{503}, "perplexity"), true},
		{"status 400", &fakeStatusErr{400}, false},
		{"status 404", eris.Wrap(&fakeStatusErr{404}, "scrape"), false},
		{"conn reset", fmt.Errorf("dial: %w", syscall.ECONNRESET), true},
		{"io timeout text", errors.New("read tcp: i/o timeout"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, 0, StatusOf(errors.New("x")))
	assert.Equal(t, 502, StatusOf(eris.Wrap(&fakeStatusErr{502}, "wrapped")))
	assert.Equal(t, 429, StatusOf(NewTransientError(errors.New("x"), 429)))
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	te := NewTransientError(inner, 503)
	assert.ErrorIs(t, te, inner)
	assert.Equal(t, "inner", te.Error())
}
