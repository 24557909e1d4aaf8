package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindClassifiesWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("%w: swap: duplicate", ErrValidation)
	assert.Equal(t, ErrValidation, Kind(wrapped))
	assert.Equal(t, ErrNotFound, Kind(fmt.Errorf("load: %w", fmt.Errorf("%w: chat", ErrNotFound))))
	assert.Nil(t, Kind(errors.New("boom")))
	assert.Nil(t, Kind(nil))
}
