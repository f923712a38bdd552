package llm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Enes830/testagentset/pkg/apierr"
)

func TestMapError(t *testing.T) {
	err := mapError(errors.New("API returned unexpected status code: 401 Incorrect API key provided"))
	assert.True(t, apierr.IsAuthentication(err))

	err = mapError(errors.New("API returned unexpected status code: 429 Rate limit reached"))
	_, ok := apierr.IsRateLimit(err)
	assert.True(t, ok)

	err = mapError(errors.New("API returned unexpected status code: 500 internal error"))
	assert.True(t, apierr.IsService(err))
}
