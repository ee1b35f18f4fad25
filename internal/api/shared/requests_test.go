package shared

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taggedRequest struct {
	Name  string `json:"name"  validate:"required"`
	Limit int    `json:"limit" validate:"gte=0"`
}

type selfValidating struct {
	OK bool
}

func (s selfValidating) Validate() error {
	if !s.OK {
		return errors.New("not ok")
	}
	return nil
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	request := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"ditto","limit":5}`))

	var decoded taggedRequest
	require.NoError(t, DecodeJSON(request, &decoded))
	assert.Equal(t, "ditto", decoded.Name)
	assert.Equal(t, 5, decoded.Limit)
}

func TestDecodeJSON_Malformed(t *testing.T) {
	t.Parallel()

	request := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))

	var decoded taggedRequest
	assert.Error(t, DecodeJSON(request, &decoded))
}

func TestValidateRequest_StructTags(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateRequest(taggedRequest{Name: "ditto"}))
	assert.Error(t, ValidateRequest(taggedRequest{}))
	assert.Error(t, ValidateRequest(taggedRequest{Name: "ditto", Limit: -1}))
}

func TestValidateRequest_PrefersOwnValidateMethod(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateRequest(selfValidating{OK: true}))
	assert.Error(t, ValidateRequest(selfValidating{OK: false}))
}
