package exceptions

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	cases := map[string]struct {
		err  error
		want int
	}{
		"InvalidInput":  {InvalidInput("category is required"), http.StatusBadRequest},
		"Wrapped":       {fmt.Errorf("subscribe: %w", InvalidInput("bad")), http.StatusBadRequest},
		"NotFound":      {NotFound("route", "/nowhere"), http.StatusNotFound},
		"Delivery":      {DeliveryFailed("http://a", errors.New("refused")), http.StatusBadGateway},
		"InternalError": {InternalServer("boom"), http.StatusInternalServerError},
		"Plain":         {errors.New("plain"), http.StatusInternalServerError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatusCode(tc.err))
		})
	}
}

func TestDeliveryFailedUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := DeliveryFailed("http://a", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Failed to deliver to http://a: connection refused", err.Error())
}
