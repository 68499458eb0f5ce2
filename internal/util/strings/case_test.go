package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Epochs":       "epochs",
		"HiddenUnits":  "hidden_units",
		"LR":           "lr",
		"MaxHTTPConns": "max_http_conns",
		"Layer2Size":   "layer2_size",
		"already_low":  "already_low",
		"HTTP2Server":  "http2_server",
		"ResNet50Dim":  "res_net50_dim",
		"ParseURLV2":   "parse_urlv2",
		"ID":           "id",
		"":             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, ToSnakeCase(in), in)
	}
}
