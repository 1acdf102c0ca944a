package gcs_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/tigerroll/storemap/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/storemap/pkg/batch/adapter/storage/gcs"
	coreconfig "github.com/tigerroll/storemap/pkg/batch/core/config"
)

func TestExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/b/maps/o/site/stores.json") {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"kind":"storage#object","bucket":"maps","name":"site/stores.json","size":"2"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":404,"message":"No such object"}}`)
	}))
	defer srv.Close()

	cfg := config.StorageConfig{Type: "gcs", BucketName: "maps", Prefix: "/site/"}
	conn, err := gcs.NewGCSAdapter(context.Background(), cfg, "site",
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	defer conn.Close()

	ok, err := conn.Exists(context.Background(), "", "stores.json")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = conn.Exists(context.Background(), "", "config.js")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, "gcs", conn.Type())
	assert.Equal(t, "site", conn.Name())
}

func TestNewGCSAdapter_RequiresBucket(t *testing.T) {
	_, err := gcs.NewGCSAdapter(context.Background(), config.StorageConfig{Type: "gcs"}, "site", option.WithoutAuthentication())
	assert.ErrorContains(t, err, "bucket_name")
}

func TestClientOptions(t *testing.T) {
	assert.Empty(t, gcs.ClientOptions(config.StorageConfig{}))
	assert.Len(t, gcs.ClientOptions(config.StorageConfig{CredentialsFile: "/etc/sa.json"}), 1)
}

func TestProvider_TypeMismatch(t *testing.T) {
	cfg := coreconfig.NewConfig()
	cfg.Storemap.AdapterConfigs["storage"] = map[string]interface{}{
		"site": map[string]interface{}{"type": "local"},
	}
	p := gcs.NewGCSProvider(cfg)
	_, err := p.GetConnection("site")
	assert.ErrorContains(t, err, "type mismatch")

	_, err = p.GetConnection("absent")
	assert.ErrorContains(t, err, "not found")
	assert.NoError(t, p.CloseAll())
}
