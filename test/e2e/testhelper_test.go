package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/marcos-nsantos/menu-media-backend/internal/adapter/handler"
	"github.com/marcos-nsantos/menu-media-backend/internal/domain/valueobject"
	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/config"
	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/imageproc"
	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/server"
	"github.com/marcos-nsantos/menu-media-backend/internal/infrastructure/storage"
	"github.com/marcos-nsantos/menu-media-backend/internal/usecase/asset"
	"github.com/marcos-nsantos/menu-media-backend/internal/usecase/reaper"
)

const apiBasePath = "/api/v1"

type TestApp struct {
	Server     *httptest.Server
	Storage    *storage.LocalStorage
	Reaper     *reaper.Service
	BaseURL    string
	httpClient *http.Client
}

func setupTestApp(t *testing.T) *TestApp {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping e2e test in short mode")
	}

	gin.SetMode(gin.TestMode)

	local, err := storage.NewLocalStorage(config.LocalConfig{Root: t.TempDir(), BaseURL: "/uploads"})
	require.NoError(t, err)

	policy := valueobject.DefaultImagePolicy()
	logger := zap.NewNop()

	// Initialize image processing
	gate := imageproc.NewGate(2)
	validator := imageproc.NewValidator(policy)
	transformer := imageproc.NewTransformer(gate, policy.VariantFormat, policy.VariantQuality)

	// Initialize use cases
	assetSvc := asset.NewService(local, validator, transformer, policy, 30*time.Second, logger)

	// Create router
	router := server.NewRouter(server.RouterConfig{
		AssetHandler: handler.NewAssetHandler(assetSvc, policy.MaxUploadBytes),
		Logger:       logger,
		Environment:  "test",
		StaticPath:   "/uploads",
		StaticRoot:   local.Root(),
	})

	ts := httptest.NewServer(router.Engine())
	t.Cleanup(ts.Close)

	return &TestApp{
		Server:  ts,
		Storage: local,
		Reaper:  reaper.NewService(local, policy.Sizes, logger),
		BaseURL: ts.URL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (app *TestApp) upload(t *testing.T, kind, ownerID, filename, contentType string, data []byte) *http.Response {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s%s/assets/%s/%s", app.BaseURL, apiBasePath, kind, ownerID), body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := app.httpClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (app *TestApp) remove(t *testing.T, url string) *http.Response {
	t.Helper()

	payload, err := json.Marshal(map[string]string{"url": url})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodDelete, app.BaseURL+apiBasePath+"/assets", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.httpClient.Do(req)
	require.NoError(t, err)
	return resp
}

// fetch GETs a stored asset; relative urls are resolved against the server.
func (app *TestApp) fetch(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := app.httpClient.Get(app.BaseURL + url)
	require.NoError(t, err)
	return resp
}

func parseResponse(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	if dest != nil {
		err = json.Unmarshal(body, dest)
		require.NoError(t, err, "response body: %s", string(body))
	}
}

func (app *TestApp) storedKeys(t *testing.T) []string {
	t.Helper()
	objects, err := app.Storage.List(context.Background(), "")
	require.NoError(t, err)
	keys := make([]string, 0, len(objects))
	for _, o := range objects {
		keys = append(keys, o.Key)
	}
	return keys
}
