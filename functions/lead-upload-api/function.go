package leaduploadapi

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/opsboard/server/pkg/bootstrap"
	httputil "github.com/opsboard/server/pkg/infrastructure/http"
)

const serviceName = "lead-upload-api"

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
	router  http.Handler
)

func init() {
	functions.HTTP("LeadUploadAPI", LeadUploadAPI)
}

func initService(ctx context.Context) (http.Handler, error) {
	svcOnce.Do(func() {
		svc, svcErr = bootstrap.NewService(ctx, serviceName, nil)
		if svcErr != nil {
			slog.Error("Failed to initialize service", "error", svcErr)
			return
		}
		router = NewRouter(svc, slog.Default())
	})
	return router, svcErr
}

// LeadUploadAPI is the HTTP entry point
func LeadUploadAPI(w http.ResponseWriter, r *http.Request) {
	h, err := initService(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.ServeHTTP(w, r)
}
