package leaduploadapi

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	shared "github.com/opsboard/server/pkg"
	"github.com/opsboard/server/pkg/batching"
	"github.com/opsboard/server/pkg/bootstrap"
	"github.com/opsboard/server/pkg/domain/lead"
	"github.com/opsboard/server/pkg/execution"
	httputil "github.com/opsboard/server/pkg/infrastructure/http"
	infrapubsub "github.com/opsboard/server/pkg/infrastructure/pubsub"
	infrasentry "github.com/opsboard/server/pkg/infrastructure/sentry"
	"github.com/opsboard/server/pkg/spreadsheet"
	"github.com/opsboard/server/pkg/types"
	"github.com/opsboard/server/pkg/upload"
)

// MaxUploadBytes caps the multipart body accepted by POST /uploads.
const MaxUploadBytes = 32 << 20

type api struct {
	svc    *bootstrap.Service
	logger *slog.Logger
	now    func() time.Time
}

// NewRouter builds the upload API routes over svc.
func NewRouter(svc *bootstrap.Service, logger *slog.Logger) http.Handler {
	a := &api{svc: svc, logger: logger.With("component", "api"), now: time.Now}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/uploads", a.createUpload)
	r.Get("/segments", a.listSegments)
	r.Get("/segments/{segmentID}", a.getSegment)
	return r
}

// PlannedOperation is one segment write in a dry-run response.
type PlannedOperation struct {
	SegmentID string `json:"segment_id"`
	Update    bool   `json:"update"`
	Records   int    `json:"records"`
	Appended  int    `json:"appended"`
}

// UploadResponse is returned by POST /uploads.
type UploadResponse struct {
	RunID      string                `json:"run_id,omitempty"`
	Status     types.UploadRunStatus `json:"status,omitempty"`
	DryRun     bool                  `json:"dry_run"`
	Mode       batching.Mode         `json:"mode,omitempty"`
	Summary    upload.Summary        `json:"summary"`
	Operations []PlannedOperation    `json:"operations,omitempty"`
	ArchivedAs string                `json:"archived_as,omitempty"`
	Error      string                `json:"error,omitempty"`
}

type uploadRequest struct {
	filename string
	data     []byte
	assignee string
	target   string
	dryRun   bool
}

func (a *api) createUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := parseUploadRequest(w, r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	logger := a.logger.With("filename", req.filename, "dry_run", req.dryRun, "request_id", middleware.GetReqID(ctx))

	rows, err := spreadsheet.ReadRowsBytes(req.data, req.filename)
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, spreadsheet.ErrUnsupportedFormat) {
			code = http.StatusUnsupportedMediaType
		}
		httputil.WriteError(w, httputil.NewError(code, err))
		return
	}

	cfg := a.svc.Config
	orch := upload.New(a.svc.DB, cfg.Limits(), cfg.RetryPolicy(), batching.LogSink{Logger: logger.With("component", "batching")})
	opts := upload.Options{Assignee: req.assignee, TargetSegmentID: req.target}

	if req.dryRun {
		plan, summary, err := orch.Preview(ctx, rows, opts)
		if err != nil {
			httputil.WriteError(w, httputil.NewError(statusFor(err), err))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, UploadResponse{
			DryRun:     true,
			Mode:       plan.Mode,
			Summary:    summary,
			Operations: plannedOperations(plan),
		})
		return
	}

	resp := UploadResponse{ArchivedAs: a.archive(r, logger, req)}
	source := resp.ArchivedAs
	if source == "" {
		source = "upload:" + req.filename
	}

	runID, err := execution.LogStart(ctx, a.svc.DB, serviceName, execution.Options{
		TriggerType: "http",
		Source:      source,
		Assignee:    req.assignee,
		Target:      req.target,
	})
	if err != nil {
		logger.Error("Failed to log upload run start", "error", err)
	}
	resp.RunID = runID
	logger = logger.With("run_id", runID)

	summary, runErr := orch.Run(ctx, rows, opts)
	resp.Summary = summary
	resp.Status = upload.RunStatus(summary, runErr)

	if runErr != nil {
		logger.Error("Upload failed", "error", runErr, "status", string(resp.Status))
		resp.Error = runErr.Error()
		var logErr error
		if resp.Status == types.UploadRunPartial {
			logErr = execution.LogPartial(ctx, a.svc.DB, runID, runErr, summary)
		} else {
			logErr = execution.LogFailure(ctx, a.svc.DB, runID, runErr, summary)
		}
		if logErr != nil {
			logger.Warn("Failed to log upload run failure", "error", logErr)
		}
	} else {
		logger.Info("Upload finished", "summary", summary.Describe())
		if logErr := execution.LogSuccess(ctx, a.svc.DB, runID, summary); logErr != nil {
			logger.Warn("Failed to log upload run success", "error", logErr)
		}
	}

	if summary.OperationsPlanned > 0 {
		a.publishCompletion(r, logger, upload.CompletedEvent(runID, source, req.assignee, summary, runErr))
	}

	code := http.StatusOK
	if runErr != nil {
		code = statusFor(runErr)
		if code >= http.StatusInternalServerError {
			infrasentry.CaptureUploadFailure(runErr, map[string]string{"service": serviceName, "run_id": runID}, map[string]interface{}{"source": source}, logger)
		}
	}
	httputil.WriteJSON(w, code, resp)
}

func parseUploadRequest(w http.ResponseWriter, r *http.Request) (*uploadRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, httputil.NewError(http.StatusRequestEntityTooLarge, fmt.Errorf("upload exceeds %d bytes", MaxUploadBytes))
		}
		return nil, httputil.NewError(http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, httputil.NewError(http.StatusBadRequest, errors.New("missing file field"))
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, httputil.NewError(http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
	}

	req := &uploadRequest{
		filename: path.Base(header.Filename),
		data:     data,
		assignee: strings.TrimSpace(r.FormValue("assignee")),
		target:   strings.TrimSpace(r.FormValue("target_segment")),
	}
	if v := r.FormValue("dry_run"); v != "" {
		req.dryRun, err = strconv.ParseBool(v)
		if err != nil {
			return nil, httputil.NewError(http.StatusBadRequest, fmt.Errorf("invalid dry_run %q", v))
		}
	}
	return req, nil
}

// archive stores the raw upload under the archive prefix and returns its
// gs:// location, or "" when archiving is disabled or fails.
func (a *api) archive(r *http.Request, logger *slog.Logger, req *uploadRequest) string {
	bucket := a.svc.Config.GCSUploadBucket
	if bucket == "" {
		return ""
	}
	object := fmt.Sprintf("%s%s/%s-%s", shared.ArchivePrefix, a.now().UTC().Format("2006/01/02"), uuid.NewString(), req.filename)
	if err := a.svc.Store.Write(r.Context(), bucket, object, req.data); err != nil {
		logger.Warn("Failed to archive upload", "error", err, "bucket", bucket)
		return ""
	}
	return fmt.Sprintf("gs://%s/%s", bucket, object)
}

func (a *api) publishCompletion(r *http.Request, logger *slog.Logger, completed types.UploadCompletedEvent) {
	ev, err := infrapubsub.NewCloudEvent(shared.EventSourceLeadUploadAPI, shared.EventTypeLeadUploadCompleted, completed)
	if err != nil {
		logger.Error("Failed to create completion event", "error", err)
		return
	}
	if _, err := a.svc.Pub.PublishCloudEvent(r.Context(), shared.TopicLeadUploadCompleted, ev); err != nil {
		logger.Error("Failed to publish completion event", "error", err)
	}
}

func (a *api) listSegments(w http.ResponseWriter, r *http.Request) {
	segments, err := upload.Occupancy(r.Context(), a.svc.DB, "", a.svc.Config.SegmentCapacity)
	if err != nil {
		a.logger.Error("Failed to list segments", "error", err)
		httputil.WriteError(w, httputil.NewError(statusFor(err), err))
		return
	}
	if segments == nil {
		segments = []upload.SegmentOccupancy{}
	}
	httputil.WriteJSON(w, http.StatusOK, segments)
}

// SegmentResponse is returned by GET /segments/{segmentID}.
type SegmentResponse struct {
	ID      string        `json:"id"`
	Records []lead.Record `json:"records"`
}

func (a *api) getSegment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "segmentID")
	seg, err := a.svc.DB.GetSegment(r.Context(), id)
	if errors.Is(err, shared.ErrNotFound) {
		httputil.WriteError(w, httputil.NewError(http.StatusNotFound, fmt.Errorf("segment %s not found", id)))
		return
	}
	if err != nil {
		a.logger.Error("Failed to read segment", "error", err, "segment_id", id)
		httputil.WriteError(w, err)
		return
	}

	resp := SegmentResponse{ID: seg.ID, Records: make([]lead.Record, 0, len(seg.Records))}
	for i, encoded := range seg.Records {
		rec, err := lead.Decode(encoded)
		if err != nil {
			a.logger.Error("Undecodable record", "error", err, "segment_id", id, "index", i)
			httputil.WriteError(w, err)
			return
		}
		resp.Records = append(resp.Records, rec)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func plannedOperations(plan *batching.Plan) []PlannedOperation {
	ops := make([]PlannedOperation, len(plan.Operations))
	for i, op := range plan.Operations {
		ops[i] = PlannedOperation{
			SegmentID: op.SegmentID,
			Update:    op.IsUpdate,
			Records:   len(op.Records),
			Appended:  op.Appended(),
		}
	}
	return ops
}

// statusFor maps import errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		validation *upload.ValidationError
		encoding   *lead.EncodingError
		target     *batching.TargetError
		tooLarge   *batching.RecordTooLargeError
		read       *batching.StoreReadError
		write      *batching.StoreWriteError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &encoding), errors.As(err, &tooLarge):
		return http.StatusUnprocessableEntity
	case errors.As(err, &target):
		return http.StatusBadRequest
	case errors.As(err, &read):
		return http.StatusServiceUnavailable
	case errors.As(err, &write):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
