package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gekko-logistics/waybills-server/internal/api/problem"
	"github.com/gekko-logistics/waybills-server/internal/domain/waybills"
	"github.com/gekko-logistics/waybills-server/internal/events"
	"github.com/gekko-logistics/waybills-server/internal/imports"
)

const sampleCSV = `waybill_number,project_name,supplier_name,waybill_date,delivery_date,product_code,quantity,unit_price,total_amount,status
WB-100,North Tower,Holcim,2025-07-01,2025-07-03,CEM-42.5,10,25.50,255.00,PENDING
WB-101,North Tower,Holcim,2025-07-02,2025-07-04,CEM-42.5,100,25.50,2550.00,PENDING
`

// importStoreFake satisfies imports.Store without a database.
type importStoreFake struct {
	applied []imports.BatchChanges
}

func (s *importStoreFake) FetchBatchContext(_ context.Context, _ string, _, _, _ []string) (*imports.BatchContext, error) {
	return &imports.BatchContext{
		Projects:  make(map[string]waybills.Project),
		Suppliers: make(map[string]waybills.Supplier),
		Waybills:  make(map[string]waybills.Waybill),
	}, nil
}

func (s *importStoreFake) ApplyBatch(_ context.Context, _ string, changes imports.BatchChanges) error {
	s.applied = append(s.applied, changes)
	return nil
}

type notifierFake struct {
	published []events.ImportedEvent
}

func (n *notifierFake) PublishImported(_ context.Context, event events.ImportedEvent) error {
	n.published = append(n.published, event)
	return nil
}

// jobStoreFake is an in-memory imports.JobStore.
type jobStoreFake struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*imports.ImportJob
}

func newJobStoreFake() *jobStoreFake {
	return &jobStoreFake{jobs: make(map[uuid.UUID]*imports.ImportJob)}
}

func (s *jobStoreFake) Create(_ context.Context, job *imports.ImportJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *jobStoreFake) Get(_ context.Context, tenantID string, id uuid.UUID) (*imports.ImportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.TenantID != tenantID {
		return nil, imports.ErrJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *jobStoreFake) MarkRunning(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Status = imports.JobRunning
	}
	return nil
}

func (s *jobStoreFake) MarkSucceeded(_ context.Context, id uuid.UUID, counts imports.JobCounts) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Status = imports.JobSucceeded
		job.TotalRows = counts.TotalRows
		job.InsertedCount = counts.InsertedCount
		job.UpdatedCount = counts.UpdatedCount
		job.RejectedCount = counts.RejectedCount
	}
	return nil
}

func (s *jobStoreFake) MarkFailed(_ context.Context, id uuid.UUID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Status = imports.JobFailed
		job.Error = message
	}
	return nil
}

func (s *jobStoreFake) FailStuck(_ context.Context, _ time.Time, _ string) (int, error) {
	return 0, nil
}

func csvUpload(t *testing.T, content string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "waybills.csv")
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func newImportsHandler(jobs imports.JobStore, queueCapacity int, bumper waybills.VersionBumper) (*ImportsHandler, *importStoreFake, *notifierFake) {
	store := &importStoreFake{}
	notifier := &notifierFake{}
	engine := imports.NewEngine(store, notifier, nil, zerolog.Nop())
	queue := imports.NewQueue(queueCapacity)
	intake := imports.NewIntake(jobs, queue, zerolog.Nop())
	return NewImportsHandler(engine, intake, jobs, bumper, 1<<20, testEnv), store, notifier
}

func TestImportsHandlerSync(t *testing.T) {
	bumper := &bumperSpy{}
	handler, store, notifier := newImportsHandler(newJobStoreFake(), 4, bumper)

	body, contentType := csvUpload(t, sampleCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/waybills/import", body)
	req.Header.Set("Content-Type", contentType)
	rec := serveAs(t, "acme", handler.Import, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result imports.ImportResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	require.Equal(t, 2, result.TotalRows)
	require.Equal(t, 1, result.InsertedCount)
	require.Equal(t, 1, result.RejectedCount)
	require.Len(t, result.Rejected, 1)
	require.Contains(t, result.Rejected[0].Errors, imports.CodeQuantityOutOfRange)

	require.Len(t, store.applied, 1)
	require.Len(t, notifier.published, 1)
	require.Equal(t, []string{"acme:import-succeeded"}, bumper.calls)
}

func TestImportsHandlerSync_EmptyFile(t *testing.T) {
	handler, _, _ := newImportsHandler(newJobStoreFake(), 4, &bumperSpy{})

	body, contentType := csvUpload(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/waybills/import", body)
	req.Header.Set("Content-Type", contentType)
	rec := serveAs(t, "acme", handler.Import, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportsHandlerSync_MissingFileField(t *testing.T) {
	handler, _, _ := newImportsHandler(newJobStoreFake(), 4, &bumperSpy{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/waybills/import", strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "text/plain")
	rec := serveAs(t, "acme", handler.Import, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportsHandlerAsync(t *testing.T) {
	jobs := newJobStoreFake()
	handler, _, _ := newImportsHandler(jobs, 4, &bumperSpy{})

	body, contentType := csvUpload(t, sampleCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/waybills/import?async=true", body)
	req.Header.Set("Content-Type", contentType)
	rec := serveAs(t, "acme", handler.Import, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var response map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	require.Equal(t, string(imports.JobQueued), response["status"])

	jobID, err := uuid.Parse(response["jobId"])
	require.NoError(t, err)
	job, err := jobs.Get(context.Background(), "acme", jobID)
	require.NoError(t, err)
	require.Equal(t, imports.JobQueued, job.Status)
}

func TestImportsHandlerAsync_QueueFull(t *testing.T) {
	jobs := newJobStoreFake()
	handler, _, _ := newImportsHandler(jobs, 1, &bumperSpy{})

	// Fill the single queue slot.
	body, contentType := csvUpload(t, sampleCSV)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/waybills/import?async=true", body)
	req.Header.Set("Content-Type", contentType)
	require.Equal(t, http.StatusAccepted, serveAs(t, "acme", handler.Import, req).Code)

	body, contentType = csvUpload(t, sampleCSV)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/waybills/import?async=true", body)
	req.Header.Set("Content-Type", contentType)
	rec := serveAs(t, "acme", handler.Import, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	details := decodeProblem(t, rec)
	require.Equal(t, problem.TypeQueueFull, details.Type)

	// The overflowed job row must end up terminal, not stuck QUEUED.
	var failed int
	jobs.mu.Lock()
	for _, job := range jobs.jobs {
		if job.Status == imports.JobFailed {
			failed++
		}
	}
	jobs.mu.Unlock()
	require.Equal(t, 1, failed)
}

func TestImportsHandlerGetJob(t *testing.T) {
	jobs := newJobStoreFake()
	handler, _, _ := newImportsHandler(jobs, 4, &bumperSpy{})

	job := imports.NewImportJob("acme")
	require.NoError(t, jobs.Create(context.Background(), job))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/import-jobs/"+job.ID.String(), nil)
	req.SetPathValue("id", job.ID.String())
	rec := serveAs(t, "acme", handler.GetJob, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var fetched imports.ImportJob
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&fetched))
	require.Equal(t, job.ID, fetched.ID)
	require.Equal(t, imports.JobQueued, fetched.Status)
}

func TestImportsHandlerGetJob_TenantScoped(t *testing.T) {
	jobs := newJobStoreFake()
	handler, _, _ := newImportsHandler(jobs, 4, &bumperSpy{})

	job := imports.NewImportJob("acme")
	require.NoError(t, jobs.Create(context.Background(), job))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/import-jobs/"+job.ID.String(), nil)
	req.SetPathValue("id", job.ID.String())
	rec := serveAs(t, "globex", handler.GetJob, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportsHandlerGetJob_InvalidID(t *testing.T) {
	handler, _, _ := newImportsHandler(newJobStoreFake(), 4, &bumperSpy{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/import-jobs/nope", nil)
	req.SetPathValue("id", "nope")
	rec := serveAs(t, "acme", handler.GetJob, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
